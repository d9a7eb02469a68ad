package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/convoy-chat/go-backend/internal/services"
)

type requestCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type registerRequest struct {
	Username  string `json:"username" binding:"required,min=2,max=32"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	AvatarURL string `json:"avatarUrl" binding:"omitempty,url,max=512"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// RequestCode handles POST /auth/send-code. It issues a short-lived
// verification code for the address; delivery happens out of band, so the
// response body never carries the code.
func (h *Handlers) RequestCode(c *gin.Context) {
	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a valid email is required")
		return
	}

	_, err := h.authSvc.RequestVerificationCode(c.Request.Context(), strings.ToLower(req.Email))
	switch {
	case err == nil:
		ok(c, http.StatusAccepted, gin.H{"status": "code_sent"})
	case errors.Is(err, services.ErrEmailDomainNotAllowed):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not issue verification code")
	}
}

// VerifyCode handles POST /auth/verify-code. On a correct code the response
// carries a short-lived registration token the client presents to Register.
func (h *Handlers) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and a six-digit code are required")
		return
	}

	verificationToken, err := h.authSvc.VerifyCode(c.Request.Context(), strings.ToLower(req.Email), req.Code)
	switch {
	case err == nil:
		ok(c, http.StatusOK, gin.H{"verification_token": verificationToken})
	case errors.Is(err, services.ErrInvalidCode):
		fail(c, http.StatusBadRequest, ErrCodeInvalidCode, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not verify code")
	}
}

// Register handles POST /auth/register. The bearer token must be a
// registration token from VerifyCode; it pins the account's email address.
func (h *Handlers) Register(c *gin.Context) {
	verificationToken, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !found || verificationToken == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "a verification token is required")
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password are required")
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), verificationToken, req.Username, req.Password, req.AvatarURL)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username, Email: user.Email, AvatarURL: user.AvatarURL})
	case errors.Is(err, services.ErrInvalidCode):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidCode, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
	}
}

// Login handles POST /auth/login and returns a signed bearer token.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	token, user, err := h.authSvc.Login(c.Request.Context(), strings.ToLower(req.Email), req.Password)
	switch {
	case err == nil:
		ok(c, http.StatusOK, loginResponse{
			Token: token,
			User:  userResponse{ID: user.ID, Username: user.Username, Email: user.Email, AvatarURL: user.AvatarURL},
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "login failed")
	}
}

// Me handles GET /users/me for the authenticated user.
func (h *Handlers) Me(c *gin.Context) {
	profile, err := h.userSvc.Profile(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load profile")
		return
	}
	ok(c, http.StatusOK, userResponse{ID: profile.ID, Username: profile.Username, Email: profile.Email, AvatarURL: profile.AvatarURL})
}
