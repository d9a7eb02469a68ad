// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides RequireAuth, the bearer-token guard for the protected
// API surface. It validates the Authorization header against the token
// parser supplied by the auth service and stores the authenticated user id
// in the Gin context under "userID", where the logger, the rate limiter, and
// the handlers pick it up.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxKeyUserID is the Gin context key holding the authenticated user id.
const ctxKeyUserID = "userID"

// TokenParser validates a session token and returns the user id it carries.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// RequireAuth returns a middleware that rejects requests without a valid
// "Authorization: Bearer <token>" header. On success the user id is stored
// under "userID" for downstream middleware and handlers.
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(c, "missing bearer token")
			return
		}
		userID, err := parser.ParseToken(token)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ctxKeyUserID, userID)
		c.Next()
	}
}

// UserIDFrom returns the authenticated user id, or "" when the request did
// not pass RequireAuth.
func UserIDFrom(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
