// Package services – AuthService
//
// This file implements the registration and login flow: allow-listed email
// domains, short-lived verification codes held in Redis, bcrypt password
// hashing, and JWT issuance. Codes reach the user through a CodeSender;
// without a mail backend the log-backed sender carries them.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the email domain, never the full address.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/convoy-chat/go-backend/internal/domain"
	"github.com/convoy-chat/go-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// bcryptCost matches the hashes already in the user table.
	bcryptCost = 10

	codeKeyPrefix = "verify-code:"

	// Token scopes. A registration token must never open an API session and
	// vice versa.
	scopeLogin    = "login"
	scopeRegister = "register-verification"

	// registrationTokenTTL bounds the window between code verification and
	// account completion.
	registrationTokenTTL = 10 * time.Minute
)

// sessionClaims is the JWT payload for both login and registration tokens;
// Scope tells them apart.
type sessionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// CodeStore holds verification codes for pending registrations. Implemented
// by RedisCodeStore in production and by in-memory fakes in tests.
type CodeStore interface {
	SetCode(ctx context.Context, email, code string, ttl time.Duration) error
	// GetCode returns the stored code, or "" when none exists.
	GetCode(ctx context.Context, email string) (string, error)
	DeleteCode(ctx context.Context, email string) error
}

// RedisCodeStore keeps verification codes in Redis under verify-code:<email>,
// where the TTL doubles as the code expiry.
type RedisCodeStore struct {
	Client *redis.Client
}

// SetCode stores code for email with the given TTL.
func (s *RedisCodeStore) SetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	return s.Client.Set(ctx, codeKeyPrefix+email, code, ttl).Err()
}

// GetCode fetches the code for email, returning "" when absent or expired.
func (s *RedisCodeStore) GetCode(ctx context.Context, email string) (string, error) {
	code, err := s.Client.Get(ctx, codeKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return code, err
}

// DeleteCode removes the code for email.
func (s *RedisCodeStore) DeleteCode(ctx context.Context, email string) error {
	return s.Client.Del(ctx, codeKeyPrefix+email).Err()
}

// CodeSender delivers a verification code to an address. An SMTP-backed
// sender is not wired; LogCodeSender stands in, surfacing the code through
// the service log the way the original deployment did.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogCodeSender writes verification codes to the log.
type LogCodeSender struct {
	Log zerolog.Logger
}

// SendCode logs the code for email.
func (s LogCodeSender) SendCode(_ context.Context, email, code string) error {
	s.Log.Info().Str("email", email).Str("code", code).Msg("verification code issued")
	return nil
}

// AuthService owns account registration and session token issuance.
type AuthService struct {
	DB    *gorm.DB
	Codes CodeStore

	// Sender delivers issued codes. Nil disables delivery (tests).
	Sender CodeSender

	// JWTSecret signs session tokens; TokenTTL bounds their lifetime.
	JWTSecret []byte
	TokenTTL  time.Duration

	// AllowedDomains restricts registration emails ("@example.com" suffix
	// match). Empty means no restriction.
	AllowedDomains []string

	// CodeTTL is the verification code lifetime.
	CodeTTL time.Duration
}

// RequestVerificationCode issues a six-digit code for email, stores it with
// the configured TTL and hands it to the Sender. The email must belong to an
// allowed domain and must not already have an account.
func (s *AuthService) RequestVerificationCode(ctx context.Context, email string) (string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "RequestVerificationCode",
		trace.WithAttributes(attribute.String("email.domain", emailDomain(email))),
	)
	defer span.End()

	if !s.domainAllowed(email) {
		return "", ErrEmailDomainNotAllowed
	}
	n, err := repo.CountUsersByEmail(ctx, s.DB, email)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", ErrEmailTaken
	}

	code, err := sixDigitCode()
	if err != nil {
		return "", err
	}
	if err := s.Codes.SetCode(ctx, email, code, s.codeTTL()); err != nil {
		return "", err
	}
	if s.Sender != nil {
		if err := s.Sender.SendCode(ctx, email, code); err != nil {
			return "", err
		}
	}
	return code, nil
}

// VerifyCode checks the code issued for email, consumes it, and returns a
// short-lived registration token. The token proves email ownership when the
// account is completed.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "VerifyCode",
		trace.WithAttributes(attribute.String("email.domain", emailDomain(email))),
	)
	defer span.End()

	stored, err := s.Codes.GetCode(ctx, email)
	if err != nil {
		return "", err
	}
	if stored == "" || stored != code {
		return "", ErrInvalidCode
	}
	if err := s.Codes.DeleteCode(ctx, email); err != nil {
		return "", err
	}
	return s.signToken(email, scopeRegister, registrationTokenTTL)
}

// Register completes the account behind a registration token obtained from
// VerifyCode. The password is stored as a bcrypt hash.
func (s *AuthService) Register(ctx context.Context, verificationToken, username, password, avatarURL string) (*domain.User, error) {
	email, err := s.parseToken(verificationToken, scopeRegister)
	if err != nil {
		return nil, ErrInvalidCode
	}

	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("email.domain", emailDomain(email))),
	)
	defer span.End()

	n, err := repo.CountUsersByEmail(ctx, s.DB, email)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	return repo.CreateUser(ctx, s.DB, username, email, string(hash), avatarURL)
}

// Login checks the credentials and returns a signed session token plus the
// account. Unknown email and wrong password are reported identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login",
		trace.WithAttributes(attribute.String("email.domain", emailDomain(email))),
	)
	defer span.End()

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	signed, err := s.signToken(u.ID, scopeLogin, s.tokenTTL())
	if err != nil {
		return "", nil, err
	}
	return signed, u, nil
}

// ParseToken validates a login token and returns the user id it carries.
// Registration tokens are rejected.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	return s.parseToken(tokenString, scopeLogin)
}

func (s *AuthService) signToken(subject, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: scope,
	})
	return token.SignedString(s.JWTSecret)
}

func (s *AuthService) parseToken(tokenString, wantScope string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{},
		func(t *jwt.Token) (any, error) { return s.JWTSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || claims.Subject == "" || claims.Scope != wantScope {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}

func (s *AuthService) domainAllowed(email string) bool {
	if len(s.AllowedDomains) == 0 {
		return true
	}
	for _, d := range s.AllowedDomains {
		if strings.HasSuffix(email, d) {
			return true
		}
	}
	return false
}

func (s *AuthService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return 5 * time.Minute
}

func (s *AuthService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 24 * time.Hour
}

func emailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i:]
	}
	return ""
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
