// Package services – UserService
//
// This file implements the durable user directory consumed by the realtime
// core's identity backfill, plus profile reads for the HTTP layer.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/convoy-chat/go-backend/internal/chat"
	"github.com/convoy-chat/go-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserService resolves user records for display purposes.
type UserService struct {
	DB *gorm.DB
}

// FindUserByID resolves userID to a chat identity. It satisfies
// chat.UserDirectory; a failure here only means the sender keeps their
// attach-time display name.
func (s *UserService) FindUserByID(ctx context.Context, userID string) (chat.Identity, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "FindUserByID",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return chat.Identity{}, ErrUserNotFound
		}
		return chat.Identity{}, err
	}
	return chat.Identity{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}, nil
}

// Profile returns the public profile of userID.
func (s *UserService) Profile(ctx context.Context, userID string) (*Profile, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Profile",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &Profile{ID: u.ID, Username: u.Username, Email: u.Email, AvatarURL: u.AvatarURL}, nil
}

// Profile is the public shape of a user account.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
