// Package services – InviteService
//
// This file implements the invite-link lifecycle: creation from expiration
// and use-cap presets, public validation, redemption (which adds the
// membership and bumps the use counter in one transaction), listing, and
// deactivation. Token format and preset names are part of the public API
// shared with existing clients.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convoy-chat/go-backend/internal/domain"
	"github.com/convoy-chat/go-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// inviteExpirations maps expiration presets to their durations.
var inviteExpirations = map[string]time.Duration{
	"30_minutes": 30 * time.Minute,
	"1_hour":     time.Hour,
	"6_hours":    6 * time.Hour,
	"12_hours":   12 * time.Hour,
	"1_day":      24 * time.Hour,
	"7_days":     7 * 24 * time.Hour,
}

// inviteUses maps use-cap presets to their limits. Zero means unlimited.
var inviteUses = map[string]int{
	"unlimited": 0,
	"1_use":     1,
	"5_uses":    5,
	"10_uses":   10,
	"25_uses":   25,
	"50_uses":   50,
	"100_uses":  100,
}

// InviteService coordinates invite links and their redemption.
type InviteService struct {
	DB     *gorm.DB
	Groups *GroupService

	// Now is a clock seam for tests. Defaults to time.Now.
	Now func() time.Time
}

// InviteInfo is the public view of a validated invite, shown to a user
// before they join.
type InviteInfo struct {
	ID        string     `json:"id"`
	GroupID   string     `json:"group_id"`
	Group     GroupCard  `json:"group"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsesCount int        `json:"uses_count"`
	MaxUses   *int       `json:"max_uses"`
}

// GroupCard is the group summary embedded in a validated invite.
type GroupCard struct {
	ID          string `json:"id"`
	Name        string `json:"group_name"`
	Description string `json:"group_description"`
	Avatar      string `json:"group_avatar"`
}

// InviteStatus is an invite row annotated with its computed state, as shown
// to the group owner.
type InviteStatus struct {
	domain.GroupInvite
	IsExpired   bool `json:"is_expired"`
	IsExhausted bool `json:"is_exhausted"`
}

// CreateInvite issues a new invite link for a group. Owner only. The token
// embeds a short random id and the creation time in millis.
func (s *InviteService) CreateInvite(ctx context.Context, userID, groupID, expirationType, usesType string) (*domain.GroupInvite, error) {
	tr := otel.Tracer("services/InviteService")
	ctx, span := tr.Start(ctx, "CreateInvite", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("invite.expiration", expirationType),
	))
	defer span.End()

	if err := s.Groups.requireOwner(ctx, userID, groupID); err != nil {
		return nil, err
	}
	lifetime, ok := inviteExpirations[expirationType]
	if !ok {
		return nil, ErrInvalidExpiration
	}
	uses, ok := inviteUses[usesType]
	if !ok {
		return nil, ErrInvalidUses
	}
	var maxUses *int
	if uses > 0 {
		maxUses = &uses
	}

	now := s.now()
	inv := &domain.GroupInvite{
		GroupID:        groupID,
		CreatedBy:      userID,
		Token:          fmt.Sprintf("invite_%s_%d", uuid.NewString()[:12], now.UnixMilli()),
		ExpiresAt:      now.Add(lifetime),
		ExpirationType: expirationType,
		MaxUses:        maxUses,
		UsesType:       usesType,
		IsActive:       true,
		CreatedAt:      now,
	}
	return repo.CreateInvite(ctx, s.DB, inv)
}

// ValidateInvite checks a token without consuming it and returns the invite
// with its group summary. Unlike the owner-scoped operations this is public:
// anyone holding the link may inspect it.
func (s *InviteService) ValidateInvite(ctx context.Context, token string) (*InviteInfo, error) {
	tr := otel.Tracer("services/InviteService")
	ctx, span := tr.Start(ctx, "ValidateInvite")
	defer span.End()

	inv, err := s.redeemable(ctx, token)
	if err != nil {
		return nil, err
	}
	g, err := repo.GetGroup(ctx, s.DB, inv.GroupID)
	if err != nil {
		return nil, ErrInviteNotFound
	}
	return &InviteInfo{
		ID:        inv.ID,
		GroupID:   inv.GroupID,
		Group:     GroupCard{ID: g.ID, Name: g.Name, Description: g.Description, Avatar: g.Avatar},
		ExpiresAt: inv.ExpiresAt,
		UsesCount: inv.UsesCount,
		MaxUses:   inv.MaxUses,
	}, nil
}

// UseInvite redeems a token for userID: the membership row and the use-count
// bump commit in one transaction, so a cap race can never admit a member
// without consuming a use. Returns the joined group id.
func (s *InviteService) UseInvite(ctx context.Context, userID, token string) (string, error) {
	tr := otel.Tracer("services/InviteService")
	ctx, span := tr.Start(ctx, "UseInvite",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	inv, err := s.redeemable(ctx, token)
	if err != nil {
		return "", err
	}
	already, err := repo.IsGroupMember(ctx, s.DB, inv.GroupID, userID)
	if err != nil {
		return "", err
	}
	if already {
		return "", ErrAlreadyMember
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.IncrementInviteUses(ctx, tx, inv.ID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInviteExhausted
			}
			return err
		}
		_, err := repo.AddGroupMember(ctx, tx, inv.GroupID, userID)
		return err
	})
	if err != nil {
		return "", err
	}
	return inv.GroupID, nil
}

// ListInvites returns every invite of a group annotated with expiry and
// exhaustion state. Owner only.
func (s *InviteService) ListInvites(ctx context.Context, userID, groupID string) ([]InviteStatus, error) {
	tr := otel.Tracer("services/InviteService")
	ctx, span := tr.Start(ctx, "ListInvites",
		trace.WithAttributes(attribute.String("group.id", groupID)),
	)
	defer span.End()

	if err := s.Groups.requireOwner(ctx, userID, groupID); err != nil {
		return nil, err
	}
	invites, err := repo.ListGroupInvites(ctx, s.DB, groupID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]InviteStatus, len(invites))
	for i, inv := range invites {
		out[i] = InviteStatus{
			GroupInvite: inv,
			IsExpired:   inv.Expired(now),
			IsExhausted: inv.Exhausted(),
		}
	}
	return out, nil
}

// DeactivateInvite turns an invite link off. Owner only.
func (s *InviteService) DeactivateInvite(ctx context.Context, userID, inviteID string) error {
	tr := otel.Tracer("services/InviteService")
	ctx, span := tr.Start(ctx, "DeactivateInvite",
		trace.WithAttributes(attribute.String("invite.id", inviteID)),
	)
	defer span.End()

	inv, err := repo.GetInvite(ctx, s.DB, inviteID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInviteNotFound
		}
		return err
	}
	if err := s.Groups.requireOwner(ctx, userID, inv.GroupID); err != nil {
		return err
	}
	if err := repo.DeactivateInvite(ctx, s.DB, inviteID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInviteNotFound
		}
		return err
	}
	return nil
}

// redeemable loads an invite by token and rejects it when inactive, expired,
// or exhausted.
func (s *InviteService) redeemable(ctx context.Context, token string) (*domain.GroupInvite, error) {
	inv, err := repo.GetInviteByToken(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	if !inv.IsActive {
		return nil, ErrInviteInactive
	}
	if inv.Expired(s.now()) {
		return nil, ErrInviteExpired
	}
	if inv.Exhausted() {
		return nil, ErrInviteExhausted
	}
	return inv, nil
}

func (s *InviteService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
