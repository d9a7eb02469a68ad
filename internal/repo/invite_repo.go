// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for group invite
// links.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convoy-chat/go-backend/internal/domain"
)

// CreateInvite inserts a new invite row. Token, deadline, and use caps are
// computed by the service layer; this function only persists them.
func CreateInvite(ctx context.Context, db *gorm.DB, inv *domain.GroupInvite) (*domain.GroupInvite, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(inv).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInviteByToken fetches an invite by its token, or ErrNotFound.
func GetInviteByToken(ctx context.Context, db *gorm.DB, token string) (*domain.GroupInvite, error) {
	var inv domain.GroupInvite
	if err := db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvite fetches an invite by ID, or ErrNotFound.
func GetInvite(ctx context.Context, db *gorm.DB, id string) (*domain.GroupInvite, error) {
	var inv domain.GroupInvite
	if err := db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListGroupInvites returns all invites of a group, oldest first.
func ListGroupInvites(ctx context.Context, db *gorm.DB, groupID string) ([]domain.GroupInvite, error) {
	var out []domain.GroupInvite
	err := db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// IncrementInviteUses bumps the use counter of an invite by one, guarding
// against concurrent redemptions racing past the cap: the WHERE clause
// re-checks the cap so an exhausted invite is never over-consumed.
// Returns ErrNotFound when no redeemable row matched.
func IncrementInviteUses(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.GroupInvite{}).
		Where("id = ? AND (max_uses IS NULL OR uses_count < max_uses)", id).
		Updates(map[string]any{
			"uses_count": gorm.Expr("uses_count + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeactivateInvite flips an invite inactive. Returns ErrNotFound when the
// invite does not exist.
func DeactivateInvite(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.GroupInvite{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
