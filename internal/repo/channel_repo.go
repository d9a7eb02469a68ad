// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Channel
// model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convoy-chat/go-backend/internal/domain"
)

// CreateChannel inserts a new Channel row under groupID.
func CreateChannel(ctx context.Context, db *gorm.DB, groupID, name, description string, position int) (*domain.Channel, error) {
	c := &domain.Channel{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		Name:        name,
		Description: description,
		Position:    position,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetChannel fetches a single channel by ID, or ErrNotFound if missing.
func GetChannel(ctx context.Context, db *gorm.DB, id string) (*domain.Channel, error) {
	var c domain.Channel
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListGroupChannels returns the channels of a group ordered by position
// descending, mirroring the sidebar ordering clients expect.
func ListGroupChannels(ctx context.Context, db *gorm.DB, groupID string) ([]domain.Channel, error) {
	var out []domain.Channel
	err := db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("position desc").
		Find(&out).Error
	return out, err
}

// UpdateChannel applies the given fields to a channel. Returns ErrNotFound
// when the channel does not exist.
func UpdateChannel(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Channel{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteChannel soft-deletes a channel by ID. Returns ErrNotFound when the
// channel does not exist.
func DeleteChannel(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Channel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
