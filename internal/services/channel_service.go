// Package services – ChannelService
//
// This file implements channel lifecycle inside a group. Reads are
// member-scoped; mutation requires the manage-channels permission resolved
// through GroupService.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/convoy-chat/go-backend/internal/domain"
	"github.com/convoy-chat/go-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChannelService coordinates channel persistence and authorization.
type ChannelService struct {
	DB     *gorm.DB
	Groups *GroupService
}

// ChannelUpdate carries the optional fields of a channel update. Nil fields
// are left untouched.
type ChannelUpdate struct {
	Name        *string
	Description *string
	Position    *int
}

// CreateChannel adds a channel to a group.
func (s *ChannelService) CreateChannel(ctx context.Context, userID, groupID, name, description string, position int) (*domain.Channel, error) {
	tr := otel.Tracer("services/ChannelService")
	ctx, span := tr.Start(ctx, "CreateChannel", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.Groups.CanManageChannels(ctx, userID, groupID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return repo.CreateChannel(ctx, s.DB, groupID, name, description, position)
}

// GetChannel returns one channel of a group the user belongs to.
func (s *ChannelService) GetChannel(ctx context.Context, userID, groupID, channelID string) (*domain.Channel, error) {
	tr := otel.Tracer("services/ChannelService")
	ctx, span := tr.Start(ctx, "GetChannel", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("channel.id", channelID),
	))
	defer span.End()

	if err := s.Groups.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	ch, err := repo.GetChannel(ctx, s.DB, channelID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	if ch.GroupID != groupID {
		return nil, ErrChannelNotFound
	}
	return ch, nil
}

// ListChannels returns the group's channels, highest position first.
func (s *ChannelService) ListChannels(ctx context.Context, userID, groupID string) ([]domain.Channel, error) {
	tr := otel.Tracer("services/ChannelService")
	ctx, span := tr.Start(ctx, "ListChannels", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.Groups.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return repo.ListGroupChannels(ctx, s.DB, groupID)
}

// UpdateChannel applies upd to a channel.
func (s *ChannelService) UpdateChannel(ctx context.Context, userID, groupID, channelID string, upd ChannelUpdate) (*domain.Channel, error) {
	tr := otel.Tracer("services/ChannelService")
	ctx, span := tr.Start(ctx, "UpdateChannel", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("channel.id", channelID),
	))
	defer span.End()

	if err := s.Groups.CanManageChannels(ctx, userID, groupID); err != nil {
		return nil, err
	}
	if _, err := s.findInGroup(ctx, groupID, channelID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		fields["channel_name"] = name
	}
	if upd.Description != nil {
		fields["channel_description"] = *upd.Description
	}
	if upd.Position != nil {
		fields["position"] = *upd.Position
	}
	if err := repo.UpdateChannel(ctx, s.DB, channelID, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	return repo.GetChannel(ctx, s.DB, channelID)
}

// DeleteChannel removes a channel. The room buffer held by the realtime core
// for this channel is untouched; it simply stops receiving traffic.
func (s *ChannelService) DeleteChannel(ctx context.Context, userID, groupID, channelID string) error {
	tr := otel.Tracer("services/ChannelService")
	ctx, span := tr.Start(ctx, "DeleteChannel", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("channel.id", channelID),
	))
	defer span.End()

	if err := s.Groups.CanManageChannels(ctx, userID, groupID); err != nil {
		return err
	}
	if _, err := s.findInGroup(ctx, groupID, channelID); err != nil {
		return err
	}
	if err := repo.DeleteChannel(ctx, s.DB, channelID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrChannelNotFound
		}
		return err
	}
	return nil
}

func (s *ChannelService) findInGroup(ctx context.Context, groupID, channelID string) (*domain.Channel, error) {
	ch, err := repo.GetChannel(ctx, s.DB, channelID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	if ch.GroupID != groupID {
		return nil, ErrChannelNotFound
	}
	return ch, nil
}
