// Package services – GroupService
//
// This file implements group lifecycle and authorization: creation with
// automatic owner membership, member-scoped reads, owner-scoped mutation,
// and the role/permission model. Permission checks resolve the member's role
// permission row; the group owner and IsAdmin roles pass every check.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include group/user identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/convoy-chat/go-backend/internal/domain"
	"github.com/convoy-chat/go-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// permissionColumns enumerates the role permission flags accepted by
// UpdateRolePermissions. Keys are the database column names.
var permissionColumns = map[string]bool{
	"is_admin":                  true,
	"group_can_manage_roles":    true,
	"group_can_view_channels":   true,
	"group_can_manage_channels": true,
	"members_can_invite":        true,
	"members_can_kick":          true,
	"members_can_ban":           true,
	"chat_can_send_messages":    true,
	"chat_can_send_links":       true,
	"chat_can_send_files":       true,
	"chat_can_manage_messages":  true,
	"chat_can_pin_messages":     true,
	"chat_can_view_history":     true,
}

// GroupService coordinates group, membership, and role persistence.
type GroupService struct {
	DB *gorm.DB
}

// GroupUpdate carries the optional fields of a group update. Nil fields are
// left untouched.
type GroupUpdate struct {
	Name        *string
	Description *string
	Avatar      *string
	Status      *string
}

// CreateGroup creates a group owned by ownerID, who becomes its first member.
func (s *GroupService) CreateGroup(ctx context.Context, ownerID, name, description, avatar string) (*domain.Group, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "CreateGroup",
		trace.WithAttributes(attribute.String("user.id", ownerID)),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return repo.CreateGroup(ctx, s.DB, ownerID, name, description, avatar)
}

// GetGroup returns a group the user belongs to.
func (s *GroupService) GetGroup(ctx context.Context, userID, groupID string) (*domain.Group, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "GetGroup", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	g, err := repo.GetGroup(ctx, s.DB, groupID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return g, nil
}

// ListGroups returns every group the user is a member of, most recently
// joined first.
func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]domain.Group, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "ListGroups",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.ListUserGroups(ctx, s.DB, userID)
}

// UpdateGroup applies upd to a group. Owner only.
func (s *GroupService) UpdateGroup(ctx context.Context, userID, groupID string, upd GroupUpdate) (*domain.Group, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "UpdateGroup", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireOwner(ctx, userID, groupID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		fields["group_name"] = name
	}
	if upd.Description != nil {
		fields["group_description"] = *upd.Description
	}
	if upd.Avatar != nil {
		fields["group_avatar"] = *upd.Avatar
	}
	if upd.Status != nil {
		fields["group_status"] = *upd.Status
	}
	if err := repo.UpdateGroup(ctx, s.DB, groupID, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return repo.GetGroup(ctx, s.DB, groupID)
}

// DeleteGroup removes a group and, through cascades, its channels, roles,
// and invites. Owner only.
func (s *GroupService) DeleteGroup(ctx context.Context, userID, groupID string) error {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "DeleteGroup", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireOwner(ctx, userID, groupID); err != nil {
		return err
	}
	if err := repo.DeleteGroup(ctx, s.DB, groupID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	return nil
}

// ListMembers returns the group's membership, visible to members only.
func (s *GroupService) ListMembers(ctx context.Context, userID, groupID string) ([]domain.GroupMember, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "ListMembers", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return repo.ListGroupMembers(ctx, s.DB, groupID)
}

// IsMember reports whether userID belongs to groupID. The realtime attach
// handler uses it as its authorization gate.
func (s *GroupService) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	return repo.IsGroupMember(ctx, s.DB, groupID, userID)
}

// CreateRole adds a role (with an all-false permission row) to a group.
// Requires the manage-roles permission.
func (s *GroupService) CreateRole(ctx context.Context, userID, groupID, name, color string) (*domain.GroupRole, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "CreateRole", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireManageRoles(ctx, userID, groupID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return repo.CreateGroupRole(ctx, s.DB, groupID, name, color)
}

// ListRoles returns the group's roles, visible to members only.
func (s *GroupService) ListRoles(ctx context.Context, userID, groupID string) ([]domain.GroupRole, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "ListRoles", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return repo.ListGroupRoles(ctx, s.DB, groupID)
}

// GetRolePermissions returns the permission row of a role, visible to
// members only.
func (s *GroupService) GetRolePermissions(ctx context.Context, userID, groupID, roleID string) (*domain.GroupRolePermission, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "GetRolePermissions", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("role.id", roleID),
	))
	defer span.End()

	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	p, err := repo.GetRolePermissions(ctx, s.DB, roleID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	if p.GroupID != groupID {
		return nil, ErrRoleNotFound
	}
	return p, nil
}

// UpdateRolePermissions overwrites permission flags of a role. Requires the
// manage-roles permission.
func (s *GroupService) UpdateRolePermissions(ctx context.Context, userID, groupID, roleID string, flags map[string]bool) (*domain.GroupRolePermission, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "UpdateRolePermissions", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("role.id", roleID),
	))
	defer span.End()

	if err := s.requireManageRoles(ctx, userID, groupID); err != nil {
		return nil, err
	}
	cur, err := repo.GetRolePermissions(ctx, s.DB, roleID)
	if err != nil || cur.GroupID != groupID {
		return nil, ErrRoleNotFound
	}

	fields := make(map[string]any, len(flags))
	for col, v := range flags {
		if !permissionColumns[col] {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidPermission, col)
		}
		fields[col] = v
	}
	if len(fields) == 0 {
		return repo.GetRolePermissions(ctx, s.DB, roleID)
	}
	if err := repo.UpdateRolePermissions(ctx, s.DB, roleID, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return repo.GetRolePermissions(ctx, s.DB, roleID)
}

// AssignRole sets (or clears, with nil) the role of a member. Requires the
// manage-roles permission.
func (s *GroupService) AssignRole(ctx context.Context, actorID, groupID, memberUserID string, roleID *string) error {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "AssignRole", trace.WithAttributes(
		attribute.String("group.id", groupID),
		attribute.String("user.id", memberUserID),
	))
	defer span.End()

	if err := s.requireManageRoles(ctx, actorID, groupID); err != nil {
		return err
	}
	if roleID != nil {
		p, err := repo.GetRolePermissions(ctx, s.DB, *roleID)
		if err != nil || p.GroupID != groupID {
			return ErrRoleNotFound
		}
	}
	if err := repo.AssignMemberRole(ctx, s.DB, groupID, memberUserID, roleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotGroupMember
		}
		return err
	}
	return nil
}

// CanManageChannels reports whether userID may create, edit, or delete
// channels in groupID: the owner always may, otherwise the member's role
// needs IsAdmin or the manage-channels flag.
func (s *GroupService) CanManageChannels(ctx context.Context, userID, groupID string) error {
	perms, owner, err := s.memberPermissions(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if owner || (perms != nil && (perms.IsAdmin || perms.GroupCanManageChannels)) {
		return nil
	}
	return ErrPermissionDenied
}

func (s *GroupService) requireManageRoles(ctx context.Context, userID, groupID string) error {
	perms, owner, err := s.memberPermissions(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if owner || (perms != nil && (perms.IsAdmin || perms.GroupCanManageRoles)) {
		return nil
	}
	return ErrPermissionDenied
}

// memberPermissions resolves the caller's standing in the group: whether they
// own it, and the permission row of their assigned role, if any.
func (s *GroupService) memberPermissions(ctx context.Context, userID, groupID string) (*domain.GroupRolePermission, bool, error) {
	g, err := repo.GetGroup(ctx, s.DB, groupID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, ErrGroupNotFound
		}
		return nil, false, err
	}
	if g.OwnerID == userID {
		return nil, true, nil
	}

	var m domain.GroupMember
	err = s.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotGroupMember
		}
		return nil, false, err
	}
	if m.RoleID == nil {
		return nil, false, nil
	}
	perms, err := repo.GetRolePermissions(ctx, s.DB, *m.RoleID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return perms, false, nil
}

func (s *GroupService) requireMember(ctx context.Context, userID, groupID string) error {
	ok, err := repo.IsGroupMember(ctx, s.DB, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotGroupMember
	}
	return nil
}

func (s *GroupService) requireOwner(ctx context.Context, userID, groupID string) error {
	g, err := repo.GetGroup(ctx, s.DB, groupID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	if g.OwnerID != userID {
		return ErrNotGroupOwner
	}
	return nil
}
