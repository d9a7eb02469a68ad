// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for groups,
// memberships, and roles.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convoy-chat/go-backend/internal/domain"
)

// CreateGroup inserts a new Group row owned by ownerID and, in the same
// transaction, a membership row for the owner.
func CreateGroup(ctx context.Context, db *gorm.DB, ownerID, name, description, avatar string) (*domain.Group, error) {
	g := &domain.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Avatar:      avatar,
		OwnerID:     ownerID,
		Status:      domain.GroupStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		m := &domain.GroupMember{
			ID:        uuid.NewString(),
			UserID:    ownerID,
			GroupID:   g.ID,
			CreatedAt: time.Now().UTC(),
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetGroup fetches a single group by ID, or ErrNotFound if missing.
func GetGroup(ctx context.Context, db *gorm.DB, id string) (*domain.Group, error) {
	var g domain.Group
	if err := db.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// ListUserGroups returns every group the user is a member of, most recently
// joined first.
func ListUserGroups(ctx context.Context, db *gorm.DB, userID string) ([]domain.Group, error) {
	var out []domain.Group
	err := db.WithContext(ctx).
		Joins("JOIN user_groups ON user_groups.group_id = groups.id").
		Where("user_groups.user_id = ?", userID).
		Order("user_groups.created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateGroup applies non-empty fields to a group. If no rows are affected
// (group missing), it returns ErrNotFound. Ownership is enforced by the
// service layer before this call.
func UpdateGroup(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Group{}).
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

// DeleteGroup soft-deletes a group by ID. Returns ErrNotFound when the group
// does not exist.
func DeleteGroup(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Group{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddGroupMember inserts a membership row for userID in groupID. Duplicate
// memberships violate the unique index and surface as a DB error.
func AddGroupMember(ctx context.Context, db *gorm.DB, groupID, userID string) (*domain.GroupMember, error) {
	m := &domain.GroupMember{
		ID:        uuid.NewString(),
		UserID:    userID,
		GroupID:   groupID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// IsGroupMember reports whether userID holds a membership row in groupID.
func IsGroupMember(ctx context.Context, db *gorm.DB, groupID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	return n > 0, err
}

// ListGroupMembers returns the membership rows of a group with their users
// preloaded, oldest membership first.
func ListGroupMembers(ctx context.Context, db *gorm.DB, groupID string) ([]domain.GroupMember, error) {
	var out []domain.GroupMember
	err := db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CreateGroupRole inserts a role and its (all-false) permission row in one
// transaction, returning the role.
func CreateGroupRole(ctx context.Context, db *gorm.DB, groupID, name, color string) (*domain.GroupRole, error) {
	r := &domain.GroupRole{
		ID:      uuid.NewString(),
		GroupID: groupID,
		Name:    name,
		Color:   color,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		p := &domain.GroupRolePermission{
			ID:      uuid.NewString(),
			GroupID: groupID,
			RoleID:  r.ID,
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListGroupRoles returns all roles of a group.
func ListGroupRoles(ctx context.Context, db *gorm.DB, groupID string) ([]domain.GroupRole, error) {
	var out []domain.GroupRole
	err := db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("role_name asc").
		Find(&out).Error
	return out, err
}

// GetRolePermissions fetches the permission row for a role, or ErrNotFound.
func GetRolePermissions(ctx context.Context, db *gorm.DB, roleID string) (*domain.GroupRolePermission, error) {
	var p domain.GroupRolePermission
	if err := db.WithContext(ctx).Where("role_id = ?", roleID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateRolePermissions overwrites the permission flags of a role. Returns
// ErrNotFound when the role has no permission row.
func UpdateRolePermissions(ctx context.Context, db *gorm.DB, roleID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.GroupRolePermission{}).
		Where("role_id = ?", roleID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AssignMemberRole sets (or clears, with nil) the role of a group member.
// Returns ErrNotFound when the membership row does not exist.
func AssignMemberRole(ctx context.Context, db *gorm.DB, groupID, userID string, roleID *string) error {
	res := db.WithContext(ctx).
		Model(&domain.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("role_id", roleID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
