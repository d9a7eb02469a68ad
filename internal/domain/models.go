// Package domain defines the persistence models for users, groups, channels,
// roles, and invite links. These types are mapped with GORM and form the
// durable data layer of the group-chat platform. Realtime message records are
// deliberately not here: they live in-memory only (see internal/chat).
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Group status values.
const (
	GroupStatusActive   = "active"
	GroupStatusInactive = "inactive"
	GroupStatusArchived = "archived"
)

// User is an account on the platform. The chat core reads users only through
// the directory lookup used for identity backfill; it never writes them.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username: display name shown in chat.
//   - Email: unique login identifier.
//   - PasswordHash: bcrypt hash; never serialized.
type User struct {
	ID           string         `json:"id"       gorm:"type:char(36);primaryKey"`
	Username     string         `json:"username" gorm:"type:varchar(256);not null"`
	Email        string         `json:"email"    gorm:"type:varchar(256);not null;uniqueIndex"`
	PasswordHash string         `json:"-"        gorm:"type:text;not null"`
	AvatarURL    string         `json:"avatar_url,omitempty" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"        gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Group is a community owned by a user, containing channels and members.
type Group struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string         `json:"group_name"  gorm:"column:group_name;type:varchar(100);not null"`
	Description string         `json:"group_description" gorm:"column:group_description;type:varchar(1000);not null"`
	Avatar      string         `json:"group_avatar" gorm:"column:group_avatar;type:text;not null"`
	OwnerID     string         `json:"group_owner" gorm:"column:group_owner;type:char(36);not null;index"`
	Status      string         `json:"group_status" gorm:"column:group_status;type:varchar(16);not null;default:'active';check:group_status IN ('active','inactive','archived')"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`

	Owner User `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
}

// TableName returns the database table name for Group.
func (Group) TableName() string { return "groups" }

// Channel is a named conversation surface inside a group. Each channel backs
// exactly one realtime room; two channels never share a message buffer.
type Channel struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	GroupID     string         `json:"group_id"     gorm:"type:char(36);not null;index"`
	Name        string         `json:"channel_name" gorm:"column:channel_name;type:varchar(100);not null"`
	Description string         `json:"channel_description" gorm:"column:channel_description;type:varchar(1000);not null"`
	Position    int            `json:"position"     gorm:"not null;default:0"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	// Channels are cascade-deleted with their group.
	Group Group `json:"-" gorm:"foreignKey:GroupID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Channel.
func (Channel) TableName() string { return "channels" }

// GroupMember links a user to a group. The group owner gets a membership row
// at creation time; invite redemption adds one per redeemed user.
type GroupMember struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"  gorm:"type:char(36);not null;index;uniqueIndex:ux_member_user_group"`
	GroupID   string    `json:"group_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_member_user_group"`
	RoleID    *string   `json:"role_id,omitempty" gorm:"type:char(36)"`
	CreatedAt time.Time `json:"created_at"`

	User  User  `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Group Group `json:"-" gorm:"foreignKey:GroupID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for GroupMember.
func (GroupMember) TableName() string { return "user_groups" }

// GroupRole is a named, colored role scoped to one group.
type GroupRole struct {
	ID      string `json:"id"         gorm:"type:char(36);primaryKey"`
	GroupID string `json:"group_id"   gorm:"type:char(36);not null;index"`
	Name    string `json:"role_name"  gorm:"column:role_name;type:varchar(100);not null"`
	Color   string `json:"role_color" gorm:"column:role_color;type:varchar(16);not null"`

	Group Group `json:"-" gorm:"foreignKey:GroupID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for GroupRole.
func (GroupRole) TableName() string { return "group_roles" }

// GroupRolePermission holds the permission flags attached to a role. One row
// per role; IsAdmin short-circuits every other flag.
type GroupRolePermission struct {
	ID      string `json:"id"       gorm:"type:char(36);primaryKey"`
	GroupID string `json:"group_id" gorm:"type:char(36);not null;index"`
	RoleID  string `json:"role_id"  gorm:"type:char(36);not null;uniqueIndex"`
	IsAdmin bool   `json:"is_admin" gorm:"not null;default:false"`

	// Group management
	GroupCanManageRoles    bool `json:"group_can_manage_roles"    gorm:"not null;default:false"`
	GroupCanViewChannels   bool `json:"group_can_view_channels"   gorm:"not null;default:false"`
	GroupCanManageChannels bool `json:"group_can_manage_channels" gorm:"not null;default:false"`

	// Membership management
	MembersCanInvite bool `json:"members_can_invite" gorm:"not null;default:false"`
	MembersCanKick   bool `json:"members_can_kick"   gorm:"not null;default:false"`
	MembersCanBan    bool `json:"members_can_ban"    gorm:"not null;default:false"`

	// Chat permissions applied to every channel without a specific override
	ChatCanSendMessages   bool `json:"chat_can_send_messages"   gorm:"not null;default:false"`
	ChatCanSendLinks      bool `json:"chat_can_send_links"      gorm:"not null;default:false"`
	ChatCanSendFiles      bool `json:"chat_can_send_files"      gorm:"not null;default:false"`
	ChatCanManageMessages bool `json:"chat_can_manage_messages" gorm:"not null;default:false"`
	ChatCanPinMessages    bool `json:"chat_can_pin_messages"    gorm:"not null;default:false"`
	ChatCanViewHistory    bool `json:"chat_can_view_history"    gorm:"not null;default:false"`

	Role GroupRole `json:"-" gorm:"foreignKey:RoleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for GroupRolePermission.
func (GroupRolePermission) TableName() string { return "group_role_permissions" }

// GroupInvite is a shareable join link for a group with an expiration preset
// and an optional use cap.
//
// Fields:
//   - Token: unique, URL-safe invite token.
//   - ExpiresAt / ExpirationType: absolute deadline plus the preset it came from.
//   - MaxUses: nil means unlimited; UsesCount tracks redemptions.
//   - IsActive: owners can deactivate a link without deleting it.
type GroupInvite struct {
	ID             string    `json:"id"         gorm:"type:char(36);primaryKey"`
	GroupID        string    `json:"group_id"   gorm:"type:char(36);not null;index"`
	CreatedBy      string    `json:"created_by" gorm:"type:char(36);not null"`
	Token          string    `json:"token"      gorm:"type:varchar(256);not null;uniqueIndex"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"not null"`
	ExpirationType string    `json:"expiration_type" gorm:"type:varchar(16);not null"`
	MaxUses        *int      `json:"max_uses"   gorm:""`
	UsesCount      int       `json:"uses_count" gorm:"not null;default:0"`
	UsesType       string    `json:"uses_type"  gorm:"type:varchar(16);not null"`
	IsActive       bool      `json:"is_active"  gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Invites are cascade-deleted with their group.
	Group Group `json:"-" gorm:"foreignKey:GroupID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for GroupInvite.
func (GroupInvite) TableName() string { return "group_invites" }

// Expired reports whether the invite deadline has passed at t.
func (i GroupInvite) Expired(t time.Time) bool { return t.After(i.ExpiresAt) }

// Exhausted reports whether the invite has reached its use cap.
func (i GroupInvite) Exhausted() bool {
	return i.MaxUses != nil && i.UsesCount >= *i.MaxUses
}
