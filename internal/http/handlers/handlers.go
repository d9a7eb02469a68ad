// Handler wiring for the public API.
//
// Handlers are transport-thin: they validate input, call application services
// through the interfaces below, and translate results into HTTP responses.
// Service errors are mapped to the stable error codes in errors.go.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convoy-chat/go-backend/internal/domain"
	"github.com/convoy-chat/go-backend/internal/http/middleware"
	"github.com/convoy-chat/go-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService defines the registration and login operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use.
type AuthService interface {
	RequestVerificationCode(ctx context.Context, email string) (string, error)
	VerifyCode(ctx context.Context, email, code string) (string, error)
	Register(ctx context.Context, verificationToken, username, password, avatarURL string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// GroupService defines group, membership, and role operations.
type GroupService interface {
	CreateGroup(ctx context.Context, ownerID, name, description, avatar string) (*domain.Group, error)
	GetGroup(ctx context.Context, userID, groupID string) (*domain.Group, error)
	ListGroups(ctx context.Context, userID string) ([]domain.Group, error)
	UpdateGroup(ctx context.Context, userID, groupID string, upd services.GroupUpdate) (*domain.Group, error)
	DeleteGroup(ctx context.Context, userID, groupID string) error
	ListMembers(ctx context.Context, userID, groupID string) ([]domain.GroupMember, error)
	IsMember(ctx context.Context, userID, groupID string) (bool, error)
	CreateRole(ctx context.Context, userID, groupID, name, color string) (*domain.GroupRole, error)
	ListRoles(ctx context.Context, userID, groupID string) ([]domain.GroupRole, error)
	GetRolePermissions(ctx context.Context, userID, groupID, roleID string) (*domain.GroupRolePermission, error)
	UpdateRolePermissions(ctx context.Context, userID, groupID, roleID string, flags map[string]bool) (*domain.GroupRolePermission, error)
	AssignRole(ctx context.Context, actorID, groupID, memberUserID string, roleID *string) error
}

// ChannelService defines channel lifecycle operations.
type ChannelService interface {
	CreateChannel(ctx context.Context, userID, groupID, name, description string, position int) (*domain.Channel, error)
	GetChannel(ctx context.Context, userID, groupID, channelID string) (*domain.Channel, error)
	ListChannels(ctx context.Context, userID, groupID string) ([]domain.Channel, error)
	UpdateChannel(ctx context.Context, userID, groupID, channelID string, upd services.ChannelUpdate) (*domain.Channel, error)
	DeleteChannel(ctx context.Context, userID, groupID, channelID string) error
}

// InviteService defines the invite-link lifecycle operations.
type InviteService interface {
	CreateInvite(ctx context.Context, userID, groupID, expirationType, usesType string) (*domain.GroupInvite, error)
	ValidateInvite(ctx context.Context, token string) (*services.InviteInfo, error)
	UseInvite(ctx context.Context, userID, token string) (string, error)
	ListInvites(ctx context.Context, userID, groupID string) ([]services.InviteStatus, error)
	DeactivateInvite(ctx context.Context, userID, inviteID string) error
}

// UserService defines profile reads.
type UserService interface {
	Profile(ctx context.Context, userID string) (*services.Profile, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for accounts, groups, channels, and
// invites. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	authSvc    AuthService
	groupSvc   GroupService
	channelSvc ChannelService
	inviteSvc  InviteService
	userSvc    UserService
}

// New constructs a Handlers instance bound to the given services.
func New(auth AuthService, groups GroupService, channels ChannelService, invites InviteService, users UserService) *Handlers {
	return &Handlers{
		authSvc:    auth,
		groupSvc:   groups,
		channelSvc: channels,
		inviteSvc:  invites,
		userSvc:    users,
	}
}

// userID extracts the authenticated user id from the Gin context (set by the
// auth middleware).
func userID(c *gin.Context) string {
	return middleware.UserIDFrom(c)
}

// failService translates well-known service errors into HTTP responses. It
// reports whether err was handled; callers fall back to a 500 otherwise.
func failService(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrChannelNotFound),
		errors.Is(err, services.ErrRoleNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrInviteNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrNotGroupMember),
		errors.Is(err, services.ErrNotGroupOwner),
		errors.Is(err, services.ErrPermissionDenied):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrAlreadyMember):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrEmptyName),
		errors.Is(err, services.ErrInvalidPermission),
		errors.Is(err, services.ErrInvalidExpiration),
		errors.Is(err, services.ErrInvalidUses):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrInviteExpired):
		fail(c, http.StatusGone, ErrCodeInviteExpired, err.Error())
	case errors.Is(err, services.ErrInviteExhausted):
		fail(c, http.StatusGone, ErrCodeInviteExhausted, err.Error())
	case errors.Is(err, services.ErrInviteInactive):
		fail(c, http.StatusGone, ErrCodeInviteInactive, err.Error())
	default:
		return false
	}
	return true
}
