// Package services defines the business logic for accounts, groups, channels,
// roles, and invite links. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrEmailDomainNotAllowed is returned when a registration email does not
	// belong to one of the configured allow-listed domains.
	ErrEmailDomainNotAllowed = errors.New("email domain not allowed")

	// ErrEmailTaken is returned when the registration email is already in use.
	ErrEmailTaken = errors.New("email already in use")

	// ErrInvalidCode is returned when a verification code is missing, expired,
	// or does not match the one issued for the email.
	ErrInvalidCode = errors.New("verification code invalid or expired")

	// ErrInvalidCredentials is returned on login with an unknown email or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Group- and channel-related errors.
var (
	// ErrGroupNotFound indicates that the requested group does not exist or
	// is not visible to the current user.
	ErrGroupNotFound = errors.New("group not found")

	// ErrChannelNotFound indicates that the requested channel does not exist.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrRoleNotFound indicates that the requested role does not exist in
	// the group.
	ErrRoleNotFound = errors.New("role not found")

	// ErrNotGroupMember is returned when the current user is not a member of
	// the group they are trying to read.
	ErrNotGroupMember = errors.New("not a member of this group")

	// ErrNotGroupOwner is returned when an operation reserved for the group
	// owner is attempted by someone else.
	ErrNotGroupOwner = errors.New("only the group owner may do this")

	// ErrPermissionDenied is returned when the member's role lacks the flag
	// required for the attempted operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAlreadyMember is returned when a user redeems an invite for a group
	// they already belong to.
	ErrAlreadyMember = errors.New("already a member of this group")

	// ErrEmptyName is returned when a group or channel is created or renamed
	// with a blank name.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrInvalidPermission is returned when a permission update names a flag
	// that does not exist.
	ErrInvalidPermission = errors.New("invalid permission")
)

// Invite-related errors.
var (
	// ErrInviteNotFound indicates an unknown invite token or id.
	ErrInviteNotFound = errors.New("invite not found")

	// ErrInviteInactive is returned for a deactivated invite link.
	ErrInviteInactive = errors.New("invite has been deactivated")

	// ErrInviteExpired is returned when the invite deadline has passed.
	ErrInviteExpired = errors.New("invite has expired")

	// ErrInviteExhausted is returned when the invite reached its use cap.
	ErrInviteExhausted = errors.New("invite has reached its use limit")

	// ErrInvalidExpiration is returned for an unknown expiration preset.
	ErrInvalidExpiration = errors.New("invalid expiration preset")

	// ErrInvalidUses is returned for an unknown use-cap preset.
	ErrInvalidUses = errors.New("invalid uses preset")
)
