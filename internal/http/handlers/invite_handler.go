package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createInviteRequest struct {
	Expiration string `json:"expiration" binding:"required"`
	MaxUses    string `json:"maxUses" binding:"required"`
}

// CreateInvite handles POST /groups/:groupId/invites. Owner only. Expiration
// and maxUses must be one of the documented presets.
func (h *Handlers) CreateInvite(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "expiration and maxUses presets are required")
		return
	}

	invite, err := h.inviteSvc.CreateInvite(c.Request.Context(), userID(c), c.Param("groupId"), req.Expiration, req.MaxUses)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create invite")
		}
		return
	}
	ok(c, http.StatusCreated, invite)
}

// ListInvites handles GET /groups/:groupId/invites. Owner only; each invite
// is annotated with its expired/exhausted status.
func (h *Handlers) ListInvites(c *gin.Context) {
	invites, err := h.inviteSvc.ListInvites(c.Request.Context(), userID(c), c.Param("groupId"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list invites")
		}
		return
	}
	ok(c, http.StatusOK, invites)
}

// DeactivateInvite handles DELETE /invites/:inviteId. Owner only.
func (h *Handlers) DeactivateInvite(c *gin.Context) {
	if err := h.inviteSvc.DeactivateInvite(c.Request.Context(), userID(c), c.Param("inviteId")); err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not deactivate invite")
		}
		return
	}
	noContent(c)
}

// ValidateInvite handles GET /invites/:token. Public; returns a preview card
// of the group behind a redeemable invite.
func (h *Handlers) ValidateInvite(c *gin.Context) {
	info, err := h.inviteSvc.ValidateInvite(c.Request.Context(), c.Param("token"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not validate invite")
		}
		return
	}
	ok(c, http.StatusOK, info)
}

// UseInvite handles POST /invites/:token/join. On success the caller becomes
// a member of the invite's group.
func (h *Handlers) UseInvite(c *gin.Context) {
	groupID, err := h.inviteSvc.UseInvite(c.Request.Context(), userID(c), c.Param("token"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not join group")
		}
		return
	}
	ok(c, http.StatusOK, gin.H{"group_id": groupID})
}
