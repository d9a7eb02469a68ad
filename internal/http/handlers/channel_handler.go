package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convoy-chat/go-backend/internal/services"
)

type createChannelRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	Position    int    `json:"position"`
}

type updateChannelRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Position    *int    `json:"position"`
}

// CreateChannel handles POST /groups/:groupId/channels. Requires the
// manage-channels permission.
func (h *Handlers) CreateChannel(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a channel name is required")
		return
	}

	channel, err := h.channelSvc.CreateChannel(c.Request.Context(), userID(c), c.Param("groupId"), req.Name, req.Description, req.Position)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create channel")
		}
		return
	}
	ok(c, http.StatusCreated, channel)
}

// ListChannels handles GET /groups/:groupId/channels.
func (h *Handlers) ListChannels(c *gin.Context) {
	channels, err := h.channelSvc.ListChannels(c.Request.Context(), userID(c), c.Param("groupId"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list channels")
		}
		return
	}
	ok(c, http.StatusOK, channels)
}

// GetChannel handles GET /groups/:groupId/channels/:channelId.
func (h *Handlers) GetChannel(c *gin.Context) {
	channel, err := h.channelSvc.GetChannel(c.Request.Context(), userID(c), c.Param("groupId"), c.Param("channelId"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load channel")
		}
		return
	}
	ok(c, http.StatusOK, channel)
}

// UpdateChannel handles PATCH /groups/:groupId/channels/:channelId.
func (h *Handlers) UpdateChannel(c *gin.Context) {
	var req updateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	channel, err := h.channelSvc.UpdateChannel(c.Request.Context(), userID(c), c.Param("groupId"), c.Param("channelId"), services.ChannelUpdate{
		Name:        req.Name,
		Description: req.Description,
		Position:    req.Position,
	})
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update channel")
		}
		return
	}
	ok(c, http.StatusOK, channel)
}

// DeleteChannel handles DELETE /groups/:groupId/channels/:channelId.
func (h *Handlers) DeleteChannel(c *gin.Context) {
	if err := h.channelSvc.DeleteChannel(c.Request.Context(), userID(c), c.Param("groupId"), c.Param("channelId")); err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete channel")
		}
		return
	}
	noContent(c)
}
