package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/convoy-chat/go-backend/internal/chat"
)

// WSHandler serves the realtime chat endpoint. It authorizes the connection,
// attaches a session to the channel's room, and hands the raw connection to
// the read/write pumps.
type WSHandler struct {
	dispatcher *chat.Dispatcher
	groups     GroupService
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler constructs a WSHandler. allowedOrigins restricts the
// handshake Origin; CORS does not cover websocket upgrades, so the check
// happens here. Empty means any origin.
func NewWSHandler(d *chat.Dispatcher, groups GroupService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		dispatcher: d,
		groups:     groups,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return originAllowed(r, allowedOrigins) },
		},
	}
}

// originAllowed reports whether the request's Origin header passes the
// allowlist. Requests without an Origin (non-browser clients) pass.
func originAllowed(r *http.Request, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// Serve handles GET /ws/chat/:groupId/:channelId. Identity travels in the
// userId, username, and userAvatar query parameters; membership of the group
// is checked before the upgrade.
func (h *WSHandler) Serve(c *gin.Context) {
	groupID := c.Param("groupId")
	channelID := c.Param("channelId")
	uid := strings.TrimSpace(c.Query("userId"))
	username := strings.TrimSpace(c.Query("username"))
	avatar := c.Query("userAvatar")

	if uid == "" || username == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId and username are required")
		return
	}

	member, err := h.groups.IsMember(c.Request.Context(), uid, groupID)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not verify membership")
		}
		return
	}
	if !member {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this group")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		h.log.Warn().Err(err).Str("request_id", c.GetString("requestID")).Msg("websocket upgrade failed")
		return
	}

	session, err := h.dispatcher.Attach(groupID, channelID, uid, username, avatar)
	if err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Str("channel_id", channelID).Msg("attach failed")
		_ = conn.Close()
		return
	}

	client := chat.NewClient(conn, session, h.dispatcher, h.log)
	go client.WritePump()
	go client.ReadPump()
}
