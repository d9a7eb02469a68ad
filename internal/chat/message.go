// Package chat implements the realtime message delivery core: per-room
// bounded message buffers, the room registry with its subscriber sets, the
// TTL-based identity cache, and the fanout dispatcher that ties them together.
//
// Everything here is in-memory and process-local. Messages do not survive a
// restart and rooms are never shared across processes; durability and
// scale-out are out of scope for this subsystem. The HTTP layer owns payload
// validation and authentication; this package trusts the attach parameters
// it is handed.
package chat

import "time"

// Wire-compatibility constants. Clients and the retention policy depend on
// these exact values.
const (
	// identityTTL is how long a cached identity stays valid.
	identityTTL = time.Hour

	// sweepInterval is the period of the background cache sweep.
	sweepInterval = 30 * time.Minute

	// retentionWindow is the maximum age of a buffered message.
	retentionWindow = 24 * time.Hour

	// maxMessagesPerRoom caps each room buffer after window pruning.
	maxMessagesPerRoom = 1000

	// MaxMessageChars bounds the text payload of a single message.
	MaxMessageChars = 2000
)

// MessageRecord is one buffered chat message as delivered to clients.
// Username and UserAvatar are resolved once at submission time and never
// rewritten, even if the sender's identity changes later.
type MessageRecord struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
	GroupID    string `json:"groupId"`
	ChannelID  string `json:"channelId"`
	UserAvatar string `json:"userAvatar,omitempty"`
}

// historyEnvelope is sent once per connection, immediately after attach.
type historyEnvelope struct {
	Type      string          `json:"type"`
	Messages  []MessageRecord `json:"messages"`
	GroupID   string          `json:"groupId"`
	ChannelID string          `json:"channelId"`
}

// messageEnvelope carries one live message to the sender and to every other
// subscriber of the room.
type messageEnvelope struct {
	Type      string        `json:"type"`
	Data      MessageRecord `json:"data"`
	GroupID   string        `json:"groupId"`
	ChannelID string        `json:"channelId"`
}

// inboundFrame is the single client-to-server frame shape.
type inboundFrame struct {
	Message string `json:"message"`
}

// RoomKey builds the registry key for a (group, channel) pair. Distinct
// channels always map to distinct rooms.
func RoomKey(groupID, channelID string) string {
	return groupID + ":" + channelID
}
