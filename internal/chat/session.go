package chat

// Session is one realtime attachment to a single room. It lives from attach
// to disconnect; a reconnecting client gets a fresh session, never a resumed
// one. The outbound queue decouples fanout from transport writes so one slow
// subscriber cannot stall a room.
type Session struct {
	// Attach-time identity. Used as the display fallback whenever the
	// identity cache has no fresher entry for UserID.
	UserID   string
	Username string
	Avatar   string

	room   *Room
	send   chan []byte
	closed bool // guarded by room.mu
}

// GroupID returns the group of the room this session is attached to.
func (s *Session) GroupID() string { return s.room.groupID }

// ChannelID returns the channel of the room this session is attached to.
func (s *Session) ChannelID() string { return s.room.channelID }

// Outbound returns the frames queued for this session. The channel is closed
// exactly once, when the session is detached.
func (s *Session) Outbound() <-chan []byte { return s.send }

// enqueue offers a frame to the outbound queue without blocking. It reports
// false when the queue is full. Callers must hold s.room.mu and must not
// call after the session closed.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}
