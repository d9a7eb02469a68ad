package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Validation failures surfaced to the protocol layer before any room state
// is touched.
var (
	ErrEmptyMessage   = errors.New("chat: empty message")
	ErrMessageTooLong = fmt.Errorf("chat: message exceeds %d characters", MaxMessageChars)
)

// UserDirectory resolves a user id against the durable user store. The
// dispatcher calls it only off the delivery path, as a cache-miss backfill.
type UserDirectory interface {
	FindUserByID(ctx context.Context, userID string) (Identity, error)
}

// Dispatcher routes attach, submit, and detach events through the room
// registry, the identity cache, and the subscriber sets. One dispatcher
// serves the whole process; all methods are safe for concurrent use.
//
// LookupTimeout and SendBuffer are fixed at construction. The identity
// backfill is bounded by LookupTimeout so a hung durable store cannot pile
// up goroutines indefinitely.
type Dispatcher struct {
	registry  *Registry
	cache     *IdentityCache
	directory UserDirectory
	log       zerolog.Logger

	lookupTimeout time.Duration
	sendBuffer    int

	// Seams for tests. Default to time.Now and uuid.NewString.
	now   func() time.Time
	newID func() string
}

// NewDispatcher wires a dispatcher over the given registry, cache, and user
// directory. lookupTimeout bounds the asynchronous identity backfill;
// sendBuffer sizes each session's outbound queue. Non-positive values fall
// back to 5s and 256.
func NewDispatcher(reg *Registry, cache *IdentityCache, dir UserDirectory, log zerolog.Logger, lookupTimeout time.Duration, sendBuffer int) *Dispatcher {
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Dispatcher{
		registry:      reg,
		cache:         cache,
		directory:     dir,
		log:           log,
		lookupTimeout: lookupTimeout,
		sendBuffer:    sendBuffer,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Attach subscribes a new session to the room for (groupID, channelID) and
// queues the room's current history as the session's first outbound frame.
// The subscription and the history snapshot happen under the room lock, so
// every live message broadcast after Attach returns is queued strictly after
// the history envelope.
func (d *Dispatcher) Attach(groupID, channelID, userID, username, avatar string) (*Session, error) {
	room := d.registry.Room(groupID, channelID)
	s := &Session{
		UserID:   userID,
		Username: username,
		Avatar:   avatar,
		room:     room,
		send:     make(chan []byte, d.sendBuffer),
	}

	room.mu.Lock()
	hist := room.buf.history(d.now())
	frame, err := json.Marshal(historyEnvelope{
		Type:      "history",
		Messages:  hist,
		GroupID:   groupID,
		ChannelID: channelID,
	})
	if err != nil {
		room.mu.Unlock()
		return nil, fmt.Errorf("chat: marshal history: %w", err)
	}
	room.subscribers[s] = struct{}{}
	s.enqueue(frame) // queue is empty; a fresh session always has room
	room.mu.Unlock()

	connectionsActive.Inc()
	d.log.Debug().
		Str("group_id", groupID).
		Str("channel_id", channelID).
		Str("user_id", userID).
		Int("history_len", len(hist)).
		Msg("session attached")
	return s, nil
}

// Submit accepts one message from s, resolves the sender's display identity,
// buffers the record, and fans the envelope out to the room. The sender is
// delivered to directly, so it sees its own message even with no other
// subscribers. A full subscriber queue drops that one delivery; it never
// aborts the rest of the fanout.
func (d *Dispatcher) Submit(s *Session, text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if len([]rune(text)) > MaxMessageChars {
		return ErrMessageTooLong
	}

	username, avatar := s.Username, s.Avatar
	if id, ok := d.cache.Lookup(s.UserID); ok {
		// The cache wins over attach-time identity for this message.
		username, avatar = id.Username, id.AvatarURL
		identityLookups.WithLabelValues("hit").Inc()
	} else {
		identityLookups.WithLabelValues("miss").Inc()
		go d.backfill(s.UserID)
	}

	now := d.now()
	rec := MessageRecord{
		ID:         d.newID(),
		UserID:     s.UserID,
		Username:   username,
		Message:    text,
		Timestamp:  now.UnixMilli(),
		GroupID:    s.room.groupID,
		ChannelID:  s.room.channelID,
		UserAvatar: avatar,
	}
	frame, err := json.Marshal(messageEnvelope{
		Type:      "message",
		Data:      rec,
		GroupID:   rec.GroupID,
		ChannelID: rec.ChannelID,
	})
	if err != nil {
		return fmt.Errorf("chat: marshal message: %w", err)
	}

	room := s.room
	room.mu.Lock()
	room.buf.append(rec, now)
	if !s.closed && !s.enqueue(frame) {
		deliveriesDropped.Inc()
	}
	for sub := range room.subscribers {
		if sub == s {
			continue
		}
		if !sub.enqueue(frame) {
			deliveriesDropped.Inc()
			d.log.Warn().
				Str("room", room.key).
				Str("user_id", sub.UserID).
				Msg("subscriber queue full, dropping delivery")
		}
	}
	room.mu.Unlock()

	messagesSubmitted.Inc()
	return nil
}

// Detach removes s from its room's subscriber set and closes its outbound
// channel. Safe to call more than once; only the first call has an effect.
// The room buffer is untouched, so history survives for future sessions.
func (d *Dispatcher) Detach(s *Session) {
	room := s.room
	room.mu.Lock()
	if s.closed {
		room.mu.Unlock()
		return
	}
	s.closed = true
	delete(room.subscribers, s)
	close(s.send)
	room.mu.Unlock()

	connectionsActive.Dec()
	d.log.Debug().
		Str("room", room.key).
		Str("user_id", s.UserID).
		Msg("session detached")
}

// History returns the current buffer of the (groupID, channelID) room,
// oldest first. A never-used room yields an empty slice.
func (d *Dispatcher) History(groupID, channelID string) []MessageRecord {
	room := d.registry.Room(groupID, channelID)
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.buf.history(d.now())
}

// backfill resolves userID against the durable store and, on success, writes
// the identity into the cache for future messages. It runs detached from the
// submission that triggered it; failure is logged and otherwise ignored.
func (d *Dispatcher) backfill(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.lookupTimeout)
	defer cancel()
	id, err := d.directory.FindUserByID(ctx, userID)
	if err != nil {
		backfillFailures.Inc()
		d.log.Warn().Err(err).Str("user_id", userID).Msg("identity backfill failed")
		return
	}
	d.cache.Store(id)
}
