package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubDirectory is a canned durable-store lookup. Each call is announced on
// calls (when set) so tests can synchronize with the detached backfill.
type stubDirectory struct {
	mu    sync.Mutex
	id    Identity
	err   error
	calls chan string
}

func (d *stubDirectory) FindUserByID(ctx context.Context, userID string) (Identity, error) {
	d.mu.Lock()
	id, err := d.id, d.err
	d.mu.Unlock()
	if d.calls != nil {
		d.calls <- userID
	}
	return id, err
}

func newTestDispatcher(dir UserDirectory) (*Dispatcher, *IdentityCache) {
	cache := NewIdentityCache()
	return NewDispatcher(NewRegistry(), cache, dir, zerolog.Nop(), time.Second, 16), cache
}

// envelope mirrors both server frame shapes for decoding in tests.
type envelope struct {
	Type      string          `json:"type"`
	Messages  []MessageRecord `json:"messages"`
	Data      MessageRecord   `json:"data"`
	GroupID   string          `json:"groupId"`
	ChannelID string          `json:"channelId"`
}

func nextFrame(t *testing.T, s *Session) envelope {
	t.Helper()
	select {
	case raw, ok := <-s.Outbound():
		if !ok {
			t.Fatalf("outbound channel closed while expecting a frame")
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("no frame queued within 1s")
	}
	return envelope{}
}

func TestAttach_EmptyRoomSendsEmptyHistory(t *testing.T) {
	d, _ := newTestDispatcher(&stubDirectory{})

	s, err := d.Attach("g1", "c1", "u1", "A", "")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer d.Detach(s)

	env := nextFrame(t, s)
	if env.Type != "history" || len(env.Messages) != 0 {
		t.Fatalf("first frame = %+v; want empty history", env)
	}
	if env.GroupID != "g1" || env.ChannelID != "c1" {
		t.Fatalf("history envelope room tags = %q/%q", env.GroupID, env.ChannelID)
	}
}

func TestSubmit_SelfDelivery(t *testing.T) {
	d, _ := newTestDispatcher(&stubDirectory{err: errors.New("down")})

	s, err := d.Attach("g1", "c1", "u1", "A", "")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer d.Detach(s)
	nextFrame(t, s) // history

	if err := d.Submit(s, "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	env := nextFrame(t, s)
	if env.Type != "message" {
		t.Fatalf("frame type = %q; want message", env.Type)
	}
	if env.Data.Message != "hi" || env.Data.Username != "A" || env.Data.UserID != "u1" {
		t.Fatalf("unexpected record: %+v", env.Data)
	}
	if env.Data.ID == "" || env.Data.Timestamp == 0 {
		t.Fatalf("record missing id or timestamp: %+v", env.Data)
	}
}

func TestAttach_HistoryPrecedesLiveMessages(t *testing.T) {
	d, _ := newTestDispatcher(&stubDirectory{})

	a, _ := d.Attach("g1", "c1", "u1", "A", "")
	defer d.Detach(a)
	nextFrame(t, a)
	if err := d.Submit(a, "first"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	b, _ := d.Attach("g1", "c1", "u2", "B", "")
	defer d.Detach(b)

	hist := nextFrame(t, b)
	if hist.Type != "history" {
		t.Fatalf("B's first frame type = %q; want history", hist.Type)
	}
	if len(hist.Messages) != 1 || hist.Messages[0].Message != "first" || hist.Messages[0].Username != "A" {
		t.Fatalf("B's history = %+v; want the one prior message from A", hist.Messages)
	}

	if err := d.Submit(a, "second"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	live := nextFrame(t, b)
	if live.Type != "message" || live.Data.Message != "second" {
		t.Fatalf("B's second frame = %+v; want live 'second'", live)
	}
}

func TestSubmit_FanoutReachesOtherSubscribers(t *testing.T) {
	d, _ := newTestDispatcher(&stubDirectory{})

	a, _ := d.Attach("g1", "c1", "u1", "A", "")
	b, _ := d.Attach("g1", "c1", "u2", "B", "")
	other, _ := d.Attach("g1", "c2", "u3", "C", "")
	defer d.Detach(a)
	defer d.Detach(b)
	defer d.Detach(other)
	nextFrame(t, a)
	nextFrame(t, b)
	nextFrame(t, other)

	if err := d.Submit(a, "hello room"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for _, s := range []*Session{a, b} {
		env := nextFrame(t, s)
		if env.Type != "message" || env.Data.Message != "hello room" {
			t.Fatalf("subscriber %q frame = %+v", s.Username, env)
		}
	}

	// A different channel in the same group is a different room.
	select {
	case raw := <-other.Outbound():
		t.Fatalf("session in another room received %s", raw)
	default:
	}
}

func TestSubmit_CacheMissFallsBackToAttachIdentity(t *testing.T) {
	dir := &stubDirectory{err: errors.New("store unreachable"), calls: make(chan string, 1)}
	d, cache := newTestDispatcher(dir)

	s, _ := d.Attach("g1", "c1", "u1", "attach-name", "")
	defer d.Detach(s)
	nextFrame(t, s)

	if err := d.Submit(s, "hi"); err != nil {
		t.Fatalf("Submit returned %v; lookup failures must not surface", err)
	}
	env := nextFrame(t, s)
	if env.Data.Username != "attach-name" || env.Data.UserAvatar != "" {
		t.Fatalf("fallback identity = %+v; want attach-time name", env.Data)
	}

	select {
	case id := <-dir.calls:
		if id != "u1" {
			t.Fatalf("backfill looked up %q; want u1", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("cache miss did not trigger a backfill lookup")
	}
	if cache.Len() != 0 {
		t.Fatalf("failed backfill populated the cache")
	}
}

func TestSubmit_BackfillPopulatesCacheForFutureMessages(t *testing.T) {
	dir := &stubDirectory{
		id:    Identity{UserID: "u1", Username: "durable-name", AvatarURL: "http://a/pic.png"},
		calls: make(chan string, 1),
	}
	d, cache := newTestDispatcher(dir)

	s, _ := d.Attach("g1", "c1", "u1", "attach-name", "")
	defer d.Detach(s)
	nextFrame(t, s)

	if err := d.Submit(s, "first"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	env := nextFrame(t, s)
	if env.Data.Username != "attach-name" {
		t.Fatalf("first message used %q; the miss must not block on the lookup", env.Data.Username)
	}

	<-dir.calls
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := cache.Lookup("u1"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("backfill never populated the cache")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := d.Submit(s, "second"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	env = nextFrame(t, s)
	if env.Data.Username != "durable-name" || env.Data.UserAvatar != "http://a/pic.png" {
		t.Fatalf("second message identity = %+v; want the cached durable record", env.Data)
	}
}

func TestSubmit_CachedIdentityOverridesAttachName(t *testing.T) {
	d, cache := newTestDispatcher(&stubDirectory{})
	cache.Store(Identity{UserID: "u1", Username: "cached-name", AvatarURL: "http://a/x.png"})

	s, _ := d.Attach("g1", "c1", "u1", "attach-name", "attach-avatar")
	defer d.Detach(s)
	nextFrame(t, s)

	if err := d.Submit(s, "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	env := nextFrame(t, s)
	if env.Data.Username != "cached-name" || env.Data.UserAvatar != "http://a/x.png" {
		t.Fatalf("identity = %+v; cache must win over attach parameters", env.Data)
	}
}

func TestSubmit_Validation(t *testing.T) {
	d, _ := newTestDispatcher(&stubDirectory{})
	s, _ := d.Attach("g1", "c1", "u1", "A", "")
	defer d.Detach(s)
	nextFrame(t, s)

	if err := d.Submit(s, ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Submit(\"\") err = %v; want ErrEmptyMessage", err)
	}
	if err := d.Submit(s, strings.Repeat("x", MaxMessageChars+1)); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("oversized Submit err = %v; want ErrMessageTooLong", err)
	}
	if err := d.Submit(s, strings.Repeat("x", MaxMessageChars)); err != nil {
		t.Fatalf("Submit at the exact limit err = %v; want nil", err)
	}
	if hist := d.History("g1", "c1"); len(hist) != 1 {
		t.Fatalf("rejected messages reached the buffer: %d records", len(hist))
	}
}

func TestSubmit_CapRetainsMostRecentThousand(t *testing.T) {
	d, _ := newTestDispatcher(&stubDirectory{})

	var seq int
	d.newID = func() string {
		seq++
		return fmt.Sprintf("m%d", seq)
	}
	base := time.Unix(1_700_000_000, 0)
	d.now = func() time.Time {
		return base.Add(time.Duration(seq) * time.Millisecond)
	}

	s, _ := d.Attach("g1", "c1", "u1", "A", "")
	defer d.Detach(s)
	nextFrame(t, s)

	for i := 0; i < maxMessagesPerRoom+5; i++ {
		if err := d.Submit(s, "msg"); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	hist := d.History("g1", "c1")
	if len(hist) != maxMessagesPerRoom {
		t.Fatalf("history length = %d; want %d", len(hist), maxMessagesPerRoom)
	}
	if hist[0].ID != "m6" {
		t.Fatalf("oldest retained = %q; want m6", hist[0].ID)
	}
	for i := 1; i < len(hist); i++ {
		if hist[i].Timestamp < hist[i-1].Timestamp {
			t.Fatalf("history out of order at %d", i)
		}
	}
}

func TestDetach_StopsDeliveryAndClosesOutbound(t *testing.T) {
	d, _ := newTestDispatcher(&stubDirectory{})

	a, _ := d.Attach("g1", "c1", "u1", "A", "")
	b, _ := d.Attach("g1", "c1", "u2", "B", "")
	defer d.Detach(a)
	nextFrame(t, a)
	nextFrame(t, b)

	d.Detach(b)
	d.Detach(b) // second detach is a no-op

	if _, ok := <-b.Outbound(); ok {
		t.Fatalf("outbound channel still open after detach")
	}

	if err := d.Submit(a, "after detach"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	env := nextFrame(t, a)
	if env.Data.Message != "after detach" {
		t.Fatalf("remaining subscriber frame = %+v", env)
	}

	// The room buffer outlives its sessions.
	if hist := d.History("g1", "c1"); len(hist) != 1 {
		t.Fatalf("history after detach = %d records; want 1", len(hist))
	}
}

func TestRegistry_SameKeySameRoom(t *testing.T) {
	reg := NewRegistry()
	if reg.Room("g1", "c1") != reg.Room("g1", "c1") {
		t.Fatalf("same pair returned different rooms")
	}
	if reg.Room("g1", "c1") == reg.Room("g1", "c2") {
		t.Fatalf("different channels share a room")
	}
	if reg.Len() != 2 {
		t.Fatalf("Len = %d; want 2", reg.Len())
	}
	if RoomKey("g1", "c1") != "g1:c1" {
		t.Fatalf("RoomKey = %q", RoomKey("g1", "c1"))
	}
}

func TestSubmit_ConcurrentSubmissionsSameRoom(t *testing.T) {
	d, _ := newTestDispatcher(&stubDirectory{})

	sessions := make([]*Session, 4)
	for i := range sessions {
		s, err := d.Attach("g1", "c1", fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i), "")
		if err != nil {
			t.Fatalf("Attach %d: %v", i, err)
		}
		sessions[i] = s
		defer d.Detach(s)
	}

	var wg sync.WaitGroup
	perSession := 25
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			for j := 0; j < perSession; j++ {
				if err := d.Submit(s, "load"); err != nil {
					t.Errorf("Submit: %v", err)
				}
			}
		}(s)
	}
	wg.Wait()

	hist := d.History("g1", "c1")
	if len(hist) != len(sessions)*perSession {
		t.Fatalf("history length = %d; want %d", len(hist), len(sessions)*perSession)
	}
	seen := make(map[string]struct{}, len(hist))
	for _, r := range hist {
		if _, dup := seen[r.ID]; dup {
			t.Fatalf("duplicate record id %q in history", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
}
