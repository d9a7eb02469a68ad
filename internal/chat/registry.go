package chat

import "sync"

// Room is the realtime context of one (group, channel) pair: its message
// buffer plus the set of currently attached sessions. The room mutex guards
// both, so a history replay enqueued under the lock is totally ordered
// against every live broadcast in the same room.
type Room struct {
	key       string
	groupID   string
	channelID string

	mu          sync.Mutex
	buf         buffer
	subscribers map[*Session]struct{}
}

// Registry maps room keys to rooms. Rooms are created lazily on first access
// and live for the rest of the process; memory is bounded by each room's
// retention policy, not by room eviction.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry returns an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Room returns the room for the given pair, creating it empty on first use.
// The same pair always yields the same instance.
func (r *Registry) Room(groupID, channelID string) *Room {
	key := RoomKey(groupID, channelID)
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[key]
	if !ok {
		room = &Room{
			key:         key,
			groupID:     groupID,
			channelID:   channelID,
			subscribers: make(map[*Session]struct{}),
		}
		r.rooms[key] = room
	}
	return room
}

// Len reports the number of rooms created so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
