package chat

import (
	"context"
	"sync"
	"time"
)

// Identity is one cached user display record.
type Identity struct {
	UserID    string
	Username  string
	Email     string
	AvatarURL string
	cachedAt  time.Time
}

// IdentityCache holds recently resolved user identities with a fixed TTL.
// Entries are evicted lazily on an expired lookup and in bulk by Sweep.
// All methods are safe for concurrent use.
type IdentityCache struct {
	mu      sync.RWMutex
	entries map[string]Identity

	// now is a clock seam for tests. Defaults to time.Now.
	now func() time.Time
}

// NewIdentityCache returns an empty identity cache.
func NewIdentityCache() *IdentityCache {
	return &IdentityCache{
		entries: make(map[string]Identity),
		now:     time.Now,
	}
}

// Lookup returns the non-expired entry for userID. An expired entry is
// evicted as a side effect and reported as a miss.
func (c *IdentityCache) Lookup(userID string) (Identity, bool) {
	c.mu.RLock()
	id, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return Identity{}, false
	}
	if c.now().Sub(id.cachedAt) > identityTTL {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Store may have
		// refreshed the entry since the read.
		if cur, ok := c.entries[userID]; ok && c.now().Sub(cur.cachedAt) > identityTTL {
			delete(c.entries, userID)
		}
		c.mu.Unlock()
		return Identity{}, false
	}
	return id, true
}

// Store inserts or refreshes the entry for id.UserID, resetting its age.
func (c *IdentityCache) Store(id Identity) {
	c.mu.Lock()
	id.cachedAt = c.now()
	c.entries[id.UserID] = id
	c.mu.Unlock()
}

// Sweep removes every entry older than the TTL and reports how many were
// evicted.
func (c *IdentityCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for key, id := range c.entries {
		if now.Sub(id.cachedAt) > identityTTL {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of entries currently held, expired or not.
func (c *IdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RunSweeper sweeps the cache every 30 minutes until ctx is done. Run it in
// its own goroutine.
func (c *IdentityCache) RunSweeper(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.Sweep(); n > 0 {
				identityCacheEvictions.Add(float64(n))
			}
		}
	}
}
