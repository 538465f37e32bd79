package manifest

import (
	"sync"
	"time"
)

type cacheEntry struct {
	record    Record
	fetchedAt time.Time
}

// Cache is an in-memory TTL cache of resolved manifests keyed by channel.
// Expiry is evaluated at read time; expired entries are superseded by the
// next successful Put rather than evicted by a background goroutine.
// Failures are never cached.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[Channel]cacheEntry

	now func() time.Time // test hook
}

// NewCache creates a cache with the given freshness window.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[Channel]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the fresh record for the channel, or ok=false when
// the entry is absent or older than the TTL.
func (c *Cache) Get(ch Channel) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ch]
	if !ok || c.now().Sub(e.fetchedAt) > c.ttl {
		return nil, false
	}
	rec := e.record
	return &rec, true
}

// Put stores a successfully resolved record, stamped now.
func (c *Cache) Put(ch Channel, rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ch] = cacheEntry{record: rec, fetchedAt: c.now()}
}

// Invalidate drops the entry for one channel.
func (c *Cache) Invalidate(ch Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ch)
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
