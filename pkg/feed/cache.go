package feed

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned when a snapshot is not in the cache.
var ErrCacheMiss = errors.New("feed: cache miss")

// SnapshotCache stores feed snapshots. Entries carry their fetch time;
// freshness versus a TTL is the caller's decision, so an expired entry is
// still retrievable as a stale fallback when the feed is unavailable.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Set(ctx context.Context, key string, snap *Snapshot) error
}

// memoryEntry pairs a snapshot with its insertion time for eviction.
type memoryEntry struct {
	snap     *Snapshot
	storedAt time.Time
}

// MemoryCache is an in-process SnapshotCache. Entries older than the
// retention period are evicted on access; overwrites replace in place.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	retention time.Duration
	now       func() time.Time
}

// NewMemoryCache creates a MemoryCache. Retention bounds how long a stale
// snapshot remains usable as a feed-outage fallback; zero means keep
// forever.
func NewMemoryCache(retention time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:   make(map[string]memoryEntry),
		retention: retention,
		now:       time.Now,
	}
}

// Get returns the cached snapshot for key, or ErrCacheMiss.
func (c *MemoryCache) Get(ctx context.Context, key string) (*Snapshot, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if c.retention > 0 && c.now().Sub(e.storedAt) > c.retention {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return e.snap, nil
}

// Set stores a snapshot under key.
func (c *MemoryCache) Set(ctx context.Context, key string, snap *Snapshot) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{snap: snap, storedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached snapshots.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
