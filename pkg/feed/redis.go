package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a SnapshotCache backed by Redis, for deployments where
// several engine processes share one feed quota. Snapshots are stored as
// JSON under "snapshot:{key}" with a retention-based expiry.
type RedisCache struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewRedisCache creates a RedisCache on an existing client. Retention
// bounds how long a stale snapshot remains available as a fallback.
func NewRedisCache(rdb *redis.Client, retention time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, retention: retention}
}

func snapshotKey(key string) string {
	return "snapshot:" + key
}

// Get returns the cached snapshot for key, or ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) (*Snapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get snapshot %s: %w", key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("redis: decode snapshot %s: %w", key, err)
	}
	return &snap, nil
}

// Set stores a snapshot under key.
func (c *RedisCache) Set(ctx context.Context, key string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: encode snapshot %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, snapshotKey(key), data, c.retention).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", key, err)
	}
	return nil
}
