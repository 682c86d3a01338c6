package feed

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := NewMemoryCache(time.Hour)
	c.now = func() time.Time { return now }

	if _, err := c.Get(ctx, "nba"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("empty cache Get err = %v, want ErrCacheMiss", err)
	}

	snap := &Snapshot{
		Events:    []Event{{EventID: "e1", Sport: "nba"}},
		FetchedAt: now,
	}
	if err := c.Set(ctx, "nba", snap); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, "nba")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Events) != 1 || got.Events[0].EventID != "e1" {
		t.Errorf("Get returned %+v", got)
	}

	// Beyond retention the entry is evicted, even as a stale fallback.
	now = now.Add(2 * time.Hour)
	if _, err := c.Get(ctx, "nba"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after retention err = %v, want ErrCacheMiss", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len after eviction = %d, want 0", c.Len())
	}
}

func TestSnapshotFreshWithin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := &Snapshot{FetchedAt: now.Add(-3 * time.Minute)}

	if !snap.FreshWithin(5*time.Minute, now) {
		t.Error("snapshot 3m old should be fresh within 5m TTL")
	}
	if snap.FreshWithin(2*time.Minute, now) {
		t.Error("snapshot 3m old should be stale for 2m TTL")
	}
}
