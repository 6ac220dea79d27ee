package havewecrashedyet

import (
	"errors"
	"sync"
	"time"
)

// ErrNoSnapshot is returned before the first successful fetch.
var ErrNoSnapshot = errors.New("no snapshot recorded yet")

// snapshotHistory is how many snapshots the cache keeps in memory for the
// feed and the dashboard.
const snapshotHistory = 200

// SnapshotCache is an in-memory view of recent snapshots with TTL, so the
// public handlers never hit SQLite on the hot path.
type SnapshotCache struct {
	mu      sync.RWMutex
	recent  []Snapshot
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewSnapshotCache creates a SnapshotCache backed by the given Store.
func NewSnapshotCache(s *Store, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{store: s, ttl: ttl}
}

func (c *SnapshotCache) valid() bool {
	return c.recent != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
// Called after every run that records a snapshot.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.recent = nil
	c.mu.Unlock()
}

// ensureLoaded returns cached snapshots after refreshing when stale.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *SnapshotCache) ensureLoaded() ([]Snapshot, error) {
	c.mu.RLock()
	if c.valid() {
		recent := c.recent
		c.mu.RUnlock()
		return recent, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.recent, nil
	}
	recent, err := c.store.ListRecentSnapshots(snapshotHistory)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []Snapshot{}
	}
	c.recent = recent
	c.fetched = time.Now()
	return c.recent, nil
}

// Latest returns the most recent snapshot.
func (c *SnapshotCache) Latest() (Snapshot, error) {
	recent, err := c.ensureLoaded()
	if err != nil {
		return Snapshot{}, err
	}
	if len(recent) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	return recent[0], nil
}

// Recent returns up to limit snapshots, newest first.
func (c *SnapshotCache) Recent(limit int) ([]Snapshot, error) {
	recent, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

// Changes returns the snapshots where the verdict flipped, newest first.
func (c *SnapshotCache) Changes() ([]Snapshot, error) {
	recent, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return StatusChanges(recent), nil
}
