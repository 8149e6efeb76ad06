// Package cache keeps recently served forecast hours in memory in front of
// the snapshot store.
package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
)

// SnapshotStore is the store being cached.
type SnapshotStore interface {
	FetchGrid(ctx context.Context, forecastTime int) (domain.Snapshot, error)
	PutSnapshot(ctx context.Context, s domain.Snapshot) error
}

// CachedStore wraps a SnapshotStore with an in-memory LRU of snapshots keyed
// by forecast hour. Cached snapshots are shared and must not be modified.
type CachedStore struct {
	inner   SnapshotStore
	metrics *observability.Metrics

	mu       sync.Mutex
	hours    *lru.Cache[int, domain.Snapshot] // nil when caching is disabled
	versions map[int]uint64                   // bumped around every write of an hour
}

// New creates a cache decorator holding up to maxEntries forecast hours. A
// non-positive maxEntries disables caching.
func New(inner SnapshotStore, maxEntries int, metrics *observability.Metrics) *CachedStore {
	c := &CachedStore{
		inner:    inner,
		metrics:  metrics,
		versions: make(map[int]uint64),
	}
	if maxEntries > 0 {
		// lru.New only fails for a non-positive size.
		c.hours, _ = lru.New[int, domain.Snapshot](maxEntries)
	}
	return c
}

func (c *CachedStore) FetchGrid(ctx context.Context, forecastTime int) (domain.Snapshot, error) {
	c.mu.Lock()
	if c.hours != nil {
		if s, ok := c.hours.Get(forecastTime); ok {
			c.mu.Unlock()
			c.metrics.SnapshotCache.WithLabelValues("hit").Inc()
			return s, nil
		}
	}
	version := c.versions[forecastTime]
	c.mu.Unlock()
	c.metrics.SnapshotCache.WithLabelValues("miss").Inc()

	s, err := c.inner.FetchGrid(ctx, forecastTime)
	if err != nil {
		// Misses are not cached so a later ingest becomes visible immediately.
		return s, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A put that overlapped the fetch may have been read before it landed.
	if c.hours != nil && c.versions[forecastTime] == version {
		c.hours.Add(forecastTime, s)
	}
	return s, nil
}

// PutSnapshot writes through to the store and drops the cached hour. Fetches
// of the hour that overlap the write are served but not cached.
func (c *CachedStore) PutSnapshot(ctx context.Context, s domain.Snapshot) error {
	c.invalidate(s.ForecastTime)
	err := c.inner.PutSnapshot(ctx, s)
	c.invalidate(s.ForecastTime)
	return err
}

// Len returns the number of cached forecast hours.
func (c *CachedStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hours == nil {
		return 0
	}
	return c.hours.Len()
}

func (c *CachedStore) invalidate(forecastTime int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[forecastTime]++
	if c.hours != nil {
		c.hours.Remove(forecastTime)
	}
}
