package server

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/specto/internal/services/portfolio"
)

// DefaultCacheTTL matches the dashboard refresh cadence: market data is
// end-of-day, so a short TTL only exists to absorb page reloads.
const DefaultCacheTTL = 5 * time.Minute

// Aggregator is the portfolio source behind the cache.
type Aggregator interface {
	Aggregate(ctx context.Context) (*portfolio.Summary, error)
}

// SnapshotCache serves the latest portfolio summary with a TTL, so dashboard
// reloads don't each hit the market-data provider.
type SnapshotCache struct {
	aggregator Aggregator
	ttl        time.Duration

	mu        sync.Mutex
	summary   *portfolio.Summary
	fetchedAt time.Time
}

// NewSnapshotCache creates a cache over the aggregator. ttl <= 0 uses
// DefaultCacheTTL.
func NewSnapshotCache(aggregator Aggregator, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SnapshotCache{
		aggregator: aggregator,
		ttl:        ttl,
	}
}

// Get returns the cached summary, refreshing it when stale. A refresh
// failure with a previously cached summary serves the stale copy.
func (c *SnapshotCache) Get(ctx context.Context) (*portfolio.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.summary != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.summary, nil
	}

	summary, err := c.aggregator.Aggregate(ctx)
	if err != nil {
		if c.summary != nil {
			return c.summary, nil
		}
		return nil, err
	}

	c.summary = summary
	c.fetchedAt = time.Now()
	return summary, nil
}

// Invalidate drops the cached summary so the next Get refetches.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = nil
}

// Age returns how old the cached summary is, or zero when empty.
func (c *SnapshotCache) Age() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return 0
	}
	return time.Since(c.fetchedAt)
}
