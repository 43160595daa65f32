// Package multicache provides a multi-tiered Storage implementation that
// cascades through several backends with automatic promotion of hits to
// faster tiers. This allows sophisticated caching strategies combining
// backends with different performance and persistence characteristics.
package multicache

import (
	"context"
	"time"

	httpcache "github.com/go-httpcache/httpcache"
)

// MultiCache implements a multi-tiered caching strategy where tiers are
// ordered from fastest/smallest (first) to slowest/largest (last). On reads,
// it searches each tier in order and promotes found values to faster tiers.
// On writes, it stores to all tiers.
//
// Example use case:
//   - Tier 1: in-process memory (fast, small, volatile)
//   - Tier 2: Redis (medium speed, larger, shared)
//   - Tier 3: disk or blob storage (slower, largest, durable)
type MultiCache struct {
	tiers []httpcache.Storage
}

// New creates a MultiCache with the specified tiers, ordered from
// fastest/smallest to slowest/largest. Returns nil if no tiers are
// provided, any tier is nil, or a duplicate tier is detected.
func New(tiers ...httpcache.Storage) *MultiCache {
	if len(tiers) == 0 {
		return nil
	}

	seen := make(map[httpcache.Storage]bool)
	for _, tier := range tiers {
		if tier == nil {
			return nil
		}
		if seen[tier] {
			return nil
		}
		seen[tier] = true
	}

	return &MultiCache{tiers: tiers}
}

// Get searches each tier in order, starting with the fastest. When a value
// is found in a slower tier, it is promoted (written with a ttl of 0, i.e.
// without expiry) to every faster tier for subsequent quick access.
func (c *MultiCache) Get(ctx context.Context, key string) (string, bool, error) {
	for i, tier := range c.tiers {
		value, ok, err := tier.Get(ctx, key)
		if err != nil {
			return "", false, err
		}
		if ok {
			_ = c.promoteToFasterTiers(ctx, key, value, i) //nolint:errcheck // promotion is best-effort
			return value, true, nil
		}
	}
	return "", false, nil
}

// Set stores value in every tier with the given ttl.
func (c *MultiCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	for _, tier := range c.tiers {
		if err := tier.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// Clear clears every tier.
func (c *MultiCache) Clear(ctx context.Context) error {
	for _, tier := range c.tiers {
		if err := tier.Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

// promoteToFasterTiers writes value to every tier faster than the one where
// it was found. The promoted entries carry no ttl since the tier's native
// freshness was already established by the original Set; callers that need
// tier-local expiry should wrap MultiCache rather than rely on promotion to
// preserve it precisely.
func (c *MultiCache) promoteToFasterTiers(ctx context.Context, key, value string, foundAtTier int) error {
	for i := 0; i < foundAtTier; i++ {
		if err := c.tiers[i].Set(ctx, key, value, 0); err != nil {
			return err
		}
	}
	return nil
}

var _ httpcache.Storage = (*MultiCache)(nil)
