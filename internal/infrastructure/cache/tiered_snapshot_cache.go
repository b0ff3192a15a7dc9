package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"go.uber.org/zap"
)

// DefaultL1TTL bounds how long an instance serves its local copy without
// consulting Redis.
const DefaultL1TTL = 5 * time.Second

// TieredSnapshotCache reads through a local L1 copy to the shared Redis L2.
// Invalidations are broadcast so other instances drop their L1 copy.
type TieredSnapshotCache struct {
	l1          *InMemorySnapshotCache
	l2          *RedisSnapshotCache
	invalidator *RedisSnapshotInvalidator
	l1TTL       time.Duration
	logger      *zap.Logger

	l2Hits   int64
	l2Misses int64
}

// TieredSnapshotCacheOption configures the tiered cache
type TieredSnapshotCacheOption func(*TieredSnapshotCache)

// WithL1TTL sets the local copy lifetime
func WithL1TTL(ttl time.Duration) TieredSnapshotCacheOption {
	return func(c *TieredSnapshotCache) {
		c.l1TTL = ttl
	}
}

// WithTieredLogger sets the logger
func WithTieredLogger(logger *zap.Logger) TieredSnapshotCacheOption {
	return func(c *TieredSnapshotCache) {
		c.logger = logger
	}
}

// NewTieredSnapshotCache combines the two tiers. invalidator may be nil.
func NewTieredSnapshotCache(l1 *InMemorySnapshotCache, l2 *RedisSnapshotCache, invalidator *RedisSnapshotInvalidator, opts ...TieredSnapshotCacheOption) *TieredSnapshotCache {
	c := &TieredSnapshotCache{
		l1:          l1,
		l2:          l2,
		invalidator: invalidator,
		l1TTL:       DefaultL1TTL,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartInvalidationSubscription drops the L1 copy whenever another instance
// invalidates. It blocks; run it in a goroutine.
func (c *TieredSnapshotCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, func() {
		_ = c.l1.Invalidate(context.Background())
		c.logger.Debug("Dropped L1 leaderboard snapshot after remote invalidation")
	})
}

// Get returns the snapshot from L1, then L2
func (c *TieredSnapshotCache) Get(ctx context.Context) ([]leaderboard.Entry, error) {
	if entries, _ := c.l1.Get(ctx); entries != nil {
		return entries, nil
	}

	entries, err := c.l2.Get(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		atomic.AddInt64(&c.l2Misses, 1)
		return nil, nil
	}

	atomic.AddInt64(&c.l2Hits, 1)
	if err := c.l1.Set(ctx, entries, c.l1TTL); err != nil {
		c.logger.Warn("Failed to populate L1 leaderboard snapshot", zap.Error(err))
	}
	return entries, nil
}

// Set writes L2 and then L1. L1 never outlives the requested TTL.
func (c *TieredSnapshotCache) Set(ctx context.Context, entries []leaderboard.Entry, ttl time.Duration) error {
	if err := c.l2.Set(ctx, entries, ttl); err != nil {
		return err
	}

	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.l1.Set(ctx, entries, l1TTL); err != nil {
		c.logger.Warn("Failed to set L1 leaderboard snapshot", zap.Error(err))
	}
	return nil
}

// Invalidate drops both tiers and notifies other instances
func (c *TieredSnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.l2.Invalidate(ctx); err != nil {
		return err
	}
	_ = c.l1.Invalidate(ctx)

	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx); err != nil {
			c.logger.Warn("Failed to publish leaderboard invalidation", zap.Error(err))
		}
	}
	return nil
}

// Stats returns L1 and L2 counters
func (c *TieredSnapshotCache) Stats() TieredStats {
	return TieredStats{
		L1: c.l1.Stats(),
		L2: Stats{
			Hits:   atomic.LoadInt64(&c.l2Hits),
			Misses: atomic.LoadInt64(&c.l2Misses),
		},
	}
}

// TieredStats holds per-tier counters
type TieredStats struct {
	L1 Stats `json:"l1"`
	L2 Stats `json:"l2"`
}

// Ping checks that the Redis tier is reachable
func (c *TieredSnapshotCache) Ping(ctx context.Context) error {
	return c.l2.Ping(ctx)
}

// Close stops the invalidation subscription and closes the Redis client
func (c *TieredSnapshotCache) Close() error {
	if c.invalidator != nil {
		c.invalidator.Stop()
	}
	return c.l2.Close()
}

var _ leaderboard.SnapshotCache = (*TieredSnapshotCache)(nil)
