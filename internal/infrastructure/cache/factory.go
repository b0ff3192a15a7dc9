package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"github.com/sellerboard/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SnapshotCacheFactory builds the leaderboard snapshot cache from configuration
type SnapshotCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	l1TTL                 time.Duration
}

// SnapshotCacheFactoryOption configures the factory
type SnapshotCacheFactoryOption func(*SnapshotCacheFactory)

// WithLogger sets the logger for the factory and the caches it builds
func WithLogger(logger *zap.Logger) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to a
// process-local cache. Default is true.
func WithInMemoryFallback(allow bool) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithFactoryL1TTL sets the L1 lifetime of the tiered cache
func WithFactoryL1TTL(ttl time.Duration) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		f.l1TTL = ttl
	}
}

// NewSnapshotCacheFactory creates a new factory
func NewSnapshotCacheFactory(cfg config.RedisConfig, opts ...SnapshotCacheFactoryOption) *SnapshotCacheFactory {
	f := &SnapshotCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		l1TTL:                 DefaultL1TTL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemoryCache creates a process-local cache.
// Instances do not share it, so each one refreshes on its own schedule.
func (f *SnapshotCacheFactory) CreateInMemoryCache() *InMemorySnapshotCache {
	return NewInMemorySnapshotCache(WithInMemoryLogger(f.logger.Named("l1")))
}

// CreateTieredCache connects to Redis and starts listening for invalidations
// until ctx is done.
func (f *SnapshotCacheFactory) CreateTieredCache(ctx context.Context) (*TieredSnapshotCache, error) {
	l2, err := NewRedisSnapshotCache(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, err
	}

	invalidator := NewRedisSnapshotInvalidator(l2.client, WithInvalidatorLogger(f.logger.Named("invalidator")))
	tiered := NewTieredSnapshotCache(f.CreateInMemoryCache(), l2, invalidator,
		WithL1TTL(f.l1TTL),
		WithTieredLogger(f.logger),
	)

	go func() {
		if err := tiered.StartInvalidationSubscription(ctx); err != nil {
			f.logger.Warn("Leaderboard invalidation subscription ended", zap.Error(err))
		}
	}()

	return tiered, nil
}

// CreateCache returns the tiered Redis cache when Redis is enabled and
// reachable, and the in-memory cache otherwise (if fallback is allowed).
func (f *SnapshotCacheFactory) CreateCache(ctx context.Context) (leaderboard.SnapshotCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory leaderboard cache")
		return f.CreateInMemoryCache(), nil
	}

	tiered, err := f.CreateTieredCache(ctx)
	if err == nil {
		f.logger.Info("Using Redis leaderboard cache", zap.String("addr", f.redisConfig.Addr()))
		return tiered, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for leaderboard cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory leaderboard cache. "+
		"Instances will not share refreshes.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
