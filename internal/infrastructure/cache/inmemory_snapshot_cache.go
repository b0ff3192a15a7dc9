package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"go.uber.org/zap"
)

// InMemorySnapshotCache keeps the leaderboard snapshot in process memory.
// It is used on its own when Redis is disabled and as the L1 tier in front
// of Redis otherwise.
type InMemorySnapshotCache struct {
	mu        sync.RWMutex
	entries   []leaderboard.Entry
	expiresAt time.Time // zero means no expiry
	present   bool

	now    func() time.Time
	logger *zap.Logger

	hits   int64
	misses int64
}

// InMemorySnapshotCacheOption configures an InMemorySnapshotCache
type InMemorySnapshotCacheOption func(*InMemorySnapshotCache)

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemorySnapshotCacheOption {
	return func(c *InMemorySnapshotCache) {
		c.logger = logger
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) InMemorySnapshotCacheOption {
	return func(c *InMemorySnapshotCache) {
		c.now = now
	}
}

// NewInMemorySnapshotCache creates an empty in-memory cache
func NewInMemorySnapshotCache(opts ...InMemorySnapshotCacheOption) *InMemorySnapshotCache {
	c := &InMemorySnapshotCache{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached entries, or nil on a miss
func (c *InMemorySnapshotCache) Get(_ context.Context) ([]leaderboard.Entry, error) {
	c.mu.RLock()
	present := c.present
	expired := !c.expiresAt.IsZero() && c.now().After(c.expiresAt)
	var out []leaderboard.Entry
	if present && !expired {
		out = make([]leaderboard.Entry, len(c.entries))
		copy(out, c.entries)
	}
	c.mu.RUnlock()

	if out == nil {
		if present && expired {
			c.expire()
		}
		atomic.AddInt64(&c.misses, 1)
		c.logger.Debug("L1 leaderboard cache miss")
		return nil, nil
	}

	atomic.AddInt64(&c.hits, 1)
	return out, nil
}

// expire drops the snapshot if it is still expired
func (c *InMemorySnapshotCache) expire() {
	c.mu.Lock()
	if c.present && !c.expiresAt.IsZero() && c.now().After(c.expiresAt) {
		c.entries, c.present = nil, false
	}
	c.mu.Unlock()
}

// Set stores a copy of entries. A non-positive TTL never expires.
func (c *InMemorySnapshotCache) Set(_ context.Context, entries []leaderboard.Entry, ttl time.Duration) error {
	stored := make([]leaderboard.Entry, len(entries))
	copy(stored, entries)

	c.mu.Lock()
	c.entries = stored
	c.present = true
	c.expiresAt = time.Time{}
	if ttl > 0 {
		c.expiresAt = c.now().Add(ttl)
	}
	c.mu.Unlock()

	c.logger.Debug("Cached leaderboard snapshot in L1",
		zap.Int("rows", len(stored)),
		zap.Duration("ttl", ttl))
	return nil
}

// Invalidate drops the snapshot
func (c *InMemorySnapshotCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.entries, c.present = nil, false
	c.mu.Unlock()
	return nil
}

// Stats returns hit and miss counters
func (c *InMemorySnapshotCache) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
}

// Stats holds cache counters
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

var _ leaderboard.SnapshotCache = (*InMemorySnapshotCache)(nil)
