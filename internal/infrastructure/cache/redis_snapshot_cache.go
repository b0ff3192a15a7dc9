package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sellerboard/backend/internal/domain/leaderboard"
)

// DefaultSnapshotKey is the Redis key holding the ordered leaderboard
const DefaultSnapshotKey = "sellerboard:leaderboard:snapshot"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// snapshot is the value stored in Redis
type snapshot struct {
	StoredAt time.Time           `json:"stored_at"`
	Entries  []leaderboard.Entry `json:"entries"`
}

// RedisSnapshotCache stores the leaderboard snapshot in Redis so that every
// API instance serves the same ordering between refreshes.
type RedisSnapshotCache struct {
	client *redis.Client
	key    string
}

// NewRedisSnapshotCache connects to Redis and verifies the connection
func NewRedisSnapshotCache(cfg RedisConfig) (*RedisSnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSnapshotCacheWithClient(client, DefaultSnapshotKey), nil
}

// NewRedisSnapshotCacheWithClient creates a cache over an existing client
func NewRedisSnapshotCacheWithClient(client *redis.Client, key string) *RedisSnapshotCache {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &RedisSnapshotCache{client: client, key: key}
}

// Get returns the cached entries, or nil on a miss
func (c *RedisSnapshotCache) Get(ctx context.Context) ([]leaderboard.Entry, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read leaderboard snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupt value is dropped so the next read repopulates it
		_ = c.client.Del(ctx, c.key).Err()
		return nil, fmt.Errorf("failed to decode leaderboard snapshot: %w", err)
	}
	if snap.Entries == nil {
		snap.Entries = []leaderboard.Entry{}
	}
	return snap.Entries, nil
}

// Set stores entries with the given TTL. A non-positive TTL stores without expiry.
func (c *RedisSnapshotCache) Set(ctx context.Context, entries []leaderboard.Entry, ttl time.Duration) error {
	data, err := json.Marshal(snapshot{StoredAt: time.Now().UTC(), Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard snapshot: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write leaderboard snapshot: %w", err)
	}
	return nil
}

// Invalidate removes the snapshot
func (c *RedisSnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate leaderboard snapshot: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *RedisSnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}

var _ leaderboard.SnapshotCache = (*RedisSnapshotCache)(nil)
