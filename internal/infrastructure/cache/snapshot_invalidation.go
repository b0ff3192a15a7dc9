package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultInvalidationChannel is the Pub/Sub channel used to drop L1 snapshots
const DefaultInvalidationChannel = "sellerboard:leaderboard:invalidate"

type invalidationMessage struct {
	Origin    string `json:"origin"`
	Timestamp int64  `json:"timestamp"`
}

// RedisSnapshotInvalidator tells other API instances to drop their local
// snapshot after a refresh. Messages published by this instance are ignored
// on receipt.
type RedisSnapshotInvalidator struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// RedisSnapshotInvalidatorOption configures the invalidator
type RedisSnapshotInvalidatorOption func(*RedisSnapshotInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisSnapshotInvalidatorOption {
	return func(i *RedisSnapshotInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger
func WithInvalidatorLogger(logger *zap.Logger) RedisSnapshotInvalidatorOption {
	return func(i *RedisSnapshotInvalidator) {
		i.logger = logger
	}
}

// NewRedisSnapshotInvalidator creates an invalidator over a shared client.
// The caller keeps ownership of the client.
func NewRedisSnapshotInvalidator(client *redis.Client, opts ...RedisSnapshotInvalidatorOption) *RedisSnapshotInvalidator {
	i := &RedisSnapshotInvalidator{
		client:  client,
		channel: DefaultInvalidationChannel,
		origin:  uuid.NewString(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish announces that the shared snapshot was invalidated
func (i *RedisSnapshotInvalidator) Publish(ctx context.Context) error {
	data, err := json.Marshal(invalidationMessage{Origin: i.origin, Timestamp: time.Now().UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation message: %w", err)
	}
	return nil
}

// Subscribe calls onInvalidate for each invalidation published by another
// instance. It blocks until ctx is done or Stop is called.
func (i *RedisSnapshotInvalidator) Subscribe(ctx context.Context, onInvalidate func()) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	i.running = true
	i.cancel = cancel
	i.done = make(chan struct{})
	done := i.done
	i.mu.Unlock()

	defer func() {
		cancel()
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
		close(done)
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", i.channel, err)
	}
	i.logger.Info("Subscribed to leaderboard invalidations", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m invalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				i.logger.Warn("Ignoring malformed invalidation message", zap.Error(err))
				continue
			}
			if m.Origin == i.origin {
				continue
			}
			onInvalidate()
		}
	}
}

// Stop ends a running subscription and waits for it to exit
func (i *RedisSnapshotInvalidator) Stop() {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		i.logger.Warn("Timed out waiting for invalidation subscription to stop")
	}
}
