package leaderboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sellerboard/backend/internal/domain/shared"
	"github.com/sellerboard/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LoadStatus is the state of a viewer's most recent load
type LoadStatus string

const (
	StatusLoading LoadStatus = "loading"
	StatusReady   LoadStatus = "ready"
	StatusFailed  LoadStatus = "failed"
)

// LoadState is a snapshot of a viewer's most recent load
type LoadState struct {
	Status     LoadStatus
	Generation uint64
	Board      *BoardResponse // set when Ready
	Message    string         // set when Failed
	StartedAt  time.Time
	FinishedAt time.Time
}

const operationLoad = "leaderboard.load"

// ErrNoLoad is returned by Await when nothing was loaded for the viewer
var ErrNoLoad = errors.New("no leaderboard load started for viewer")

// BoardFetcher fetches a board for a viewer. *Service implements it.
type BoardFetcher interface {
	GetLeaderboard(ctx context.Context, viewerID uuid.UUID) (*BoardResponse, error)
}

type loadSlot struct {
	state     LoadState
	done      chan struct{} // closed when the current generation finishes
	delivered bool          // a finished state was handed to Await
}

// Loader runs leaderboard fetches in the background, one slot per viewer.
// A newer Load for the same viewer supersedes any fetch still in flight:
// the older result is discarded when it arrives.
type Loader struct {
	fetcher   BoardFetcher
	timeout   time.Duration
	retention time.Duration
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	slots map[uuid.UUID]*loadSlot
	wg    sync.WaitGroup
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithLoadTimeout bounds each background fetch
func WithLoadTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithRetention sets how long finished states are kept
func WithRetention(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.retention = d
		}
	}
}

// WithLoaderLogger sets the logger
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader. Close it to cancel fetches in flight.
func NewLoader(fetcher BoardFetcher, opts ...LoaderOption) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		fetcher:   fetcher,
		timeout:   defaultFetch,
		retention: 5 * time.Minute,
		logger:    zap.NewNop(),
		ctx:       ctx,
		cancel:    cancel,
		slots:     make(map[uuid.UUID]*loadSlot),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load starts a fetch for viewerID and returns its generation immediately.
func (l *Loader) Load(viewerID uuid.UUID) uint64 {
	l.mu.Lock()
	l.evictLocked(time.Now())

	slot, ok := l.slots[viewerID]
	if !ok {
		slot = &loadSlot{}
		l.slots[viewerID] = slot
	}
	gen := slot.state.Generation + 1
	done := make(chan struct{})
	slot.state = LoadState{
		Status:     StatusLoading,
		Generation: gen,
		StartedAt:  time.Now(),
	}
	slot.done = done
	slot.delivered = false
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run(viewerID, gen, done)
	return gen
}

func (l *Loader) run(viewerID uuid.UUID, gen uint64, done chan struct{}) {
	defer l.wg.Done()
	defer close(done)

	ctx, cancel := context.WithTimeout(l.ctx, l.timeout)
	defer cancel()

	var (
		board *BoardResponse
		err   error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operationLoad), func(ctx context.Context) {
		board, err = l.fetcher.GetLeaderboard(ctx, viewerID)
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[viewerID]
	if !ok || slot.state.Generation != gen {
		l.logger.Debug("Discarding superseded leaderboard load",
			zap.String("viewer_id", viewerID.String()),
			zap.Uint64("generation", gen),
		)
		return
	}

	slot.state.FinishedAt = time.Now()
	if err != nil {
		slot.state.Status = StatusFailed
		slot.state.Message = failureMessage(err)
		return
	}
	slot.state.Status = StatusReady
	slot.state.Board = board
}

// State returns the viewer's latest state. ok is false when nothing was
// ever loaded for the viewer or the state has been evicted.
func (l *Loader) State(viewerID uuid.UUID) (LoadState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[viewerID]
	if !ok {
		return LoadState{}, false
	}
	return slot.state, true
}

// Resume reports whether a request carrying generation gen should keep
// following that load instead of starting a new one. It holds while the load
// is in flight and until its finished state has been delivered once; after
// that the same generation starts a fresh load.
func (l *Loader) Resume(viewerID uuid.UUID, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[viewerID]
	if !ok || slot.state.Generation != gen {
		return false
	}
	return slot.state.Status == StatusLoading || !slot.delivered
}

// Await blocks until the viewer's latest load leaves Loading, or ctx ends.
// When ctx ends first the still-loading state is returned with ctx's error.
func (l *Loader) Await(ctx context.Context, viewerID uuid.UUID) (LoadState, error) {
	for {
		l.mu.Lock()
		slot, ok := l.slots[viewerID]
		if !ok {
			l.mu.Unlock()
			return LoadState{}, ErrNoLoad
		}
		state, done := slot.state, slot.done
		if state.Status != StatusLoading {
			slot.delivered = true
			l.mu.Unlock()
			return state, nil
		}
		l.mu.Unlock()

		select {
		case <-done:
			// A newer generation may have started meanwhile; check again.
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// Close cancels fetches in flight and waits for them to return.
func (l *Loader) Close() {
	l.cancel()
	l.wg.Wait()
}

func (l *Loader) evictLocked(now time.Time) {
	for id, slot := range l.slots {
		if slot.state.Status != StatusLoading && now.Sub(slot.state.FinishedAt) > l.retention {
			delete(l.slots, id)
		}
	}
}

// failureMessage is the text shown to the viewer for a failed load
func failureMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
