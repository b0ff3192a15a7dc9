package leaderboard

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"github.com/sellerboard/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockRepository is a mock implementation of leaderboard.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindAllOrderedByRank(ctx context.Context) ([]leaderboard.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]leaderboard.Entry), args.Error(1)
}

func (m *MockRepository) FindByProfileID(ctx context.Context, profileID uuid.UUID) (*leaderboard.Entry, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leaderboard.Entry), args.Error(1)
}

// MockSnapshotCache is a mock implementation of leaderboard.SnapshotCache
type MockSnapshotCache struct {
	mock.Mock
}

func (m *MockSnapshotCache) Get(ctx context.Context) ([]leaderboard.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]leaderboard.Entry), args.Error(1)
}

func (m *MockSnapshotCache) Set(ctx context.Context, entries []leaderboard.Entry, ttl time.Duration) error {
	args := m.Called(ctx, entries, ttl)
	return args.Error(0)
}

func (m *MockSnapshotCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func makeEntries(n int) []leaderboard.Entry {
	entries := make([]leaderboard.Entry, n)
	for i := range entries {
		entries[i] = leaderboard.Entry{
			ID:                      uuid.New(),
			Rank:                    i + 1,
			ProfileID:               uuid.New(),
			SellerName:              "Seller " + strconv.Itoa(i+1),
			SKUCount:                int64(100 - i),
			CompetitivePricingScore: decimal.NewFromFloat(9.5),
			SalesVolume:             decimal.RequireFromString("1250000.00"),
			OrderFulfillmentRate:    decimal.RequireFromString("97.50"),
		}
	}
	return entries
}

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(repo leaderboard.Repository, opts ...ServiceOption) *Service {
	opts = append([]ServiceOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(repo, opts...)
}

func TestService_GetLeaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("missing viewer fails without reading", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		board, err := svc.GetLeaderboard(ctx, uuid.Nil)
		assert.Nil(t, board)
		assert.ErrorIs(t, err, leaderboard.ErrViewerRequired)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "User ID not found.", de.Message)
		repo.AssertNotCalled(t, "FindAllOrderedByRank", mock.Anything)
	})

	t.Run("marks the viewer and keeps repository order", func(t *testing.T) {
		entries := makeEntries(4)
		// Out of rank order on purpose: the service must not re-sort.
		entries[1], entries[2] = entries[2], entries[1]
		viewer := entries[2].ProfileID

		repo := new(MockRepository)
		repo.On("FindAllOrderedByRank", mock.Anything).Return(entries, nil).Once()
		svc := newTestService(repo)

		board, err := svc.GetLeaderboard(ctx, viewer)
		require.NoError(t, err)

		require.Len(t, board.Entries, 4)
		assert.Equal(t, 4, board.Total)
		assert.Equal(t, "database", board.Source)
		assert.Equal(t, fixedNow, board.GeneratedAt)
		for i, e := range board.Entries {
			assert.Equal(t, entries[i].ID, e.ID)
			assert.Equal(t, i+1, e.Position)
			assert.Equal(t, e.ProfileID == viewer, e.IsViewer)
		}
		assert.Equal(t, "gold", board.Entries[0].Podium)
		assert.Equal(t, "bronze", board.Entries[2].Podium)
		assert.Empty(t, board.Entries[3].Podium)

		require.NotNil(t, board.Viewer)
		assert.Equal(t, viewer, board.Viewer.ProfileID)
		assert.Equal(t, 3, board.Viewer.Position)
		repo.AssertExpectations(t)
	})

	t.Run("viewer absent from board", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindAllOrderedByRank", mock.Anything).Return(makeEntries(2), nil)
		svc := newTestService(repo)

		board, err := svc.GetLeaderboard(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, board.Viewer)
		for _, e := range board.Entries {
			assert.False(t, e.IsViewer)
		}
	})

	t.Run("empty table is an empty board", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindAllOrderedByRank", mock.Anything).Return(nil, nil)
		svc := newTestService(repo)

		board, err := svc.GetLeaderboard(ctx, uuid.New())
		require.NoError(t, err)
		assert.NotNil(t, board.Entries)
		assert.Empty(t, board.Entries)
		assert.Zero(t, board.Total)
	})

	t.Run("failure message is the cause text", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		repo := new(MockRepository)
		repo.On("FindAllOrderedByRank", mock.Anything).
			Return(nil, errors.New(`relation "leaderboard" does not exist`))
		svc := newTestService(repo, WithLogger(zap.New(core)))

		board, err := svc.GetLeaderboard(ctx, uuid.New())
		assert.Nil(t, board)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, leaderboard.CodeFetchFailed, de.Code)
		assert.Equal(t, `relation "leaderboard" does not exist`, de.Message)

		failures := logs.FilterMessage("Leaderboard fetch failed").All()
		require.Len(t, failures, 1)
		assert.Equal(t, zap.ErrorLevel, failures[0].Level)
	})
}

func TestService_GetLeaderboard_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("hit skips the repository", func(t *testing.T) {
		repo := new(MockRepository)
		cache := new(MockSnapshotCache)
		cache.On("Get", mock.Anything).Return(makeEntries(3), nil)
		svc := newTestService(repo, WithSnapshotCache(cache, time.Minute))

		board, err := svc.GetLeaderboard(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, "cache", board.Source)
		assert.Len(t, board.Entries, 3)
		repo.AssertNotCalled(t, "FindAllOrderedByRank", mock.Anything)
	})

	t.Run("miss reads and stores with ttl", func(t *testing.T) {
		entries := makeEntries(2)
		repo := new(MockRepository)
		repo.On("FindAllOrderedByRank", mock.Anything).Return(entries, nil).Once()
		cache := new(MockSnapshotCache)
		cache.On("Get", mock.Anything).Return(nil, nil)
		cache.On("Set", mock.Anything, entries, 45*time.Second).Return(nil).Once()
		svc := newTestService(repo, WithSnapshotCache(cache, 45*time.Second))

		board, err := svc.GetLeaderboard(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, "database", board.Source)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache errors fall through to the database", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindAllOrderedByRank", mock.Anything).Return(makeEntries(1), nil)
		cache := new(MockSnapshotCache)
		cache.On("Get", mock.Anything).Return(nil, errors.New("redis: connection refused"))
		cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis: connection refused"))
		svc := newTestService(repo, WithSnapshotCache(cache, time.Minute))

		board, err := svc.GetLeaderboard(ctx, uuid.New())
		require.NoError(t, err)
		assert.Len(t, board.Entries, 1)
	})

	t.Run("failed reads are not cached", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindAllOrderedByRank", mock.Anything).Return(nil, errors.New("timeout"))
		cache := new(MockSnapshotCache)
		cache.On("Get", mock.Anything).Return(nil, nil)
		svc := newTestService(repo, WithSnapshotCache(cache, time.Minute))

		_, err := svc.GetLeaderboard(ctx, uuid.New())
		require.Error(t, err)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}

// blockingRepository counts reads and holds them until released
type blockingRepository struct {
	calls   atomic.Int32
	release chan struct{}
	entries []leaderboard.Entry
}

func (r *blockingRepository) FindAllOrderedByRank(ctx context.Context) ([]leaderboard.Entry, error) {
	r.calls.Add(1)
	select {
	case <-r.release:
		return r.entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *blockingRepository) FindByProfileID(context.Context, uuid.UUID) (*leaderboard.Entry, error) {
	return nil, leaderboard.ErrEntryNotFound
}

func TestService_GetLeaderboard_SharesConcurrentReads(t *testing.T) {
	repo := &blockingRepository{release: make(chan struct{}), entries: makeEntries(5)}
	svc := newTestService(repo)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*BoardResponse, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetLeaderboard(context.Background(), uuid.New())
		}(i)
	}

	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	assert.Equal(t, int32(1), repo.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i].Entries, 5)
	}
}

func TestService_GetLeaderboard_CallerCancellation(t *testing.T) {
	repo := &blockingRepository{release: make(chan struct{}), entries: makeEntries(1)}
	svc := newTestService(repo)
	defer close(repo.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.GetLeaderboard(ctx, uuid.New())
	require.Error(t, err)

	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_GetStanding(t *testing.T) {
	ctx := context.Background()

	t.Run("missing viewer", func(t *testing.T) {
		svc := newTestService(new(MockRepository))
		_, err := svc.GetStanding(ctx, uuid.Nil)
		assert.ErrorIs(t, err, leaderboard.ErrViewerRequired)
	})

	t.Run("found", func(t *testing.T) {
		entry := makeEntries(2)[1]
		repo := new(MockRepository)
		repo.On("FindByProfileID", mock.Anything, entry.ProfileID).Return(&entry, nil)
		svc := newTestService(repo)

		got, err := svc.GetStanding(ctx, entry.ProfileID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Rank)
		assert.Equal(t, "silver", got.Podium)
		assert.True(t, got.IsViewer)
		assert.Zero(t, got.Position)
	})

	t.Run("not on the board", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByProfileID", mock.Anything, mock.Anything).Return(nil, leaderboard.ErrEntryNotFound)
		svc := newTestService(repo)

		_, err := svc.GetStanding(ctx, uuid.New())
		assert.ErrorIs(t, err, leaderboard.ErrEntryNotFound)
	})

	t.Run("read failure", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByProfileID", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
		core, logs := observer.New(zap.InfoLevel)
		svc := newTestService(repo, WithLogger(zap.New(core)))
		profileID := uuid.New()

		_, err := svc.GetStanding(ctx, profileID)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, leaderboard.CodeFetchFailed, de.Code)
		assert.Equal(t, "connection reset", de.Message)

		failures := logs.FilterMessage("Leaderboard standing fetch failed").All()
		require.Len(t, failures, 1)
		fields := failures[0].ContextMap()
		assert.Equal(t, profileID.String(), fields["profile_id"])
		assert.NotContains(t, fields, "viewer_id")
	})
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("without cache", func(t *testing.T) {
		svc := newTestService(new(MockRepository))
		assert.NoError(t, svc.Refresh(ctx))
	})

	t.Run("invalidates", func(t *testing.T) {
		cache := new(MockSnapshotCache)
		cache.On("Invalidate", mock.Anything).Return(nil).Once()
		svc := newTestService(new(MockRepository), WithSnapshotCache(cache, time.Minute))

		require.NoError(t, svc.Refresh(ctx))
		cache.AssertExpectations(t)
	})

	t.Run("invalidation failure is unavailable", func(t *testing.T) {
		cache := new(MockSnapshotCache)
		cache.On("Invalidate", mock.Anything).Return(errors.New("redis down"))
		svc := newTestService(new(MockRepository), WithSnapshotCache(cache, time.Minute))

		err := svc.Refresh(ctx)
		assert.ErrorIs(t, err, shared.ErrUnavailable)
	})
}
