// Package leaderboard serves the seller leaderboard to authenticated viewers.
package leaderboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"github.com/sellerboard/backend/internal/domain/shared"
	"github.com/sellerboard/backend/internal/infrastructure/logger"
	"github.com/sellerboard/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	spanService  = "leaderboard"
	snapshotKey  = "leaderboard"
	defaultTTL   = 30 * time.Second
	defaultFetch = 10 * time.Second

	operationFetch = "leaderboard.fetch"
)

// Service reads the leaderboard and arranges it per viewer
type Service struct {
	repo         leaderboard.Repository
	cache        leaderboard.SnapshotCache
	cacheTTL     time.Duration
	fetchTimeout time.Duration
	metrics      *telemetry.LeaderboardMetrics
	logger       *zap.Logger
	now          func() time.Time

	group singleflight.Group
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithSnapshotCache reads through cache and stores fresh reads for ttl
func WithSnapshotCache(cache leaderboard.SnapshotCache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithFetchTimeout bounds a single database read
func WithFetchTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithMetrics records fetch and cache metrics
func WithMetrics(m *telemetry.LeaderboardMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock sets the time source for GeneratedAt
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new leaderboard service
func NewService(repo leaderboard.Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:         repo,
		cacheTTL:     defaultTTL,
		fetchTimeout: defaultFetch,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetLeaderboard returns every row ordered by rank with the viewer's own row
// marked. A missing viewer fails before any read.
func (s *Service) GetLeaderboard(ctx context.Context, viewerID uuid.UUID) (*BoardResponse, error) {
	if viewerID == uuid.Nil {
		return nil, leaderboard.ErrViewerRequired
	}

	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get",
		telemetry.WithAttribute(telemetry.SpanAttrViewerID, viewerID.String()))
	defer span.End()

	log := s.loggerFor(ctx).With(zap.String("viewer_id", viewerID.String()))
	log.Debug("Fetching leaderboard")

	entries, source, err := s.snapshot(ctx, log)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("Leaderboard fetch failed", zap.Error(err))
		return nil, leaderboard.NewFetchError(err)
	}

	board := leaderboard.BuildBoard(entries, viewerID, s.now())
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntries, board.Len(),
		telemetry.SpanAttrViewerFound, board.HasViewer(),
		telemetry.SpanAttrSource, source,
	)
	log.Info("Leaderboard fetched",
		zap.Int("entries", board.Len()),
		zap.Bool("viewer_found", board.HasViewer()),
		zap.String("source", source),
	)

	return ToBoardResponse(board, source), nil
}

// GetStanding returns the viewer's own row
func (s *Service) GetStanding(ctx context.Context, viewerID uuid.UUID) (*EntryResponse, error) {
	if viewerID == uuid.Nil {
		return nil, leaderboard.ErrViewerRequired
	}

	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "standing",
		telemetry.WithAttribute(telemetry.SpanAttrViewerID, viewerID.String()))
	defer span.End()

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	entry, err := s.repo.FindByProfileID(fetchCtx, viewerID)
	if err != nil {
		if errors.Is(err, leaderboard.ErrEntryNotFound) {
			telemetry.SetAttributes(span, telemetry.SpanAttrViewerFound, false)
			return nil, err
		}
		telemetry.RecordError(span, err)
		s.loggerFor(ctx).Error("Leaderboard standing fetch failed",
			zap.String("profile_id", viewerID.String()),
			zap.Error(err),
		)
		return nil, leaderboard.NewFetchError(err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrViewerFound, true)
	return toStandingResponse(entry), nil
}

// Refresh drops the cached snapshot so the next read goes to the database.
// Without a cache there is nothing to drop.
func (s *Service) Refresh(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "refresh")
	defer span.End()

	s.group.Forget(snapshotKey)
	if s.cache == nil {
		return nil
	}

	err := s.cache.Invalidate(ctx)
	s.metrics.RecordRefresh(ctx, err)
	if err != nil {
		telemetry.RecordError(span, err)
		s.loggerFor(ctx).Error("Leaderboard cache invalidation failed", zap.Error(err))
		return shared.WrapDomainError(shared.ErrUnavailable.Code, "Failed to refresh leaderboard", err)
	}

	s.loggerFor(ctx).Info("Leaderboard cache invalidated")
	return nil
}

// snapshot returns the ordered rows from the cache or the database.
// Concurrent misses share a single database read.
func (s *Service) snapshot(ctx context.Context, log *zap.Logger) ([]leaderboard.Entry, string, error) {
	if s.cache != nil {
		start := time.Now()
		entries, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			log.Warn("Leaderboard cache read failed, reading database", zap.Error(err))
		case entries != nil:
			s.metrics.RecordCacheLookup(ctx, true)
			s.metrics.RecordFetch(ctx, telemetry.SourceCache, time.Since(start), len(entries), nil)
			return entries, telemetry.SourceCache, nil
		}
		s.metrics.RecordCacheLookup(ctx, false)
	}

	// The shared read must outlive any single caller that gives up.
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(snapshotKey, func() (val any, err error) {
		telemetry.WithProfilingLabels(detached, telemetry.OperationLabels(operationFetch), func(ctx context.Context) {
			val, err = s.load(ctx, log)
		})
		return val, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, "", res.Err
		}
		return res.Val.([]leaderboard.Entry), telemetry.SourceDatabase, nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

func (s *Service) load(ctx context.Context, log *zap.Logger) ([]leaderboard.Entry, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	entries, err := s.repo.FindAllOrderedByRank(fetchCtx)
	s.metrics.RecordFetch(ctx, telemetry.SourceDatabase, time.Since(start), len(entries), err)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, entries, s.cacheTTL); err != nil {
			log.Warn("Failed to store leaderboard snapshot", zap.Error(err))
		}
	}
	return entries, nil
}

func (s *Service) loggerFor(ctx context.Context) *zap.Logger {
	l := logger.WithTraceContext(ctx, s.logger)
	if id := logger.GetRequestID(ctx); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	return l
}
