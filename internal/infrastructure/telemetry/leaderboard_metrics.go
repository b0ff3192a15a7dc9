package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Values of AttrSource on leaderboard fetch metrics.
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

// Values of AttrOutcome on leaderboard fetch metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// LeaderboardMetrics holds the instruments recorded by the leaderboard service.
type LeaderboardMetrics struct {
	fetchTotal    *Counter   // leaderboard_fetch_total{source,outcome}
	fetchDuration *Histogram // leaderboard_fetch_duration_seconds{source}
	cacheHits     *Counter   // leaderboard_cache_hits_total
	cacheMisses   *Counter   // leaderboard_cache_misses_total
	refreshTotal  *Counter   // leaderboard_refresh_total{outcome}
	entries       *Gauge     // leaderboard_entries
}

// NewLeaderboardMetrics creates the leaderboard instruments on meter.
func NewLeaderboardMetrics(meter metric.Meter) (*LeaderboardMetrics, error) {
	fetchTotal, err := NewCounter(meter, "leaderboard_fetch_total", "Leaderboard fetches by source and outcome", "{fetch}")
	if err != nil {
		return nil, err
	}
	fetchDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "leaderboard_fetch_duration_seconds",
		Description: "Leaderboard fetch latency in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	cacheHits, err := NewCounter(meter, "leaderboard_cache_hits_total", "Snapshot cache hits", "{hit}")
	if err != nil {
		return nil, err
	}
	cacheMisses, err := NewCounter(meter, "leaderboard_cache_misses_total", "Snapshot cache misses", "{miss}")
	if err != nil {
		return nil, err
	}
	refreshTotal, err := NewCounter(meter, "leaderboard_refresh_total", "Snapshot invalidations by outcome", "{refresh}")
	if err != nil {
		return nil, err
	}
	entries, err := NewGauge(meter, "leaderboard_entries", "Rows in the last fetched leaderboard", "{row}")
	if err != nil {
		return nil, err
	}

	return &LeaderboardMetrics{
		fetchTotal:    fetchTotal,
		fetchDuration: fetchDuration,
		cacheHits:     cacheHits,
		cacheMisses:   cacheMisses,
		refreshTotal:  refreshTotal,
		entries:       entries,
	}, nil
}

// RecordFetch records one fetch from source. rows is ignored on failure.
func (m *LeaderboardMetrics) RecordFetch(ctx context.Context, source string, d time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.fetchTotal.Inc(ctx, AttrSource.String(source), AttrOutcome.String(outcome))
	m.fetchDuration.RecordDuration(ctx, d, AttrSource.String(source))
	if err == nil {
		m.entries.Record(ctx, int64(rows))
	}
}

// RecordCacheLookup counts a snapshot cache hit or miss.
func (m *LeaderboardMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc(ctx)
		return
	}
	m.cacheMisses.Inc(ctx)
}

// RecordRefresh counts a snapshot invalidation.
func (m *LeaderboardMetrics) RecordRefresh(ctx context.Context, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.refreshTotal.Inc(ctx, AttrOutcome.String(outcome))
}
