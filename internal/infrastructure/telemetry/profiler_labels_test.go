package telemetry_test

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/sellerboard/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestWithProfilingLabels_NoLabels(t *testing.T) {
	called := false
	telemetry.WithProfilingLabels(context.Background(), nil, func(context.Context) {
		called = true
	})
	assert.True(t, called)
}

func TestWithProfilingLabels_AttachesLabels(t *testing.T) {
	var method, route string
	telemetry.WithProfilingLabels(context.Background(),
		telemetry.HTTPRequestLabels("GET", "/api/v1/leaderboard"),
		func(ctx context.Context) {
			method, _ = pprof.Label(ctx, telemetry.ProfilingLabelMethod)
			route, _ = pprof.Label(ctx, telemetry.ProfilingLabelRoute)
		})

	assert.Equal(t, "GET", method)
	assert.Equal(t, "/api/v1/leaderboard", route)
}

func TestWithProfilingLabels_DropsPerViewerLabels(t *testing.T) {
	labels := telemetry.OperationLabels("leaderboard.fetch")
	labels["viewer_id"] = "0b4c2f1e-5d1a-4c52-9b7e-2a9f7d0c1e11"
	labels["request_id"] = "req-1"

	var op string
	var hasViewer, hasRequest bool
	telemetry.WithProfilingLabels(context.Background(), labels, func(ctx context.Context) {
		op, _ = pprof.Label(ctx, telemetry.ProfilingLabelOperation)
		_, hasViewer = pprof.Label(ctx, "viewer_id")
		_, hasRequest = pprof.Label(ctx, "request_id")
	})

	assert.Equal(t, "leaderboard.fetch", op)
	assert.False(t, hasViewer)
	assert.False(t, hasRequest)
}

func TestWithProfilingLabels_TruncatesLongValues(t *testing.T) {
	var route string
	telemetry.WithProfilingLabels(context.Background(),
		map[string]string{telemetry.ProfilingLabelRoute: strings.Repeat("x", 200)},
		func(ctx context.Context) {
			route, _ = pprof.Label(ctx, telemetry.ProfilingLabelRoute)
		})

	assert.Len(t, route, 128)
}
