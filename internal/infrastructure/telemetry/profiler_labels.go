package telemetry

import (
	"context"
	"sort"

	"github.com/grafana/pyroscope-go"
)

// Profile label keys
const (
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelOperation = "operation"
)

// maxLabelValueLength caps label values so a stray path cannot blow up
// the profile series count.
const maxLabelValueLength = 128

// highCardinalityLabels are dropped from profile labels. Every viewer is a
// distinct seller profile, so per-viewer labels would create a series each.
var highCardinalityLabels = map[string]bool{
	"viewer_id":  true,
	"profile_id": true,
	"request_id": true,
	"trace_id":   true,
	"span_id":    true,
}

// WithProfilingLabels runs fn with pprof labels attached, so CPU and
// allocation samples taken inside fn (and goroutines it starts) can be
// filtered by them in Pyroscope. Without labels fn runs as is.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// HTTPRequestLabels labels a request by method and route template
func HTTPRequestLabels(method, route string) map[string]string {
	return map[string]string{
		ProfilingLabelMethod: method,
		ProfilingLabelRoute:  route,
	}
}

// OperationLabels labels a unit of work, e.g. "leaderboard.fetch"
func OperationLabels(operation string) map[string]string {
	return map[string]string{ProfilingLabelOperation: operation}
}

// sanitizeLabels flattens labels into sorted key/value pairs, dropping empty
// and high-cardinality entries and truncating long values.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > maxLabelValueLength {
			value = value[:maxLabelValueLength]
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}
