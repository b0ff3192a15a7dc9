package main

import (
	"context"
	"fmt"

	"github.com/sellerboard/backend/internal/infrastructure/config"
	"github.com/sellerboard/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// telemetryProviders are the OpenTelemetry providers and the profiler of
// the process. Each is a no-op wrapper when its signal is disabled.
type telemetryProviders struct {
	traces   *telemetry.TracerProvider
	metrics  *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryProviders, error) {
	tc := cfg.Telemetry

	traces, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("tracer provider: %w", err)
	}

	metrics, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled && tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsExportInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		_ = traces.Shutdown(ctx)
		return nil, fmt.Errorf("meter provider: %w", err)
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		_ = metrics.Shutdown(ctx)
		_ = traces.Shutdown(ctx)
		return nil, fmt.Errorf("logger provider: %w", err)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           tc.ProfilingEnabled,
		ServerAddress:     tc.ProfilingServerAddress,
		ApplicationName:   tc.ServiceName,
		BasicAuthUser:     tc.ProfilingAuthUser,
		BasicAuthPassword: tc.ProfilingAuthPassword,
		ProfileTypes:      tc.ProfilingTypes,
	}, log)
	if err != nil {
		_ = logs.Shutdown(ctx)
		_ = metrics.Shutdown(ctx)
		_ = traces.Shutdown(ctx)
		return nil, fmt.Errorf("profiler: %w", err)
	}
	if profiler.IsEnabled() {
		traces.EnableSpanProfiles()
	}

	return &telemetryProviders{traces: traces, metrics: metrics, logs: logs, profiler: profiler}, nil
}

// shutdown flushes profiles, metrics and spans before logs, so their
// shutdown messages still reach the collector.
func (t *telemetryProviders) shutdown(ctx context.Context, log *zap.Logger) {
	if err := t.profiler.Stop(); err != nil {
		log.Warn("Profiler shutdown failed", zap.Error(err))
	}
	if err := t.metrics.Shutdown(ctx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := t.traces.Shutdown(ctx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := t.logs.Shutdown(ctx); err != nil {
		log.Warn("Logger provider shutdown failed", zap.Error(err))
	}
}
