package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/buildtrack/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, Config{Enabled: false, ServiceName: "test-service"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping exporter test in short mode")
	}

	ctx := context.Background()
	cfg := Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "test-service",
		Insecure:          true,
	}

	// the gRPC exporter connects lazily, so no collector is needed to build the provider
	tp, err := NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = tp.Shutdown(shutdownCtx)
}

func TestFromTelemetryConfig(t *testing.T) {
	cfg := FromTelemetryConfig(config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.25,
		ServiceName:       "buildtrack-backend",
		Insecure:          true,
	}, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel:4317", cfg.CollectorEndpoint)
	assert.Equal(t, 0.25, cfg.SamplingRatio)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.False(t, cfg.MetricsEnabled)
	assert.False(t, cfg.LogsEnabled)

	// metrics and logs ride on the master switch
	cfg = FromTelemetryConfig(config.TelemetryConfig{MetricsEnabled: true, LogsEnabled: true}, "")
	assert.False(t, cfg.MetricsEnabled)
	assert.False(t, cfg.LogsEnabled)
}

func TestNewResource(t *testing.T) {
	res, err := newResource(Config{ServiceName: "buildtrack-backend"})
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "buildtrack-backend", attrs["service.name"])
	assert.Equal(t, "dev", attrs["service.version"])
}

func TestEnableSpanProfiles_DisabledTracing(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	tp.EnableSpanProfiles()
	assert.False(t, tp.spanProfiles)
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")

	var _ sdktrace.Sampler = samplerFor(0.5)
}
