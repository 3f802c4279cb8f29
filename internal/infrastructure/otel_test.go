package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestOTelInitialization exercises the full prometheus-backed pipeline.
// It is the only test in the package that registers a prometheus
// exporter, since the default registry is process-global.
func TestOTelInitialization(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "none"

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	require.NotNil(t, providers.MeterProvider)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.PrometheusHTTP)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.NotNil(t, metrics.HTTPRequestsTotal)
	assert.NotNil(t, metrics.HTTPRequestDuration)
	assert.NotNil(t, metrics.HTTPActiveRequests)
	assert.NotNil(t, metrics.UnderwritingRunsTotal)
	assert.NotNil(t, metrics.UnderwritingRunDuration)
	assert.NotNil(t, metrics.SensitivitySweepsTotal)
	assert.NotNil(t, metrics.JobExecutionsTotal)
	assert.NotNil(t, metrics.JobsActive)
	assert.NotNil(t, metrics.RentRollImportsTotal)
	assert.NotNil(t, metrics.SystemErrors)

	ctx := context.Background()
	RecordUnderwritingMetrics(ctx, metrics, "maple-court", 25*time.Millisecond, true, nil)
	RecordSensitivityMetrics(ctx, metrics, 30, 2, 120*time.Millisecond, nil)
	RecordJobMetrics(ctx, metrics, "sensitivity", time.Second, nil)
	RecordActiveJobChange(ctx, metrics, 1, "sensitivity")
	RecordActiveJobChange(ctx, metrics, -1, "sensitivity")
	RecordRentRollMetrics(ctx, metrics, 48, 1, 80*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "underwriting_runs_total"), "scrape should expose underwriting counters")
	assert.True(t, strings.Contains(body, "job_executions_total"), "scrape should expose job counters")
	assert.True(t, strings.Contains(body, "rentroll_imports_total"), "scrape should expose rent-roll counters")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(shutdownCtx))
}

func TestTraceCorrelation(t *testing.T) {
	cfg := &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "test",
		TraceExporter:  "stdout",
		MetricExporter: "none",
		EnableTracing:  true,
		EnableMetrics:  false,
		SampleRatio:    1.0,
	}

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	tracer := otel.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
}

func TestTraceIDFromContextWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestUnsupportedExporters(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "jaeger"

	_, err := InitializeOTel(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")

	cfg = DefaultOTelConfig()
	cfg.EnableTracing = false
	cfg.MetricExporter = "statsd"

	_, err = InitializeOTel(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported metric exporter")
}

func TestRecordHelpersNilMetrics(t *testing.T) {
	ctx := context.Background()

	// Nil metrics must be silently tolerated so call sites can run
	// before observability is wired up.
	RecordUnderwritingMetrics(ctx, nil, "deal", time.Second, true, nil)
	RecordSensitivityMetrics(ctx, nil, 10, 0, time.Second, nil)
	RecordJobMetrics(ctx, nil, "underwrite", time.Second, errors.New("boom"))
	RecordActiveJobChange(ctx, nil, 1, "underwrite")
	RecordJobCancellation(ctx, nil, "underwrite", "requested")
	RecordRentRollMetrics(ctx, nil, 0, 0, time.Second, nil)
	RecordError(ctx, errors.New("boom"))
	AddSpanEvent(ctx, "event", map[string]any{"k": "v"})
}

func TestDefaultOTelConfig(t *testing.T) {
	cfg := DefaultOTelConfig()

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, ServiceVersion, cfg.ServiceVersion)
	assert.True(t, cfg.EnableTracing)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, 1.0, cfg.SampleRatio)
	assert.Equal(t, "prometheus", cfg.MetricExporter)
}

func TestShutdownWithoutProviders(t *testing.T) {
	providers := &OTelProviders{Logger: testLogger()}
	assert.NoError(t, providers.Shutdown(context.Background()))
}
