package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "dealpulse"
	ServiceVersion = "1.0.0"
	MeterName      = "dealpulse"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes OpenTelemetry tracing and metrics
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Underwriting metrics
	UnderwritingRunsTotal    metric.Int64Counter
	UnderwritingRunDuration  metric.Float64Histogram
	UnderwritingIRRUnsolved  metric.Int64Counter
	SensitivitySweepsTotal   metric.Int64Counter
	SensitivityCellsTotal    metric.Int64Counter
	SensitivityInvalidCells  metric.Int64Counter
	SensitivitySweepDuration metric.Float64Histogram

	// Job metrics
	JobExecutionsTotal metric.Int64Counter
	JobDuration        metric.Float64Histogram
	JobsActive         metric.Int64UpDownCounter
	JobErrors          metric.Int64Counter
	JobCancellations   metric.Int64Counter

	// Rent-roll metrics
	RentRollImportsTotal  metric.Int64Counter
	RentRollRowsTotal     metric.Int64Counter
	RentRollRejectedRows  metric.Int64Counter
	RentRollImportLatency metric.Float64Histogram

	// System metrics
	SystemErrors metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	underwritingRunsTotal, err := meter.Int64Counter(
		"underwriting_runs_total",
		metric.WithDescription("Total number of underwriting runs"),
	)
	if err != nil {
		return nil, err
	}

	underwritingRunDuration, err := meter.Float64Histogram(
		"underwriting_run_duration_seconds",
		metric.WithDescription("Underwriting run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	underwritingIRRUnsolved, err := meter.Int64Counter(
		"underwriting_irr_unsolved_total",
		metric.WithDescription("Total number of runs whose IRR had no solution"),
	)
	if err != nil {
		return nil, err
	}

	sensitivitySweepsTotal, err := meter.Int64Counter(
		"sensitivity_sweeps_total",
		metric.WithDescription("Total number of sensitivity sweeps"),
	)
	if err != nil {
		return nil, err
	}

	sensitivityCellsTotal, err := meter.Int64Counter(
		"sensitivity_cells_total",
		metric.WithDescription("Total number of sensitivity cells evaluated"),
	)
	if err != nil {
		return nil, err
	}

	sensitivityInvalidCells, err := meter.Int64Counter(
		"sensitivity_invalid_cells_total",
		metric.WithDescription("Total number of sensitivity cells that failed to evaluate"),
	)
	if err != nil {
		return nil, err
	}

	sensitivitySweepDuration, err := meter.Float64Histogram(
		"sensitivity_sweep_duration_seconds",
		metric.WithDescription("Sensitivity sweep duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	jobExecutionsTotal, err := meter.Int64Counter(
		"job_executions_total",
		metric.WithDescription("Total number of job executions"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		"job_duration_seconds",
		metric.WithDescription("Job execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	jobsActive, err := meter.Int64UpDownCounter(
		"jobs_active",
		metric.WithDescription("Number of jobs currently running"),
	)
	if err != nil {
		return nil, err
	}

	jobErrors, err := meter.Int64Counter(
		"job_errors_total",
		metric.WithDescription("Total number of job errors"),
	)
	if err != nil {
		return nil, err
	}

	jobCancellations, err := meter.Int64Counter(
		"job_cancellations_total",
		metric.WithDescription("Total number of job cancellations"),
	)
	if err != nil {
		return nil, err
	}

	rentRollImportsTotal, err := meter.Int64Counter(
		"rentroll_imports_total",
		metric.WithDescription("Total number of rent-roll imports"),
	)
	if err != nil {
		return nil, err
	}

	rentRollRowsTotal, err := meter.Int64Counter(
		"rentroll_rows_total",
		metric.WithDescription("Total number of rent-roll unit rows parsed"),
	)
	if err != nil {
		return nil, err
	}

	rentRollRejectedRows, err := meter.Int64Counter(
		"rentroll_rejected_rows_total",
		metric.WithDescription("Total number of rent-roll rows rejected during parsing"),
	)
	if err != nil {
		return nil, err
	}

	rentRollImportLatency, err := meter.Float64Histogram(
		"rentroll_import_duration_seconds",
		metric.WithDescription("Rent-roll import duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	systemErrors, err := meter.Int64Counter(
		"system_errors_total",
		metric.WithDescription("Total number of system errors"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,

		UnderwritingRunsTotal:    underwritingRunsTotal,
		UnderwritingRunDuration:  underwritingRunDuration,
		UnderwritingIRRUnsolved:  underwritingIRRUnsolved,
		SensitivitySweepsTotal:   sensitivitySweepsTotal,
		SensitivityCellsTotal:    sensitivityCellsTotal,
		SensitivityInvalidCells:  sensitivityInvalidCells,
		SensitivitySweepDuration: sensitivitySweepDuration,

		JobExecutionsTotal: jobExecutionsTotal,
		JobDuration:        jobDuration,
		JobsActive:         jobsActive,
		JobErrors:          jobErrors,
		JobCancellations:   jobCancellations,

		RentRollImportsTotal:  rentRollImportsTotal,
		RentRollRowsTotal:     rentRollRowsTotal,
		RentRollRejectedRows:  rentRollRejectedRows,
		RentRollImportLatency: rentRollImportLatency,

		SystemErrors: systemErrors,
	}, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordUnderwritingMetrics records metrics for a single underwriting run
func RecordUnderwritingMetrics(ctx context.Context, metrics *BusinessMetrics, dealName string, duration time.Duration, irrSolved bool, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}

	metrics.UnderwritingRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.UnderwritingRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err == nil && !irrSolved {
		metrics.UnderwritingIRRUnsolved.Add(ctx, 1)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("underwriting.run_recorded",
			trace.WithAttributes(
				attribute.String("deal", dealName),
				attribute.Bool("irr_solved", irrSolved),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordSensitivityMetrics records metrics for a sensitivity sweep
func RecordSensitivityMetrics(ctx context.Context, metrics *BusinessMetrics, cells, invalid int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}

	metrics.SensitivitySweepsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.SensitivitySweepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err == nil {
		metrics.SensitivityCellsTotal.Add(ctx, int64(cells))
		metrics.SensitivityInvalidCells.Add(ctx, int64(invalid))
	}
}

// RecordJobMetrics records metrics for a completed job
func RecordJobMetrics(ctx context.Context, metrics *BusinessMetrics, jobType string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("job.type", jobType),
		attribute.String("status", status),
	}

	metrics.JobExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.JobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		metrics.JobErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job.type", jobType),
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
	}
}

// RecordActiveJobChange records changes in the running job count
func RecordActiveJobChange(ctx context.Context, metrics *BusinessMetrics, delta int64, jobType string) {
	if metrics == nil {
		return
	}

	metrics.JobsActive.Add(ctx, delta, metric.WithAttributes(
		attribute.String("job.type", jobType),
	))
}

// RecordJobCancellation records a job cancellation
func RecordJobCancellation(ctx context.Context, metrics *BusinessMetrics, jobType, reason string) {
	if metrics == nil {
		return
	}

	metrics.JobCancellations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job.type", jobType),
		attribute.String("reason", reason),
	))
}

// RecordRentRollMetrics records metrics for a rent-roll import
func RecordRentRollMetrics(ctx context.Context, metrics *BusinessMetrics, rows, rejected int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}

	metrics.RentRollImportsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RentRollImportLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err == nil {
		metrics.RentRollRowsTotal.Add(ctx, int64(rows))
		metrics.RentRollRejectedRows.Add(ctx, int64(rejected))
	}
}
