package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"trialmerge/internal/config"
	"trialmerge/pkg/contracts"
)

// InstrumentationName names the meter and tracer
const InstrumentationName = "trialmerge"

// Telemetry holds the OpenTelemetry providers for one process.
// Disabled signals fall back to no-op implementations, so callers never nil-check.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *promclient.Registry
	logger         *slog.Logger
}

// InitializeTelemetry sets up tracing and metrics according to cfg
func InitializeTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(contracts.Version),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	)

	t := &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		Meter:  metricnoop.NewMeterProvider().Meter(InstrumentationName),
		logger: logger,
	}

	if cfg.EnableTracing && cfg.TraceExporter == "stdout" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		t.TracerProvider = tp
		t.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(contracts.Version))
		otel.SetTracerProvider(tp)
	}

	if cfg.EnableMetrics && cfg.MetricExporter == "prometheus" {
		reg := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		t.Registry = reg
		t.MeterProvider = mp
		t.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(contracts.Version))
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "Telemetry initialized",
		slog.Bool("tracing_enabled", t.TracerProvider != nil),
		slog.Bool("metrics_enabled", t.MeterProvider != nil))

	return t, nil
}

// NoopTelemetry returns telemetry that records nothing
func NoopTelemetry() *Telemetry {
	return &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		Meter:  metricnoop.NewMeterProvider().Meter(InstrumentationName),
		logger: slog.Default(),
	}
}

// MetricsHandler serves the Prometheus scrape endpoint.
// It returns nil when metrics are disabled.
func (t *Telemetry) MetricsHandler() http.Handler {
	if t.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IngestMetrics counts what the merge pipeline did
type IngestMetrics struct {
	FilesParsed          metric.Int64Counter
	FilesFailed          metric.Int64Counter
	RowsEmitted          metric.Int64Counter
	RowsRejected         metric.Int64Counter
	CellCoercionFailures metric.Int64Counter
	MergeDuration        metric.Float64Histogram
}

// NewIngestMetrics creates the pipeline instruments on meter
func NewIngestMetrics(meter metric.Meter) (*IngestMetrics, error) {
	var (
		m   IngestMetrics
		err error
	)

	if m.FilesParsed, err = meter.Int64Counter("files_parsed",
		metric.WithDescription("Files that produced at least one row")); err != nil {
		return nil, err
	}
	if m.FilesFailed, err = meter.Int64Counter("files_failed",
		metric.WithDescription("Files skipped because of a file-level failure")); err != nil {
		return nil, err
	}
	if m.RowsEmitted, err = meter.Int64Counter("rows_emitted",
		metric.WithDescription("Rows added to the master table")); err != nil {
		return nil, err
	}
	if m.RowsRejected, err = meter.Int64Counter("rows_rejected",
		metric.WithDescription("Data rows dropped during parsing")); err != nil {
		return nil, err
	}
	if m.CellCoercionFailures, err = meter.Int64Counter("cell_coercion_failures",
		metric.WithDescription("Cells replaced by their default value")); err != nil {
		return nil, err
	}
	if m.MergeDuration, err = meter.Float64Histogram("merge_duration_seconds",
		metric.WithDescription("Wall time of one merge batch"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return &m, nil
}

// MustIngestMetrics is NewIngestMetrics for no-op meters, which never fail
func MustIngestMetrics(meter metric.Meter) *IngestMetrics {
	m, err := NewIngestMetrics(meter)
	if err != nil {
		panic(fmt.Sprintf("failed to create ingest metrics: %v", err))
	}
	return m
}

// RecordFileFailure counts one failed file, labelled with its failure kind
func (m *IngestMetrics) RecordFileFailure(ctx context.Context, kind string) {
	m.FilesFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordMergeDuration records how long one batch took
func (m *IngestMetrics) RecordMergeDuration(ctx context.Context, d time.Duration, files int) {
	m.MergeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Int("files", files)))
}

// RecordError marks the span in ctx as failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
