package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"msecli/internal/config"
)

const (
	ServiceName = "mse-history-scraper"
	MeterName   = "msecli"
)

// Telemetry holds the tracer and meter used by a scrape run
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *promclient.Registry

	traceFile *os.File
	logger    *slog.Logger
}

// NoopTelemetry returns telemetry that records nothing
func NoopTelemetry() *Telemetry {
	return &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		logger: slog.Default(),
	}
}

// InitializeTelemetry sets up tracing to cfg.TraceFile and metrics on a
// private Prometheus registry. Disabled telemetry yields no-op providers.
func InitializeTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}
	if !cfg.Enabled {
		t := NoopTelemetry()
		t.logger = logger
		return t, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	t := &Telemetry{logger: logger}

	if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	traceFile, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	t.traceFile = traceFile

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(traceFile))
	if err != nil {
		traceFile.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	t.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	t.Tracer = t.TracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))

	t.Registry = promclient.NewRegistry()
	metricExporter, err := otelprom.New(otelprom.WithRegisterer(t.Registry))
	if err != nil {
		traceFile.Close()
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(metricExporter),
	)
	t.Meter = t.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))

	logger.Info("Telemetry initialized",
		slog.String("trace_file", cfg.TraceFile),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return t, nil
}

// WriteMetrics dumps the registry in Prometheus text format, suitable for the
// node_exporter textfile collector. It is a no-op when telemetry is disabled.
func (t *Telemetry) WriteMetrics(path string) error {
	if t.Registry == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := promclient.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Shutdown flushes spans and releases the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file close: %w", err))
		}
		t.traceFile = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}
	return nil
}

// ScrapeMetrics holds the counters recorded by a scrape run
type ScrapeMetrics struct {
	WindowsFetched   metric.Int64Counter
	WindowsSkipped   metric.Int64Counter
	WindowsEmpty     metric.Int64Counter
	RecordsAppended  metric.Int64Counter
	RecordsDuplicate metric.Int64Counter
	IssuersProcessed metric.Int64Counter
	IssuersFailed    metric.Int64Counter
	FetchDuration    metric.Float64Histogram
}

// NewScrapeMetrics creates the scrape instruments on meter
func NewScrapeMetrics(meter metric.Meter) (*ScrapeMetrics, error) {
	m := &ScrapeMetrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.WindowsFetched, "mse.windows.fetched", "Date windows fetched from the exchange"},
		{&m.WindowsSkipped, "mse.windows.skipped", "Date windows skipped after a transport failure"},
		{&m.WindowsEmpty, "mse.windows.empty", "Date windows without a data table"},
		{&m.RecordsAppended, "mse.records.appended", "Trading records appended to the store"},
		{&m.RecordsDuplicate, "mse.records.duplicate", "Fetched records already present in the store"},
		{&m.IssuersProcessed, "mse.issuers.processed", "Issuers reconciled"},
		{&m.IssuersFailed, "mse.issuers.failed", "Issuers aborted by a store failure"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	histogram, err := meter.Float64Histogram(
		"mse.fetch.duration",
		metric.WithDescription("History request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	m.FetchDuration = histogram

	return m, nil
}

// NoopScrapeMetrics returns instruments that record nothing
func NoopScrapeMetrics() *ScrapeMetrics {
	m, _ := NewScrapeMetrics(metricnoop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordFetch records one history request
func (m *ScrapeMetrics) RecordFetch(ctx context.Context, issuer string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.FetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("issuer", issuer),
		attribute.String("status", status),
	))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}
