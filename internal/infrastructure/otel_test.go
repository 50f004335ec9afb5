package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msecli/internal/config"
)

func TestInitializeTelemetry_Disabled(t *testing.T) {
	tel, err := InitializeTelemetry(config.TelemetryConfig{Enabled: false}, NewLogger(&bytes.Buffer{}, "info"))
	require.NoError(t, err)

	assert.Nil(t, tel.TracerProvider)
	assert.Nil(t, tel.MeterProvider)
	assert.NotNil(t, tel.Tracer)
	assert.NotNil(t, tel.Meter)

	// nothing is written without a registry
	path := filepath.Join(t.TempDir(), "scraper.prom")
	require.NoError(t, tel.WriteMetrics(path))
	assert.False(t, config.FileExists(path))

	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestInitializeTelemetry_Enabled(t *testing.T) {
	dir := t.TempDir()
	cfg := config.TelemetryConfig{
		Enabled:     true,
		TraceFile:   filepath.Join(dir, "traces.json"),
		MetricsFile: filepath.Join(dir, "metrics", "scraper.prom"),
		SampleRatio: 1,
	}

	tel, err := InitializeTelemetry(cfg, NewLogger(&bytes.Buffer{}, "info"))
	require.NoError(t, err)
	require.NotNil(t, tel.TracerProvider)
	require.NotNil(t, tel.MeterProvider)
	require.NotNil(t, tel.Registry)

	ctx, span := tel.Tracer.Start(context.Background(), "reconcile.window")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	RecordError(ctx, errors.New("status 503"))
	span.End()

	metrics, err := NewScrapeMetrics(tel.Meter)
	require.NoError(t, err)
	metrics.RecordsAppended.Add(ctx, 3)
	metrics.RecordFetch(ctx, "ALK", 150*time.Millisecond, nil)

	require.NoError(t, tel.WriteMetrics(cfg.MetricsFile))
	content, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "mse_records_appended")
	assert.Contains(t, string(content), "mse_fetch_duration")

	require.NoError(t, tel.Shutdown(context.Background()))

	traces, err := os.ReadFile(cfg.TraceFile)
	require.NoError(t, err)
	assert.Contains(t, string(traces), "reconcile.window")
}

func TestNoopScrapeMetrics(t *testing.T) {
	m := NoopScrapeMetrics()
	require.NotNil(t, m)

	// recording on no-op instruments must not panic
	ctx := context.Background()
	m.WindowsFetched.Add(ctx, 1)
	m.RecordFetch(ctx, "ALK", time.Second, errors.New("boom"))
	assert.Empty(t, TraceIDFromContext(ctx))
}
