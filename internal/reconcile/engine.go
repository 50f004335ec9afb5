package reconcile

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"msecli/internal/config"
	"msecli/internal/dataprocessing"
	"msecli/internal/infrastructure"
	"msecli/internal/store"
	"msecli/pkg/contracts/domain"
)

// Fetcher returns the raw history rows of one issuer and date window
type Fetcher interface {
	FetchWindow(ctx context.Context, issuer string, window domain.DateWindow) (*domain.WindowResult, error)
}

// RunResult summarizes one Engine.Run
type RunResult struct {
	Issuer         string
	Windows        int
	WindowsFetched int
	WindowsSkipped int
	WindowsEmpty   int
	RowsAppended   int
	RowsSkipped    int
	// RowsUnparsed counts appended rows whose date or price kept its raw text
	RowsUnparsed int
}

// Engine reconciles the remote history of an issuer with the store
type Engine struct {
	fetcher Fetcher
	store   store.Store
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.ScrapeMetrics
	now     func() time.Time

	lookbackYears int
	windowDays    int
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTelemetry records spans and counters for every window
func WithTelemetry(tel *infrastructure.Telemetry, metrics *infrastructure.ScrapeMetrics) EngineOption {
	return func(e *Engine) {
		e.tracer = tel.Tracer
		e.metrics = metrics
	}
}

// WithWindows sets how many years back to walk and the width of a window
func WithWindows(lookbackYears, windowDays int) EngineOption {
	return func(e *Engine) {
		e.lookbackYears = lookbackYears
		e.windowDays = windowDays
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine reading from fetcher and appending to s
func NewEngine(fetcher Fetcher, s store.Store, opts ...EngineOption) *Engine {
	noop := infrastructure.NoopTelemetry()
	e := &Engine{
		fetcher:       fetcher,
		store:         s,
		logger:        slog.Default(),
		tracer:        noop.Tracer,
		metrics:       infrastructure.NoopScrapeMetrics(),
		now:           time.Now,
		lookbackYears: config.DefaultLookbackYears,
		windowDays:    config.DefaultWindowDays,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Windows lists the date windows walked at now. The first starts on
// January 1 of now's year and each later one a year earlier, down to
// lookbackYears before now's year. A window spans windowDays and never
// ends after now.
func Windows(now time.Time, lookbackYears, windowDays int) []domain.DateWindow {
	var windows []domain.DateWindow

	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	for start.Year() >= now.Year()-lookbackYears {
		end := start.AddDate(0, 0, windowDays)
		if end.After(now) {
			end = now
		}
		windows = append(windows, domain.DateWindow{Start: start, End: end})
		start = start.AddDate(-1, 0, 0)
	}

	return windows
}

// Run fetches every window for issuer and appends the rows the store does
// not hold yet. A window that cannot be fetched is skipped; a store failure
// ends the run and is returned with the partial result.
func (e *Engine) Run(ctx context.Context, issuer string) (*RunResult, error) {
	ctx, span := e.tracer.Start(ctx, "reconcile.issuer",
		trace.WithAttributes(attribute.String("issuer", issuer)))
	defer span.End()

	logger := infrastructure.WithIssuer(infrastructure.WithComponent(e.logger, "reconcile"), issuer)
	result := &RunResult{Issuer: issuer}

	index, err := BuildIndex(ctx, e.store, issuer)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return result, err
	}

	windows := Windows(e.now(), e.lookbackYears, e.windowDays)
	result.Windows = len(windows)

	logger.InfoContext(ctx, "Reconciling issuer",
		slog.Int("windows", len(windows)),
		slog.Int("stored_dates", index.Len()))

	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := e.runWindow(ctx, logger, index, window, result); err != nil {
			infrastructure.RecordError(ctx, err)
			return result, err
		}
	}

	span.SetAttributes(
		attribute.Int("rows_appended", result.RowsAppended),
		attribute.Int("windows_skipped", result.WindowsSkipped))

	logger.InfoContext(ctx, "Issuer reconciled",
		slog.Int("rows_appended", result.RowsAppended),
		slog.Int("rows_skipped", result.RowsSkipped),
		slog.Int("windows_skipped", result.WindowsSkipped),
		slog.Int("windows_empty", result.WindowsEmpty))

	return result, nil
}

// runWindow handles one window. Only store and context errors are returned.
func (e *Engine) runWindow(ctx context.Context, logger *slog.Logger, index *ExistenceIndex, window domain.DateWindow, result *RunResult) error {
	ctx, span := e.tracer.Start(ctx, "reconcile.window", trace.WithAttributes(
		attribute.String("from", window.FromParam()),
		attribute.String("to", window.ToParam())))
	defer span.End()

	issuer := index.Issuer()
	issuerAttr := metric.WithAttributes(attribute.String("issuer", issuer))
	logger = logger.With(slog.String("window", window.String()))

	started := time.Now()
	fetched, err := e.fetcher.FetchWindow(ctx, issuer, window)
	e.metrics.RecordFetch(ctx, issuer, time.Since(started), err)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result.WindowsSkipped++
		e.metrics.WindowsSkipped.Add(ctx, 1, issuerAttr)
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(logger, err).WarnContext(ctx, "Failed to fetch window, skipping")
		return nil
	}

	result.WindowsFetched++
	e.metrics.WindowsFetched.Add(ctx, 1, issuerAttr)

	if !fetched.TableFound {
		result.WindowsEmpty++
		e.metrics.WindowsEmpty.Add(ctx, 1, issuerAttr)
		logger.InfoContext(ctx, "No table found for window",
			slog.String("response_preview", fetched.Preview))
		return nil
	}

	fresh := e.newRecords(ctx, logger, index, fetched.Rows, result)
	if len(fresh) == 0 {
		return nil
	}

	if err := e.store.Append(ctx, fresh); err != nil {
		return err
	}

	result.RowsAppended += len(fresh)
	e.metrics.RecordsAppended.Add(ctx, int64(len(fresh)), issuerAttr)
	logger.InfoContext(ctx, "Appended new records", slog.Int("record_count", len(fresh)))
	return nil
}

// newRecords normalizes rows and keeps those whose date is not indexed.
// Accepted dates are added to the index so a repeated row is kept once.
func (e *Engine) newRecords(ctx context.Context, logger *slog.Logger, index *ExistenceIndex, rows []domain.RawRow, result *RunResult) []domain.TradingRecord {
	var fresh []domain.TradingRecord

	for _, row := range rows {
		date := dataprocessing.NormalizeDate(row.Date)
		price := dataprocessing.NormalizePrice(row.Price)

		record := domain.TradingRecord{
			IssuerCode: index.Issuer(),
			TradeDate:  date.String(),
			Price:      price.String(),
			Volume:     row.Volume,
			Change:     row.Change,
		}
		if err := record.Validate(); err != nil {
			logger.WarnContext(ctx, "Dropping row without a date", slog.Any("row", row))
			continue
		}

		if index.Exists(record.TradeDate) {
			result.RowsSkipped++
			e.metrics.RecordsDuplicate.Add(ctx, 1)
			logger.DebugContext(ctx, "Record already stored", slog.String("date", record.TradeDate))
			continue
		}

		if !date.Parsed || !price.Parsed {
			result.RowsUnparsed++
			logger.DebugContext(ctx, "Keeping raw text for unparsed field",
				slog.String("date", record.TradeDate),
				slog.String("price", record.Price))
		}

		index.Add(record.TradeDate)
		fresh = append(fresh, record)
	}

	return fresh
}
