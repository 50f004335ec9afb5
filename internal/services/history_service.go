package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"msecli/internal/config"
	apperrors "msecli/internal/errors"
	"msecli/internal/infrastructure"
	"msecli/internal/reconcile"
	"msecli/internal/store"
)

// HistorySource is what the driver needs from the exchange
type HistorySource interface {
	reconcile.Fetcher
	ListIssuers(ctx context.Context) ([]string, error)
}

// RunOptions narrows a single run
type RunOptions struct {
	// Issuers restricts the run to these codes when non-empty
	Issuers []string
	// SkipDiscovery reuses the issuer-codes file as is
	SkipDiscovery bool
}

// IssuerOutcome is the result of processing one issuer
type IssuerOutcome struct {
	Issuer         string
	NeedsFetch     bool
	EngineRuns     int
	RowsAppended   int
	WindowsSkipped int
	Err            error
}

// RunSummary reports a complete run
type RunSummary struct {
	RunID        string
	Mode         string
	Discovered   int
	Issuers      int
	Reconciled   int
	UpToDate     int
	Failed       int
	RowsAppended int
	Duration     time.Duration
	Outcomes     []IssuerOutcome
}

// HistoryService drives a scrape run over all issuers
type HistoryService struct {
	cfg             config.FetchConfig
	source          HistorySource
	store           store.Store
	issuerCodesPath string
	logger          *slog.Logger
	tel             *infrastructure.Telemetry
	metrics         *infrastructure.ScrapeMetrics
	now             func() time.Time
}

// Option configures a HistoryService
type Option func(*HistoryService)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *HistoryService) {
		s.logger = logger
	}
}

// WithTelemetry records spans and scrape counters
func WithTelemetry(tel *infrastructure.Telemetry, metrics *infrastructure.ScrapeMetrics) Option {
	return func(s *HistoryService) {
		s.tel = tel
		s.metrics = metrics
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *HistoryService) {
		s.now = now
	}
}

// NewHistoryService creates the driver
func NewHistoryService(cfg config.FetchConfig, source HistorySource, history store.Store, issuerCodesPath string, opts ...Option) *HistoryService {
	s := &HistoryService{
		cfg:             cfg,
		source:          source,
		store:           history,
		issuerCodesPath: issuerCodesPath,
		logger:          slog.Default(),
		tel:             infrastructure.NoopTelemetry(),
		metrics:         infrastructure.NoopScrapeMetrics(),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.Mode == "" {
		s.cfg.Mode = config.ModeCatchUp
	}
	if s.cfg.WindowDays == 0 {
		s.cfg.WindowDays = config.DefaultWindowDays
	}

	return s
}

// Run discovers issuers and reconciles each of them. The returned error is
// reserved for failures that stop the whole run; per-issuer failures are
// recorded in the summary.
func (s *HistoryService) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	if s.cfg.Mode != config.ModeCatchUp && s.cfg.Mode != config.ModeLegacy {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, s.cfg.Mode)
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := s.tel.Tracer.Start(ctx, "scrape.run",
		trace.WithAttributes(attribute.String("mode", s.cfg.Mode)))
	defer span.End()

	started := time.Now()
	summary := &RunSummary{RunID: infrastructure.GetTraceID(ctx), Mode: s.cfg.Mode}
	logger := infrastructure.WithComponent(s.logger, "driver")

	logger.InfoContext(ctx, "Scrape run started",
		slog.String("mode", s.cfg.Mode),
		slog.Bool("skip_discovery", opts.SkipDiscovery))

	if !opts.SkipDiscovery {
		summary.Discovered = s.discover(ctx, logger)
	}

	codes, err := store.ReadIssuerCodes(s.issuerCodesPath)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return summary, fmt.Errorf("%w: %w", ErrNoIssuers, err)
	}
	codes = filterIssuers(codes, opts.Issuers, logger)
	if len(codes) == 0 {
		return summary, ErrNoIssuers
	}
	summary.Issuers = len(codes)

	for _, issuer := range codes {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}

		outcome := s.processIssuer(ctx, issuer)
		if outcome.Err != nil && ctx.Err() != nil {
			summary.Duration = time.Since(started)
			return summary, ctx.Err()
		}

		summary.add(outcome)
		s.metrics.IssuersProcessed.Add(ctx, 1)
		if outcome.Err != nil {
			s.metrics.IssuersFailed.Add(ctx, 1)
		}
	}

	summary.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("issuers", summary.Issuers),
		attribute.Int("rows_appended", summary.RowsAppended),
		attribute.Int("failed", summary.Failed))

	logger.InfoContext(ctx, "Scrape run finished",
		slog.Int("issuers", summary.Issuers),
		slog.Int("reconciled", summary.Reconciled),
		slog.Int("up_to_date", summary.UpToDate),
		slog.Int("failed", summary.Failed),
		slog.Int("rows_appended", summary.RowsAppended),
		slog.Duration("duration", summary.Duration))

	return summary, nil
}

// discover refreshes the issuer-codes file. Failures leave the existing
// file in place.
func (s *HistoryService) discover(ctx context.Context, logger *slog.Logger) int {
	codes, err := s.source.ListIssuers(ctx)
	if err != nil {
		infrastructure.WithError(logger, err).WarnContext(ctx, "Issuer discovery failed, using existing issuer codes",
			slog.String("path", s.issuerCodesPath),
			slog.Int("status_code", apperrors.StatusCode(err)))
		return 0
	}
	if len(codes) == 0 {
		logger.WarnContext(ctx, "Issuer discovery returned no codes, using existing issuer codes")
		return 0
	}

	if err := store.WriteIssuerCodes(s.issuerCodesPath, codes); err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Failed to write issuer codes")
		return len(codes)
	}

	logger.InfoContext(ctx, "Issuer codes refreshed",
		slog.Int("count", len(codes)),
		slog.String("path", s.issuerCodesPath))
	return len(codes)
}

func (s *HistoryService) processIssuer(ctx context.Context, issuer string) IssuerOutcome {
	logger := infrastructure.WithIssuer(infrastructure.WithComponent(s.logger, "driver"), issuer)
	outcome := IssuerOutcome{Issuer: issuer}

	needs, err := reconcile.NeedsFetch(ctx, s.store, issuer, s.now())
	if err != nil {
		outcome.Err = err
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Failed to read history store")
		return outcome
	}
	outcome.NeedsFetch = needs

	engine := reconcile.NewEngine(s.source, s.store,
		reconcile.WithLogger(s.logger),
		reconcile.WithTelemetry(s.tel, s.metrics),
		reconcile.WithWindows(s.cfg.LookbackYears, s.cfg.WindowDays),
		reconcile.WithClock(s.now))

	runs := 0
	if needs {
		runs++
	}
	if s.cfg.Mode == config.ModeLegacy {
		runs++
	}
	if runs == 0 {
		logger.InfoContext(ctx, "Issuer is up to date")
		return outcome
	}

	for i := 0; i < runs; i++ {
		result, err := engine.Run(ctx, issuer)
		outcome.EngineRuns++
		if result != nil {
			outcome.RowsAppended += result.RowsAppended
			outcome.WindowsSkipped += result.WindowsSkipped
		}
		if err != nil {
			outcome.Err = err
			infrastructure.WithError(logger, err).ErrorContext(ctx, "Reconciliation aborted",
				slog.Int("rows_appended", outcome.RowsAppended))
			return outcome
		}
	}

	return outcome
}

func (r *RunSummary) add(o IssuerOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.RowsAppended += o.RowsAppended
	switch {
	case o.Err != nil:
		r.Failed++
	case o.EngineRuns == 0:
		r.UpToDate++
	default:
		r.Reconciled++
	}
}

// filterIssuers keeps the codes named in only, in file order. Names that
// are not listed are reported and ignored.
func filterIssuers(codes, only []string, logger *slog.Logger) []string {
	if len(only) == 0 {
		return codes
	}

	wanted := make(map[string]bool, len(only))
	for _, code := range only {
		wanted[code] = true
	}

	var kept []string
	for _, code := range codes {
		if wanted[code] {
			kept = append(kept, code)
			delete(wanted, code)
		}
	}
	for code := range wanted {
		logger.Warn("Requested issuer is not listed", slog.String("issuer", code))
	}
	return kept
}
