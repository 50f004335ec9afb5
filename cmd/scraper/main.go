package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"msecli/internal/config"
	"msecli/internal/infrastructure"
	"msecli/internal/services"
	"msecli/internal/source"
	"msecli/internal/store"
	"msecli/pkg/contracts"
)

// options are the command line flags
type options struct {
	issuers       []string
	mode          string
	skipDiscovery bool
	version       bool
}

func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n", r)
			fmt.Printf("Stack trace:\n%s\n", debug.Stack())
			if logger != nil {
				logger.Error("Scraper panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Warning: Failed to load config, using defaults: %v\n", err)
		cfg = config.Default()
	}

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	paths, err := config.GetPaths(cfg.Store)
	if err != nil {
		logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
		os.Exit(1)
	}
	paths.LogPathResolution(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go monitorResources(ctx, logger)

	logger.Info("MSE history scraper starting",
		slog.String("version", contracts.Version),
		slog.String("git_commit", contracts.GitCommit),
		slog.String("mode", cfg.Fetch.Mode),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("data_dir", paths.DataDir))

	summary, err := run(ctx, cfg, paths, opts, logger)
	if err != nil {
		logger.Error("Scrape run failed", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}

	fmt.Printf("Run %s: %d issuers, %d reconciled, %d up to date, %d failed, %d rows appended in %s\n",
		summary.RunID, summary.Issuers, summary.Reconciled, summary.UpToDate,
		summary.Failed, summary.RowsAppended, summary.Duration.Round(time.Millisecond))
}

// parseFlags reads the command line. Flags override the configured mode.
func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	fs.SetOutput(output)

	issuers := fs.String("issuer", "", "comma separated issuer codes to process (default: all listed issuers)")
	mode := fs.String("mode", "", "run mode: catchup | legacy (default from configuration)")
	skipDiscovery := fs.Bool("skip-discovery", false, "reuse the issuer codes file instead of refreshing it")
	version := fs.Bool("version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{mode: *mode, skipDiscovery: *skipDiscovery, version: *version}
	for _, code := range strings.Split(*issuers, ",") {
		if code = strings.TrimSpace(code); code != "" {
			opts.issuers = append(opts.issuers, code)
		}
	}

	switch opts.mode {
	case "", config.ModeCatchUp, config.ModeLegacy:
	default:
		fmt.Fprintf(output, "invalid -mode %q\n", opts.mode)
		return nil, errors.New("invalid mode")
	}

	return opts, nil
}

// run wires the stores, the exchange client and telemetry and performs one
// scrape
func run(ctx context.Context, cfg *config.Config, paths *config.Paths, opts *options, logger *slog.Logger) (*services.RunSummary, error) {
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	history, err := store.Open(cfg.Store, paths, logger)
	if err != nil {
		return nil, err
	}
	defer history.Close()

	tel, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tel.WriteMetrics(cfg.Telemetry.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics", slog.String("error", err.Error()))
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down telemetry", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewScrapeMetrics(tel.Meter)
	if err != nil {
		return nil, err
	}

	client := source.NewClient(cfg.Source, source.WithLogger(logger))

	fetchCfg := cfg.Fetch
	if opts.mode != "" {
		fetchCfg.Mode = opts.mode
	}

	svc := services.NewHistoryService(fetchCfg, client, history, paths.IssuerCodesCSV,
		services.WithLogger(logger),
		services.WithTelemetry(tel, metrics))

	return svc.Run(ctx, services.RunOptions{
		Issuers:       opts.issuers,
		SkipDiscovery: opts.skipDiscovery,
	})
}

// monitorResources logs memory use until ctx is done
func monitorResources(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			logger.Debug("Resource usage",
				slog.Uint64("memory_alloc_mb", m.Alloc/1024/1024),
				slog.Uint64("memory_sys_mb", m.Sys/1024/1024),
				slog.Int("goroutines", runtime.NumGoroutine()))
		}
	}
}
