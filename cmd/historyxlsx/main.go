package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"msecli/internal/config"
	"msecli/internal/exporter"
	"msecli/internal/infrastructure"
	"msecli/internal/store"
	"msecli/internal/validation"
)

func main() {
	out := flag.String("out", "", "workbook path (default: <data dir>/history.xlsx)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Warning: Failed to load config, using defaults: %v\n", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	paths, err := config.GetPaths(cfg.Store)
	if err != nil {
		logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
		os.Exit(1)
	}

	summary, err := export(context.Background(), cfg.Store, paths, *out, logger)
	if err != nil {
		logger.Error("Export failed", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}

	fmt.Printf("Wrote %d records in %d sheets to %s\n", summary.Records, len(summary.Sheets), summary.Path)
}

func export(ctx context.Context, cfg config.StoreConfig, paths *config.Paths, out string, logger *slog.Logger) (*exporter.ExportSummary, error) {
	if out == "" {
		out = filepath.Join(paths.DataDir, "history.xlsx")
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateWorkbookPath(out); err != nil {
		return nil, err
	}
	if cfg.Driver == "" || cfg.Driver == "csv" {
		if _, err := validator.ValidateHistoryFile(paths.HistoryCSV); err != nil {
			return nil, err
		}
	}

	history, err := store.Open(cfg, paths, logger)
	if err != nil {
		return nil, err
	}
	defer history.Close()

	return exporter.NewWorkbookExporter(logger).Export(ctx, history, out)
}
