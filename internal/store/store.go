package store

import (
	"context"
	"fmt"
	"log/slog"

	"msecli/internal/config"
	"msecli/pkg/contracts/domain"
)

// Store is an append-only sequence of trading records
type Store interface {
	// Scan returns every record in the order it was appended
	Scan(ctx context.Context) ([]domain.TradingRecord, error)
	// Append durably adds records after the existing ones
	Append(ctx context.Context, records []domain.TradingRecord) error
	Close() error
}

// Open returns the history store selected by cfg.Driver
func Open(cfg config.StoreConfig, paths *config.Paths, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "csv":
		return NewCSVStore(paths.HistoryCSV, logger), nil
	case "sqlite":
		return OpenSQLiteStore(paths.HistoryDB, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// validateRecords rejects the batch if any record lacks its key fields
func validateRecords(records []domain.TradingRecord) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d (%s): %w", i, r.Key(), err)
		}
	}
	return nil
}
