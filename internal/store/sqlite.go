package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	apperrors "msecli/internal/errors"
	"msecli/pkg/contracts/domain"
)

// SQLiteStore keeps the history in one SQLite table. Rows are read back in
// insertion order and a repeated (issuer_code, trade_date) is ignored.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLiteStore opens or creates the database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, apperrors.NewStorageError("create store directory", err).WithContext("path", path)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=FULL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("open database", err).WithContext("path", path)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("create schema", err).WithContext("path", path)
	}

	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trading_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		issuer_code TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		price TEXT NOT NULL DEFAULT '',
		volume TEXT NOT NULL DEFAULT '',
		change TEXT NOT NULL DEFAULT '',
		UNIQUE (issuer_code, trade_date)
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Scan implements Store
func (s *SQLiteStore) Scan(ctx context.Context) ([]domain.TradingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT issuer_code, trade_date, price, volume, change
		FROM trading_history
		ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewStorageError("query history", err).WithContext("path", s.path)
	}
	defer rows.Close()

	var records []domain.TradingRecord
	for rows.Next() {
		var r domain.TradingRecord
		if err := rows.Scan(&r.IssuerCode, &r.TradeDate, &r.Price, &r.Volume, &r.Change); err != nil {
			return nil, apperrors.NewStoreCorruptionError(s.path, len(records)+1, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("iterate history", err).WithContext("path", s.path)
	}
	return records, nil
}

// Append implements Store. The batch is written in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, records []domain.TradingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(records); err != nil {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid record", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("begin transaction", err).WithContext("path", s.path)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO trading_history (issuer_code, trade_date, price, volume, change)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.NewStorageError("prepare insert", err).WithContext("path", s.path)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.IssuerCode, r.TradeDate, r.Price, r.Volume, r.Change); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("insert record %d", i), err).WithContext("path", s.path)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("commit", err).WithContext("path", s.path)
	}

	s.logger.Debug("Appended records",
		slog.String("path", s.path),
		slog.Int("record_count", len(records)))
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
