package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	apperrors "msecli/internal/errors"
	"msecli/pkg/contracts/domain"
)

// CSVStore keeps the history in a comma separated file with a header line
type CSVStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewCSVStore creates a store backed by the file at path. The file is
// created on the first Append.
func NewCSVStore(path string, logger *slog.Logger) *CSVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStore{path: path, logger: logger}
}

// Path returns the backing file
func (s *CSVStore) Path() string {
	return s.path
}

// Scan reads all records after the header. A missing file is an empty
// store. A row with the wrong number of columns is reported as store
// corruption rather than skipped.
func (s *CSVStore) Scan(ctx context.Context) ([]domain.TradingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("open history store", err).WithContext("path", s.path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var records []domain.TradingRecord
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, apperrors.NewStoreCorruptionError(s.path, parseErr.StartLine, err)
			}
			return nil, apperrors.NewStorageError("read history store", err).WithContext("path", s.path)
		}
		if header {
			header = false
			continue
		}

		record, err := domain.TradingRecordFromRow(row)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, apperrors.NewStoreCorruptionError(s.path, line, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// Append writes records at the end of the file, preceded by the header when
// the file is empty, and syncs before returning
func (s *CSVStore) Append(ctx context.Context, records []domain.TradingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return apperrors.NewStorageError("create store directory", err).WithContext("path", s.path)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return apperrors.NewStorageError("open history store", err).WithContext("path", s.path)
	}

	if err := s.writeRecords(file, records); err != nil {
		file.Close()
		return apperrors.NewStorageError("append history", err).WithContext("path", s.path)
	}
	if err := file.Close(); err != nil {
		return apperrors.NewStorageError("close history store", err).WithContext("path", s.path)
	}

	s.logger.Debug("Appended records",
		slog.String("path", s.path),
		slog.Int("record_count", len(records)))
	return nil
}

func (s *CSVStore) writeRecords(file *os.File, records []domain.TradingRecord) error {
	info, err := file.Stat()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(domain.HistoryHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record.Row()); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Sync()
}

// Close implements Store. The file is only held open during Append.
func (s *CSVStore) Close() error {
	return nil
}
