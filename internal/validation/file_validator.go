package validation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"msecli/pkg/contracts/domain"
)

// FileValidator checks the files the command line tools read and write
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateOutputDirectory ensures dir exists or can be created and accepts writes
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

// ValidateWorkbookPath checks that path names an .xlsx file that can be written
func (v *FileValidator) ValidateWorkbookPath(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" {
		return fmt.Errorf("workbook %s must have the .xlsx extension (got %q)", path, ext)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("workbook %s is an Excel lock file name", path)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	return v.ValidateOutputDirectory(filepath.Dir(path))
}

// ValidateHistoryFile checks that an existing history CSV starts with the
// expected header. It reports false without error when the file is missing
// or empty.
func (v *FileValidator) ValidateHistoryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Warn("History file does not exist", slog.String("file", path))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		v.logger.Warn("History file is empty", slog.String("file", path))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	if !slices.Equal(header, domain.HistoryHeader) {
		v.logger.Error("Unexpected history header",
			slog.String("file", path),
			slog.Any("header", header))
		return false, fmt.Errorf("file %s has header %q, expected %q", path, header, domain.HistoryHeader)
	}

	v.logger.Debug("History file validated", slog.String("file", path))
	return true, nil
}
