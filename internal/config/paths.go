package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations.
type Paths struct {
	BaseDir string
	DataDir string
	LogsDir string

	// Stores
	IssuerCodesCSV string
	HistoryCSV     string
	HistoryDB      string
}

// GetPaths resolves the store paths from configuration.
// Relative directories are resolved against the working directory.
func GetPaths(cfg StoreConfig) (*Paths, error) {
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewPaths(baseDir, cfg), nil
}

// NewPaths builds paths below baseDir
func NewPaths(baseDir string, cfg StoreConfig) *Paths {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(baseDir, dataDir)
	}

	resolve := func(name, fallback string) string {
		if name == "" {
			name = fallback
		}
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(dataDir, name)
	}

	return &Paths{
		BaseDir:        baseDir,
		DataDir:        dataDir,
		LogsDir:        filepath.Join(baseDir, "logs"),
		IssuerCodesCSV: resolve(cfg.IssuerCodesFile, DefaultIssuerCodesFile),
		HistoryCSV:     resolve(cfg.HistoryFile, DefaultHistoryFile),
		HistoryDB:      resolve(cfg.SQLiteFile, DefaultSQLiteFile),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.LogsDir,
		filepath.Dir(p.IssuerCodesCSV),
		filepath.Dir(p.HistoryCSV),
		filepath.Dir(p.HistoryDB),
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("stores",
			slog.String("issuer_codes", p.IssuerCodesCSV),
			slog.String("history_csv", p.HistoryCSV),
			slog.String("history_db", p.HistoryDB),
		))
}
