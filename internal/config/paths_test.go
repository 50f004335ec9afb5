package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	base := t.TempDir()

	t.Run("relative names resolve under the data directory", func(t *testing.T) {
		paths := NewPaths(base, StoreConfig{
			DataDir:         "data",
			IssuerCodesFile: "issuer_codes.csv",
			HistoryFile:     "10years_data.csv",
			SQLiteFile:      "history.db",
		})

		assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
		assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
		assert.Equal(t, filepath.Join(base, "data", "issuer_codes.csv"), paths.IssuerCodesCSV)
		assert.Equal(t, filepath.Join(base, "data", "10years_data.csv"), paths.HistoryCSV)
		assert.Equal(t, filepath.Join(base, "data", "history.db"), paths.HistoryDB)
	})

	t.Run("absolute paths are kept", func(t *testing.T) {
		abs := filepath.Join(base, "elsewhere", "history.csv")
		paths := NewPaths(base, StoreConfig{DataDir: filepath.Join(base, "d"), HistoryFile: abs})

		assert.Equal(t, filepath.Join(base, "d"), paths.DataDir)
		assert.Equal(t, abs, paths.HistoryCSV)
	})

	t.Run("empty names fall back to defaults", func(t *testing.T) {
		paths := NewPaths(base, StoreConfig{})

		assert.Equal(t, filepath.Join(base, DefaultDataDir, DefaultHistoryFile), paths.HistoryCSV)
		assert.Equal(t, filepath.Join(base, DefaultDataDir, DefaultIssuerCodesFile), paths.IssuerCodesCSV)
	})
}

func TestPaths_EnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths := NewPaths(base, StoreConfig{DataDir: "nested/data"})

	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.True(t, FileExists(paths.DataDir))
	assert.False(t, FileExists(paths.HistoryCSV))
	assert.Equal(t, filepath.Join(paths.LogsDir, "scraper.log"), paths.GetLogPath("scraper.log"))
}
