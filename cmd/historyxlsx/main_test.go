package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"msecli/internal/config"
	"msecli/internal/infrastructure"
	"msecli/internal/store"
	"msecli/pkg/contracts/domain"
)

func TestExport(t *testing.T) {
	cfg := config.StoreConfig{Driver: "csv"}
	paths := config.NewPaths(t.TempDir(), cfg)
	logger := infrastructure.NewLogger(&bytes.Buffer{}, "info")

	history := store.NewCSVStore(paths.HistoryCSV, logger)
	require.NoError(t, history.Append(context.Background(), []domain.TradingRecord{
		{IssuerCode: "ALK", TradeDate: "2024-03-01", Price: "100.00", Volume: "10", Change: "+1%"},
		{IssuerCode: "KMB", TradeDate: "2024-03-01", Price: "80.00", Volume: "3", Change: "0%"},
	}))

	summary, err := export(context.Background(), cfg, paths, "", logger)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.DataDir, "history.xlsx"), summary.Path)
	assert.Equal(t, 2, summary.Records)

	f, err := excelize.OpenFile(summary.Path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"ALK", "KMB"}, f.GetSheetList())
}

func TestExport_RejectsInvalidInput(t *testing.T) {
	cfg := config.StoreConfig{Driver: "csv"}
	paths := config.NewPaths(t.TempDir(), cfg)
	logger := infrastructure.NewLogger(&bytes.Buffer{}, "info")

	_, err := export(context.Background(), cfg, paths, filepath.Join(paths.DataDir, "history.csv"), logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".xlsx extension")

	require.NoError(t, os.MkdirAll(filepath.Dir(paths.HistoryCSV), 0755))
	require.NoError(t, os.WriteFile(paths.HistoryCSV, []byte("Code,Date\nALK,2024-03-01\n"), 0644))

	_, err = export(context.Background(), cfg, paths, "", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected")
}
