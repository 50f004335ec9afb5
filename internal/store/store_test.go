package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msecli/internal/config"
	"msecli/pkg/contracts/domain"
)

func TestOpen(t *testing.T) {
	paths := config.NewPaths(t.TempDir(), config.StoreConfig{})

	tests := []struct {
		driver  string
		want    interface{}
		wantErr bool
	}{
		{driver: "", want: &CSVStore{}},
		{driver: "csv", want: &CSVStore{}},
		{driver: "sqlite", want: &SQLiteStore{}},
		{driver: "postgres", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s, err := Open(config.StoreConfig{Driver: tt.driver}, paths, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}

	csvStore, err := Open(config.StoreConfig{Driver: "csv"}, paths, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.DataDir, config.DefaultHistoryFile), csvStore.(*CSVStore).Path())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(record("ALK", "2024-03-01", "100.00"))

	require.NoError(t, m.Append(ctx, nil))
	require.NoError(t, m.Append(ctx, []domain.TradingRecord{record("ALK", "2024-03-02", "101.00")}))
	assert.Equal(t, 1, m.Appends())

	got, err := m.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	m.AppendErr = errors.New("disk full")
	assert.EqualError(t, m.Append(ctx, []domain.TradingRecord{record("ALK", "2024-03-03", "1.00")}), "disk full")
}
