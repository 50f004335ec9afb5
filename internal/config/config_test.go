package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray config.yaml
// or .env is picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(originalDir) })
	return dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		configFile  string
		dotEnv      string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultListingURL, cfg.Source.ListingURL)
				assert.Equal(t, DefaultHistoryURL, cfg.Source.HistoryURL)
				assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
				assert.Equal(t, 3, cfg.Source.MaxAttempts)
				assert.Equal(t, time.Second, cfg.Source.RetryBackoff)
				assert.Equal(t, 2.0, cfg.Source.RateLimit)

				assert.Equal(t, "csv", cfg.Store.Driver)
				assert.Equal(t, "data", cfg.Store.DataDir)
				assert.Equal(t, "issuer_codes.csv", cfg.Store.IssuerCodesFile)
				assert.Equal(t, "10years_data.csv", cfg.Store.HistoryFile)

				assert.Equal(t, 10, cfg.Fetch.LookbackYears)
				assert.Equal(t, 365, cfg.Fetch.WindowDays)
				assert.Equal(t, ModeCatchUp, cfg.Fetch.Mode)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.False(t, cfg.Telemetry.Enabled)
			},
		},
		{
			name: "custom environment variables",
			env: map[string]string{
				"MSE_SOURCE_TIMEOUT":       "5s",
				"MSE_STORE_DRIVER":         "sqlite",
				"MSE_FETCH_MODE":           "legacy",
				"MSE_FETCH_LOOKBACK_YEARS": "2",
				"MSE_LOGGING_LEVEL":        "debug",
				"MSE_LOGGING_FORMAT":       "text",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
				assert.Equal(t, "sqlite", cfg.Store.Driver)
				assert.Equal(t, ModeLegacy, cfg.Fetch.Mode)
				assert.Equal(t, 2, cfg.Fetch.LookbackYears)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format) // validate() forces json
			},
		},
		{
			name:    "unknown store driver",
			env:     map[string]string{"MSE_STORE_DRIVER": "postgres"},
			wantErr: true,
		},
		{
			name:    "unknown fetch mode",
			env:     map[string]string{"MSE_FETCH_MODE": "eager"},
			wantErr: true,
		},
		{
			name:    "window wider than a year",
			env:     map[string]string{"MSE_FETCH_WINDOW_DAYS": "400"},
			wantErr: true,
		},
		{
			name:    "zero attempts",
			env:     map[string]string{"MSE_SOURCE_MAX_ATTEMPTS": "0"},
			wantErr: true,
		},
		{
			name:    "invalid logging output",
			env:     map[string]string{"MSE_LOGGING_OUTPUT": "syslog"},
			wantErr: true,
		},
		{
			name: "config file with environment override",
			env:  map[string]string{"MSE_LOGGING_LEVEL": "warn"},
			configFile: `
source:
  timeout: 10s
store:
  data_dir: /var/lib/mse
logging:
  level: error
fetch:
  window_days: 180
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 10*time.Second, cfg.Source.Timeout)  // from file
				assert.Equal(t, "/var/lib/mse", cfg.Store.DataDir)   // from file
				assert.Equal(t, 180, cfg.Fetch.WindowDays)           // from file
				assert.Equal(t, "warn", cfg.Logging.Level)           // from env
				assert.Equal(t, "10years_data.csv", cfg.Store.HistoryFile) // default
			},
		},
		{
			name:   "dotenv file seeds the environment",
			dotEnv: "MSE_STORE_HISTORY_FILE=custom.csv\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "custom.csv", cfg.Store.HistoryFile)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdirTemp(t)

			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.configFile != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.configFile), 0644))
			}
			if tt.dotEnv != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(tt.dotEnv), 0644))
				t.Cleanup(func() { os.Unsetenv("MSE_STORE_HISTORY_FILE") })
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.validate())
	assert.Equal(t, DefaultLookbackYears, cfg.Fetch.LookbackYears)
	assert.Equal(t, DefaultWindowDays, cfg.Fetch.WindowDays)
	assert.Equal(t, "csv", cfg.Store.Driver)
}
