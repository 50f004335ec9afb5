package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. MSE_STORE_DRIVER
const EnvPrefix = "MSE"

// Config represents the complete application configuration
type Config struct {
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Fetch     FetchConfig     `yaml:"fetch" envconfig:"FETCH"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// SourceConfig describes the exchange website
type SourceConfig struct {
	ListingURL   string        `yaml:"listing_url" envconfig:"LISTING_URL" default:"https://www.mse.mk/mk/stats/symbolhistory" validate:"required,url"`
	HistoryURL   string        `yaml:"history_url" envconfig:"HISTORY_URL" default:"https://www.mse.mk/mk/stats/symbolhistory" validate:"required,url"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s" validate:"gt=0"`
	MaxAttempts  int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" default:"3" validate:"min=1,max=10"`
	RetryBackoff time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF" default:"1s" validate:"gte=0"`
	RateLimit    float64       `yaml:"rate_limit" envconfig:"RATE_LIMIT" default:"2" validate:"gt=0"`
	UserAgent    string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// StoreConfig selects and locates the persisted stores
type StoreConfig struct {
	Driver          string `yaml:"driver" envconfig:"DRIVER" default:"csv" validate:"oneof=csv sqlite"`
	DataDir         string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data" validate:"required"`
	IssuerCodesFile string `yaml:"issuer_codes_file" envconfig:"ISSUER_CODES_FILE" default:"issuer_codes.csv" validate:"required"`
	HistoryFile     string `yaml:"history_file" envconfig:"HISTORY_FILE" default:"10years_data.csv" validate:"required"`
	SQLiteFile      string `yaml:"sqlite_file" envconfig:"SQLITE_FILE" default:"history.db"`
}

// FetchConfig controls the backward window walk
type FetchConfig struct {
	LookbackYears int    `yaml:"lookback_years" envconfig:"LOOKBACK_YEARS" default:"10" validate:"min=0,max=50"`
	WindowDays    int    `yaml:"window_days" envconfig:"WINDOW_DAYS" default:"365" validate:"min=1,max=365"`
	Mode          string `yaml:"mode" envconfig:"MODE" default:"catchup" validate:"oneof=catchup legacy"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/scraper.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// TelemetryConfig controls tracing and metrics output
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	TraceFile   string  `yaml:"trace_file" envconfig:"TRACE_FILE" default:"logs/traces.json"`
	MetricsFile string  `yaml:"metrics_file" envconfig:"METRICS_FILE" default:"logs/scraper.prom"`
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1" validate:"gte=0,lte=1"`
}

// Load loads configuration from .env, environment variables and config file
func Load() (*Config, error) {
	// A missing .env file is normal outside development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = DefaultUserAgent
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config.
// A value explicitly set in the environment wins; otherwise a value present
// in the file replaces the envconfig default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	pick := func(dst *string, file, envName string) {
		if file != "" && !envSet(envName) {
			*dst = file
		}
	}

	pick(&envConfig.Source.ListingURL, fileConfig.Source.ListingURL, "SOURCE_LISTING_URL")
	pick(&envConfig.Source.HistoryURL, fileConfig.Source.HistoryURL, "SOURCE_HISTORY_URL")
	pick(&envConfig.Source.UserAgent, fileConfig.Source.UserAgent, "SOURCE_USER_AGENT")
	if fileConfig.Source.Timeout > 0 && !envSet("SOURCE_TIMEOUT") {
		envConfig.Source.Timeout = fileConfig.Source.Timeout
	}
	if fileConfig.Source.MaxAttempts > 0 && !envSet("SOURCE_MAX_ATTEMPTS") {
		envConfig.Source.MaxAttempts = fileConfig.Source.MaxAttempts
	}
	if fileConfig.Source.RetryBackoff > 0 && !envSet("SOURCE_RETRY_BACKOFF") {
		envConfig.Source.RetryBackoff = fileConfig.Source.RetryBackoff
	}
	if fileConfig.Source.RateLimit > 0 && !envSet("SOURCE_RATE_LIMIT") {
		envConfig.Source.RateLimit = fileConfig.Source.RateLimit
	}

	pick(&envConfig.Store.Driver, fileConfig.Store.Driver, "STORE_DRIVER")
	pick(&envConfig.Store.DataDir, fileConfig.Store.DataDir, "STORE_DATA_DIR")
	pick(&envConfig.Store.IssuerCodesFile, fileConfig.Store.IssuerCodesFile, "STORE_ISSUER_CODES_FILE")
	pick(&envConfig.Store.HistoryFile, fileConfig.Store.HistoryFile, "STORE_HISTORY_FILE")
	pick(&envConfig.Store.SQLiteFile, fileConfig.Store.SQLiteFile, "STORE_SQLITE_FILE")

	if fileConfig.Fetch.LookbackYears > 0 && !envSet("FETCH_LOOKBACK_YEARS") {
		envConfig.Fetch.LookbackYears = fileConfig.Fetch.LookbackYears
	}
	if fileConfig.Fetch.WindowDays > 0 && !envSet("FETCH_WINDOW_DAYS") {
		envConfig.Fetch.WindowDays = fileConfig.Fetch.WindowDays
	}
	pick(&envConfig.Fetch.Mode, fileConfig.Fetch.Mode, "FETCH_MODE")

	pick(&envConfig.Logging.Level, fileConfig.Logging.Level, "LOGGING_LEVEL")
	pick(&envConfig.Logging.Output, fileConfig.Logging.Output, "LOGGING_OUTPUT")
	pick(&envConfig.Logging.FilePath, fileConfig.Logging.FilePath, "LOGGING_FILE_PATH")

	if fileConfig.Telemetry.Enabled && !envSet("TELEMETRY_ENABLED") {
		envConfig.Telemetry.Enabled = true
	}
	pick(&envConfig.Telemetry.TraceFile, fileConfig.Telemetry.TraceFile, "TELEMETRY_TRACE_FILE")
	pick(&envConfig.Telemetry.MetricsFile, fileConfig.Telemetry.MetricsFile, "TELEMETRY_METRICS_FILE")

	return envConfig
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + name)
	return ok
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// Logs are always JSON
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}

	if c.Store.Driver == "sqlite" && c.Store.SQLiteFile == "" {
		return fmt.Errorf("store.sqlite_file is required for the sqlite driver")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			ListingURL:   DefaultListingURL,
			HistoryURL:   DefaultHistoryURL,
			Timeout:      DefaultHTTPTimeout,
			MaxAttempts:  DefaultMaxAttempts,
			RetryBackoff: DefaultRetryBackoff,
			RateLimit:    DefaultRateLimit,
			UserAgent:    DefaultUserAgent,
		},
		Store: StoreConfig{
			Driver:          "csv",
			DataDir:         DefaultDataDir,
			IssuerCodesFile: DefaultIssuerCodesFile,
			HistoryFile:     DefaultHistoryFile,
			SQLiteFile:      DefaultSQLiteFile,
		},
		Fetch: FetchConfig{
			LookbackYears: DefaultLookbackYears,
			WindowDays:    DefaultWindowDays,
			Mode:          ModeCatchUp,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/scraper.log",
		},
		Telemetry: TelemetryConfig{
			TraceFile:   "logs/traces.json",
			MetricsFile: "logs/scraper.prom",
			SampleRatio: 1,
		},
	}
}
