// Package config provides centralized configuration management for the MSE
// history scraper. It loads configuration from multiple sources, validates it,
// and resolves the file locations of the persisted stores.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), optionally seeded from .env
//	2. YAML configuration file (config.yaml, configs/config.yaml or MSE_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern MSE_<SECTION>_<FIELD>:
//
//	MSE_SOURCE_TIMEOUT=30s
//	MSE_SOURCE_MAX_ATTEMPTS=3
//	MSE_STORE_DRIVER=csv
//	MSE_STORE_DATA_DIR=data
//	MSE_FETCH_MODE=catchup
//	MSE_LOGGING_LEVEL=info
//	MSE_TELEMETRY_ENABLED=true
//
// # Path Management
//
// Paths resolves the issuer-codes file, the history CSV and the SQLite
// database below the data directory:
//
//	paths, err := config.GetPaths(cfg.Store)
//	if err := paths.EnsureDirectories(); err != nil {
//	    return err
//	}
package config
