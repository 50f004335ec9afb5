package config

import (
	"time"

	"msecli/pkg/contracts"
)

// Application constants for the MSE history scraper
const (
	// Application Info
	AppVersion = contracts.Version

	// Exchange endpoints
	DefaultListingURL = "https://www.mse.mk/mk/stats/symbolhistory"
	DefaultHistoryURL = "https://www.mse.mk/mk/stats/symbolhistory"
	DefaultUserAgent  = "Mozilla/5.0 (compatible; msecli/" + contracts.Version + ")"

	// Network
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = time.Second
	DefaultRateLimit    = 2 // requests per second

	// Window walk
	DefaultLookbackYears = 10
	DefaultWindowDays    = 365

	// Driver modes
	ModeCatchUp = "catchup"
	ModeLegacy  = "legacy"

	// Store files (relative to the data directory)
	DefaultDataDir         = "data"
	DefaultIssuerCodesFile = "issuer_codes.csv"
	DefaultHistoryFile     = "10years_data.csv"
	DefaultSQLiteFile      = "history.db"
)
