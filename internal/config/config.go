package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	// DatabaseURL is the PostgreSQL connection URL. When empty the
	// service runs with in-memory stores (demo mode, nothing survives
	// a restart).
	DatabaseURL string

	ListenAddr string

	// DefaultAlgorithm is served when no active experiment yields an
	// assignment for a user.
	DefaultAlgorithm string

	// DashboardWindowDays is the trailing window (in days) used for the
	// recent-metrics count when the caller doesn't specify one.
	DashboardWindowDays int

	// InternalAPIKey authorizes metric ingestion. If empty, a key must
	// be provisioned out of band before POST /v1/metrics will accept
	// anything.
	InternalAPIKey string

	// SeedDemoData creates a sample active experiment at startup so a
	// fresh instance has something to resolve against.
	SeedDemoData bool
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		DatabaseURL:         os.Getenv("APP_DATABASE_URL"),
		ListenAddr:          getenv("APP_LISTEN_ADDR", ":8080"),
		DefaultAlgorithm:    getenv("APP_DEFAULT_ALGORITHM", "collaborative_filtering"),
		DashboardWindowDays: 7,
		InternalAPIKey:      getenv("APP_INTERNAL_API_KEY", ""),
		SeedDemoData:        os.Getenv("APP_SEED_DEMO_DATA") == "1",
	}

	if v := os.Getenv("APP_DASHBOARD_WINDOW_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.DashboardWindowDays = days
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
