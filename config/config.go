package config

import (
	"fmt"
	"os"
)

// Config holds the application configuration.
type Config struct {
	DBPath   string
	LogLevel string
}

// LoadFromEnv loads configuration from environment variables, falling back
// to defaults suitable for a local single-user setup.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:   "library.db",
		LogLevel: "info",
	}

	if v := os.Getenv("LIBRARY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LIBRARY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LIBRARY_LOG_LEVEL %q (expected debug, info, warn or error)", cfg.LogLevel)
	}

	return cfg, nil
}
