// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration. Every field has a default, so
// the server starts with no environment at all.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	DataDir  string `env:"DATA_DIR" envDefault:"data"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// AdminIDs seeds the administrator set at startup. Further admins are
	// granted through the API by an existing admin.
	AdminIDs []string `env:"ADMIN_IDS" envSeparator:","`
}

// Load parses the process environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Level maps the LOG_LEVEL string to a slog level, defaulting to Info for
// anything unrecognized.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
