package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// config is the environment-supplied server configuration. Flags, when
// given, take precedence.
type config struct {
	Port             string `envconfig:"PORT" default:"8080"`
	CORSOrigins      string `envconfig:"IIWSIT_CORS_ORIGINS" default:""`
	AllowAllCORS     bool   `envconfig:"IIWSIT_ALLOW_ALL_CORS" default:"false"`
	RateLimit        int    `envconfig:"IIWSIT_RATE_LIMIT" default:"100"`
	RateBurst        int    `envconfig:"IIWSIT_RATE_BURST" default:"100"`
	BatchConcurrency int    `envconfig:"IIWSIT_BATCH_CONCURRENCY" default:"4"`
	LogLevel         string `envconfig:"IIWSIT_LOG_LEVEL" default:"info"`
}

func loadConfig() (*config, error) {
	cfg := new(config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// logLevel maps a level name to a slog level.
func logLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
