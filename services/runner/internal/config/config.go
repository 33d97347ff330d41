package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceDB   = "db"
	SourceFeed = "feed"
)

const defaultTimeout = 5 * time.Minute

// Config holds runtime configuration for the batch runner. Flags override
// the environment.
type Config struct {
	DatabaseURL string
	Source      string
	DatasetID   string
	FeedURL     string
	ParamsPath  string
	Timeout     time.Duration
	DryRun      bool
	LogLevel    slog.Level
}

// Load reads configuration from environment variables (optionally .env).
// Required values are checked by Validate once flags are applied.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{Source: SourceDB, Timeout: defaultTimeout, LogLevel: slog.LevelInfo}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.DatasetID = strings.TrimSpace(os.Getenv("DATASET_ID"))
	cfg.FeedURL = strings.TrimSpace(os.Getenv("DATASET_FEED_URL"))
	cfg.ParamsPath = strings.TrimSpace(os.Getenv("PARAMS_PATH"))

	if v := strings.TrimSpace(os.Getenv("PIPELINE_SOURCE")); v != "" {
		cfg.Source = strings.ToLower(v)
	}

	if v := strings.TrimSpace(os.Getenv("RUNNER_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid RUNNER_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	return cfg, nil
}

// Validate checks the settings an execution needs.
func (c Config) Validate() error {
	switch c.Source {
	case SourceDB:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case SourceFeed:
		if c.FeedURL == "" {
			return errors.New("DATASET_FEED_URL is required when the source is feed")
		}
	default:
		return fmt.Errorf("invalid source: %s", c.Source)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	return nil
}
