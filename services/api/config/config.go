package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Pipeline sources.
const (
	SourceDB   = "db"
	SourceFeed = "feed"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL     string
	Port            int
	BearerToken     string
	DefaultLimit    int
	Source          string
	DatasetID       string
	FeedURL         string
	ParamsPath      string
	AutoRunSchedule string
	RunOnStart      bool
	RequestTimeout  time.Duration
	LogLevel        slog.Level
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:           8080,
		DefaultLimit:   200,
		Source:         SourceDB,
		RequestTimeout: 10 * time.Second,
		LogLevel:       slog.LevelInfo,
	}

	if src := os.Getenv("PIPELINE_SOURCE"); src != "" {
		switch src = strings.ToLower(src); src {
		case SourceDB, SourceFeed:
			cfg.Source = src
		default:
			return cfg, fmt.Errorf("invalid PIPELINE_SOURCE: %s", src)
		}
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.Source == SourceDB {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.FeedURL = os.Getenv("DATASET_FEED_URL")
	if cfg.FeedURL == "" && cfg.Source == SourceFeed {
		return cfg, errors.New("DATASET_FEED_URL is required when PIPELINE_SOURCE=feed")
	}
	cfg.DatasetID = os.Getenv("DATASET_ID")

	cfg.ParamsPath = os.Getenv("PARAMS_PATH")

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if limitStr := os.Getenv("API_DEFAULT_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			cfg.DefaultLimit = limit
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", limitStr)
		}
	}

	if schedule := os.Getenv("AUTO_RUN_SCHEDULE"); schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return cfg, fmt.Errorf("invalid AUTO_RUN_SCHEDULE: %w", err)
		}
		cfg.AutoRunSchedule = schedule
	}

	if runStr := os.Getenv("RUN_ON_START"); runStr != "" {
		run, err := strconv.ParseBool(runStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid RUN_ON_START: %w", err)
		}
		cfg.RunOnStart = run
	}

	if timeoutStr := os.Getenv("REQUEST_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil && timeout > 0 {
			cfg.RequestTimeout = timeout
		} else {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %s", timeoutStr)
		}
	}

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelStr)); err != nil {
			return cfg, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
