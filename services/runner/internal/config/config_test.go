package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"DATABASE_URL", "DATASET_ID", "DATASET_FEED_URL", "PARAMS_PATH", "PIPELINE_SOURCE", "RUNNER_TIMEOUT", "LOG_LEVEL", "DRY_RUN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SourceDB, cfg.Source)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.DryRun)

	assert.EqualError(t, cfg.Validate(), "DATABASE_URL is required")
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PIPELINE_SOURCE", "FEED")
	t.Setenv("DATASET_FEED_URL", "https://ili.example/line-7.json")
	t.Setenv("RUNNER_TIMEOUT", "90s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SourceFeed, cfg.Source)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.DryRun)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RUNNER_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "RUNNER_TIMEOUT")

	t.Setenv("RUNNER_TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "loud")
	_, err = Load()
	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestValidate(t *testing.T) {
	assert.ErrorContains(t, Config{Source: "s3", Timeout: time.Minute}.Validate(), "invalid source")
	assert.ErrorContains(t, Config{Source: SourceFeed, Timeout: time.Minute}.Validate(), "DATASET_FEED_URL")
	assert.ErrorContains(t, Config{Source: SourceDB, DatabaseURL: "postgres://x", Timeout: 0}.Validate(), "invalid timeout")
	assert.NoError(t, Config{Source: SourceDB, DatabaseURL: "postgres://x", Timeout: time.Minute}.Validate())
}
