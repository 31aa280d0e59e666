package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ".snapshots/logs", cfg.LogDir)
	assert.Equal(t, "screenshots", cfg.Capture.BaseDir)
	assert.Equal(t, "svg", cfg.Capture.Format)
	assert.Equal(t, time.Hour, cfg.Capture.CacheTTL)
	assert.Equal(t, 100*time.Millisecond, cfg.Capture.SettleDelay)
	assert.Equal(t, 0.95, cfg.Compare.Threshold)
	assert.Equal(t, 0.7, cfg.Validation.SimilarityThreshold)
	assert.Equal(t, detection.DefaultThresholds(), cfg.Detection.Thresholds)
	assert.Equal(t, validation.DefaultThresholds(), cfg.Validation.Quality)
	assert.True(t, cfg.History.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `log_level: debug
max_concurrency: 4
capture:
  format: both
  cache_ttl: 30m
  settle_delay: 250ms
detection:
  structural_analysis: false
  thresholds:
    critical_min: 800
validation:
  baseline_dir: refs/baselines
  quality:
    overall_min: 0.65
history:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "both", cfg.Capture.Format)
	assert.Equal(t, 30*time.Minute, cfg.Capture.CacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.SettleDelay)
	assert.Equal(t, "screenshots", cfg.Capture.BaseDir, "unset keys keep defaults")
	assert.Equal(t, 80, cfg.Capture.Width)

	assert.False(t, cfg.Detection.StructuralAnalysis)
	assert.Equal(t, int64(800), cfg.Detection.Thresholds.CriticalMin)
	assert.Equal(t, int64(2000), cfg.Detection.Thresholds.WarningMin)

	assert.Equal(t, "refs/baselines", cfg.Validation.BaselineDir)
	assert.Equal(t, validation.DefaultPlatformDir, cfg.Validation.PlatformDir)
	assert.Equal(t, 0.65, cfg.Validation.Quality.OverallMin)
	assert.Equal(t, 0.3, cfg.Validation.Quality.FileSizeMin)

	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, ".snapshots/history.db", cfg.History.DBPath)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log_level: [unterminated"), 0644))
	_, err := LoadConfig(bad)
	assert.ErrorContains(t, err, "failed to parse config file")

	badDuration := filepath.Join(dir, "duration.yaml")
	require.NoError(t, os.WriteFile(badDuration, []byte("capture:\n  cache_ttl: forever\n"), 0644))
	_, err = LoadConfig(badDuration)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SNAPSHOTS_LOG_LEVEL":    " DEBUG ",
		"SNAPSHOTS_BASE_DIR":     "/tmp/shots",
		"SNAPSHOTS_BASELINE_DIR": "/tmp/baselines",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/shots", cfg.Capture.BaseDir)
	assert.Equal(t, "/tmp/baselines", cfg.Validation.BaselineDir)
	assert.Empty(t, cfg.Capture.TmuxPath)
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	level := "warn"
	workers := 2

	cfg.MergeWithFlags(&level, nil, &workers, nil, nil)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.Equal(t, ".snapshots/logs", cfg.LogDir)
	assert.Equal(t, "screenshots", cfg.Capture.BaseDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log_level"},
		{"negative concurrency", func(c *Config) { c.MaxConcurrency = -1 }, "max_concurrency"},
		{"bad format", func(c *Config) { c.Capture.Format = "gif" }, "capture.format"},
		{"empty base dir", func(c *Config) { c.Capture.BaseDir = "" }, "capture.base_dir"},
		{"negative ttl", func(c *Config) { c.Capture.CacheTTL = -time.Second }, "capture.cache_ttl"},
		{"zero width", func(c *Config) { c.Capture.Width = 0 }, "capture.width"},
		{"detection ladder", func(c *Config) { c.Detection.Thresholds.CriticalMin = 9999 }, "detection.thresholds"},
		{"quality range", func(c *Config) { c.Validation.Quality.StructureMin = 2 }, "validation.quality"},
		{"similarity range", func(c *Config) { c.Validation.SimilarityThreshold = -0.1 }, "similarity_threshold"},
		{"compare range", func(c *Config) { c.Compare.Threshold = 1.5 }, "compare.threshold"},
		{"negative compare threshold", func(c *Config) { c.Compare.Threshold = -0.5 }, "compare.threshold"},
		{"history path", func(c *Config) { c.History.DBPath = "" }, "history.db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	cfg := DefaultConfig()
	cfg.History.Enabled = false
	cfg.History.DBPath = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidateAcceptsThresholdBounds(t *testing.T) {
	for _, v := range []float64{0, 1} {
		cfg := DefaultConfig()
		cfg.Compare.Threshold = v
		cfg.Validation.SimilarityThreshold = v
		assert.NoError(t, cfg.Validate(), "threshold %v", v)
	}
}
