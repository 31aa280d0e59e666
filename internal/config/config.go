package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

// CaptureConfig controls how frames are rendered and stored.
type CaptureConfig struct {
	// BaseDir is the root of the apps/, contexts/ and cache/ layout
	BaseDir string `yaml:"base_dir"`

	// Format is the default output format: svg, png or both
	Format string `yaml:"format"`

	// CacheTTL is how long a cached capture stays valid
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// SettleDelay is the pause after each interaction
	SettleDelay time.Duration `yaml:"settle_delay"`

	// Timeout bounds one render, including application startup
	Timeout time.Duration `yaml:"timeout"`

	// Width and Height are the terminal size in cells
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// TmuxPath overrides tmux lookup in PATH
	TmuxPath string `yaml:"tmux_path"`

	// Converter is the SVG to PNG tool, used for png and both formats
	Converter string `yaml:"converter"`
}

// DetectionConfig controls the proactive error detector.
type DetectionConfig struct {
	StructuralAnalysis bool                 `yaml:"structural_analysis"`
	Thresholds         detection.Thresholds `yaml:"thresholds"`
}

// ValidationConfig controls the external validation suite.
type ValidationConfig struct {
	BaselineDir         string                `yaml:"baseline_dir"`
	PlatformDir         string                `yaml:"platform_dir"`
	SimilarityThreshold float64               `yaml:"similarity_threshold"`
	Quality             validation.Thresholds `yaml:"quality"`
}

// CompareConfig controls baseline/current comparisons.
type CompareConfig struct {
	// Threshold is the minimum similarity for a comparison to pass
	Threshold float64 `yaml:"threshold"`

	// ReportPath is where JSON reports go when no --output-report is given
	ReportPath string `yaml:"report_path"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Config represents textual-snapshots configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where per-run logs are written
	LogDir string `yaml:"log_dir"`

	// MaxConcurrency bounds batch detect/compare workers (0 = one per CPU)
	MaxConcurrency int `yaml:"max_concurrency"`

	Capture    CaptureConfig    `yaml:"capture"`
	Detection  DetectionConfig  `yaml:"detection"`
	Validation ValidationConfig `yaml:"validation"`
	Compare    CompareConfig    `yaml:"compare"`
	History    HistoryConfig    `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		LogDir:         ".snapshots/logs",
		MaxConcurrency: 0,
		Capture: CaptureConfig{
			BaseDir:     "screenshots",
			Format:      "svg",
			CacheTTL:    time.Hour,
			SettleDelay: 100 * time.Millisecond,
			Timeout:     30 * time.Second,
			Width:       80,
			Height:      24,
			Converter:   "rsvg-convert",
		},
		Detection: DetectionConfig{
			StructuralAnalysis: true,
			Thresholds:         detection.DefaultThresholds(),
		},
		Validation: ValidationConfig{
			BaselineDir:         validation.DefaultBaselineDir,
			PlatformDir:         validation.DefaultPlatformDir,
			SimilarityThreshold: validation.DefaultSimilarityThreshold,
			Quality:             validation.DefaultThresholds(),
		},
		Compare: CompareConfig{
			Threshold: 0.95,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  ".snapshots/history.db",
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults. Keys present in the file override the
// defaults; absent keys keep them.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv applies SNAPSHOTS_* environment overrides.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SNAPSHOTS_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("SNAPSHOTS_BASE_DIR"); v != "" {
		c.Capture.BaseDir = v
	}
	if v := getenv("SNAPSHOTS_BASELINE_DIR"); v != "" {
		c.Validation.BaselineDir = v
	}
	if v := getenv("SNAPSHOTS_TMUX"); v != "" {
		c.Capture.TmuxPath = v
	}
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, logDir *string, maxConcurrency *int, baseDir *string, baselineDir *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if maxConcurrency != nil {
		c.MaxConcurrency = *maxConcurrency
	}
	if baseDir != nil {
		c.Capture.BaseDir = *baseDir
	}
	if baselineDir != nil {
		c.Validation.BaselineDir = *baselineDir
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0, got %d", c.MaxConcurrency)
	}

	switch c.Capture.Format {
	case "svg", "png", "both":
	default:
		return fmt.Errorf("invalid capture.format %q, must be one of: svg, png, both", c.Capture.Format)
	}
	if c.Capture.BaseDir == "" {
		return fmt.Errorf("capture.base_dir cannot be empty")
	}
	if c.Capture.CacheTTL < 0 {
		return fmt.Errorf("capture.cache_ttl must be >= 0, got %v", c.Capture.CacheTTL)
	}
	if c.Capture.SettleDelay < 0 {
		return fmt.Errorf("capture.settle_delay must be >= 0, got %v", c.Capture.SettleDelay)
	}
	if c.Capture.Timeout < 0 {
		return fmt.Errorf("capture.timeout must be >= 0, got %v", c.Capture.Timeout)
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return fmt.Errorf("capture.width and capture.height must be > 0, got %dx%d", c.Capture.Width, c.Capture.Height)
	}

	if err := c.Detection.Thresholds.Validate(); err != nil {
		return fmt.Errorf("detection.thresholds: %w", err)
	}

	if err := c.Validation.Quality.Validate(); err != nil {
		return fmt.Errorf("validation.quality: %w", err)
	}
	if c.Validation.SimilarityThreshold < 0 || c.Validation.SimilarityThreshold > 1 {
		return fmt.Errorf("validation.similarity_threshold must be in [0, 1], got %v", c.Validation.SimilarityThreshold)
	}

	if c.Compare.Threshold < 0 || c.Compare.Threshold > 1 {
		return fmt.Errorf("compare.threshold must be in [0, 1], got %v", c.Compare.Threshold)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}
