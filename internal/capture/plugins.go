package capture

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Default bounds for ValidationPlugin.
const (
	DefaultPluginMinSize = 1024
	DefaultPluginMaxSize = 10 * 1024 * 1024
	emptyContentSize     = 512
)

// ValidationPlugin checks artifact size bounds after each successful capture
// and records its findings in the result metadata.
type ValidationPlugin struct {
	BasePlugin
	MinFileSize    int64
	MaxFileSize    int64
	RequireContent bool
}

// NewValidationPlugin creates a plugin with the default bounds.
func NewValidationPlugin() *ValidationPlugin {
	return &ValidationPlugin{
		MinFileSize:    DefaultPluginMinSize,
		MaxFileSize:    DefaultPluginMaxSize,
		RequireContent: true,
	}
}

// PostCapture sets file_size_valid, content_detected, quality_score and
// validation_errors on the result.
func (p *ValidationPlugin) PostCapture(_ context.Context, result *Result, _ map[string]any) error {
	if result == nil {
		return hookError("validation plugin", "nil result")
	}
	if !result.HasArtifact() {
		return nil
	}

	sizeValid := true
	contentDetected := true
	errs := []string{}

	if result.FileSize < p.MinFileSize {
		sizeValid = false
		errs = append(errs, fmt.Sprintf("File size %d below minimum %d", result.FileSize, p.MinFileSize))
	}
	if result.FileSize > p.MaxFileSize {
		sizeValid = false
		errs = append(errs, fmt.Sprintf("File size %d exceeds maximum %d", result.FileSize, p.MaxFileSize))
	}
	if p.RequireContent && result.FileSize < emptyContentSize {
		contentDetected = false
		errs = append(errs, "Screenshot appears to be empty")
	}

	score := 1.0
	if len(errs) > 0 {
		score = 0.5
	}

	result.SetMetadata("file_size_valid", sizeValid)
	result.SetMetadata("content_detected", contentDetected)
	result.SetMetadata("quality_score", score)
	result.SetMetadata("validation_errors", errs)
	return nil
}

// LoggingPlugin reports capture start, completion and failures.
type LoggingPlugin struct {
	BasePlugin
	logger Logger
	now    func() time.Time
}

// NewLoggingPlugin creates a plugin writing to logger.
func NewLoggingPlugin(logger Logger) *LoggingPlugin {
	return &LoggingPlugin{logger: logger, now: time.Now}
}

const loggingStartKey = "start_time"

func (p *LoggingPlugin) PreCapture(_ context.Context, contextName string, app AppContext) (map[string]any, error) {
	name := ""
	if app != nil {
		name = app.ContextName()
	}
	p.logger.Infof("Starting capture: app=%s, context=%s", name, contextName)
	return map[string]any{loggingStartKey: p.now()}, nil
}

func (p *LoggingPlugin) PostCapture(_ context.Context, result *Result, metadata map[string]any) error {
	if result == nil {
		return hookError("logging plugin", "nil result")
	}
	duration := elapsedSince(metadata, loggingStartKey, p.now())
	if result.Success {
		p.logger.Infof("Capture succeeded: path=%s, size=%d, duration=%.2fs, cached=%t",
			result.ArtifactPath, result.FileSize, duration.Seconds(), result.CacheHit)
	} else {
		p.logger.Errorf("Capture failed: error=%s, duration=%.2fs", result.ErrorMessage, duration.Seconds())
	}
	return nil
}

func (p *LoggingPlugin) OnFailure(_ context.Context, err error, contextName string) error {
	p.logger.Errorf("Capture failure in context '%s': %T: %v", contextName, err, err)
	return nil
}

// Metrics is a snapshot of MetricsPlugin counters.
type Metrics struct {
	TotalCaptures      int
	SuccessfulCaptures int
	FailedCaptures     int
	CacheHits          int
	SuccessRate        float64
	CacheHitRate       float64
	AverageFileSize    float64
	AverageDuration    time.Duration
}

// ToMap returns the metrics under their reporting keys.
func (m Metrics) ToMap() map[string]any {
	return map[string]any{
		"total_captures":      m.TotalCaptures,
		"successful_captures": m.SuccessfulCaptures,
		"failed_captures":     m.FailedCaptures,
		"cache_hits":          m.CacheHits,
		"success_rate":        m.SuccessRate,
		"cache_hit_rate":      m.CacheHitRate,
		"average_file_size":   m.AverageFileSize,
		"average_duration":    m.AverageDuration.Seconds(),
	}
}

// MetricsPlugin counts captures and accumulates sizes and durations.
type MetricsPlugin struct {
	BasePlugin

	mu            sync.Mutex
	captures      int
	successes     int
	failures      int
	cacheHits     int
	totalFileSize int64
	totalDuration time.Duration
	now           func() time.Time
}

// NewMetricsPlugin creates an empty collector.
func NewMetricsPlugin() *MetricsPlugin {
	return &MetricsPlugin{now: time.Now}
}

const metricsStartKey = "metrics_start_time"

func (p *MetricsPlugin) PreCapture(context.Context, string, AppContext) (map[string]any, error) {
	p.mu.Lock()
	p.captures++
	p.mu.Unlock()
	return map[string]any{metricsStartKey: p.now()}, nil
}

func (p *MetricsPlugin) PostCapture(_ context.Context, result *Result, metadata map[string]any) error {
	if result == nil {
		return hookError("metrics plugin", "nil result")
	}
	duration := elapsedSince(metadata, metricsStartKey, p.now())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalDuration += duration
	if result.Success {
		p.successes++
		p.totalFileSize += result.FileSize
		if result.CacheHit {
			p.cacheHits++
		}
	}
	return nil
}

func (p *MetricsPlugin) OnFailure(context.Context, error, string) error {
	p.mu.Lock()
	p.failures++
	p.mu.Unlock()
	return nil
}

// Metrics returns the current counters.
func (p *MetricsPlugin) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	successDenom := float64(max(p.successes, 1))
	captureDenom := max(p.captures, 1)
	return Metrics{
		TotalCaptures:      p.captures,
		SuccessfulCaptures: p.successes,
		FailedCaptures:     p.failures,
		CacheHits:          p.cacheHits,
		SuccessRate:        float64(p.successes) / float64(captureDenom),
		CacheHitRate:       float64(p.cacheHits) / successDenom,
		AverageFileSize:    float64(p.totalFileSize) / successDenom,
		AverageDuration:    p.totalDuration / time.Duration(captureDenom),
	}
}

func elapsedSince(metadata map[string]any, key string, now time.Time) time.Duration {
	start, ok := metadata[key].(time.Time)
	if !ok {
		return 0
	}
	if d := now.Sub(start); d > 0 {
		return d
	}
	return 0
}
