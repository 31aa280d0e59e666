// Package logger provides the console and file loggers used by the snapshots
// CLI.
//
// Both loggers filter by level, are safe for concurrent use and satisfy
// capture.Logger, so they can be handed straight to the capture pipeline and
// its plugins. On top of plain leveled messages they know how to render
// capture results, detection results, validation verdicts and run summaries.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is implemented by every logger in this package.
type Logger interface {
	capture.Logger
	Tracef(format string, args ...interface{})
	LogCaptureResult(result capture.Result)
	LogDetection(path string, result detection.Result)
	LogVerdict(path string, verdict validation.Verdict)
	LogSummary(summary Summary)
}

// Summary aggregates the outcome of a batch of captures or checks.
type Summary struct {
	Operation string
	Total     int
	Passed    int
	Failed    int
	CacheHits int
	Duration  time.Duration
	Failures  []string
}

// ConsoleLogger writes leveled, timestamped messages to a writer.
// All output is prefixed with [HH:MM:SS].
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// Level returns the effective log level.
func (cl *ConsoleLogger) Level() string {
	return cl.logLevel
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}

	if w == os.Stdout || w == os.Stderr {
		// fatih/color honours NO_COLOR and non-TTY output here
		return !color.NoColor
	}

	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info"
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) { cl.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) { cl.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) { cl.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) { cl.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) { cl.logWithLevel("ERROR", message) }

func (cl *ConsoleLogger) Tracef(format string, args ...interface{}) {
	cl.LogTrace(fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Debugf(format string, args ...interface{}) {
	cl.LogDebug(fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Infof(format string, args ...interface{}) {
	cl.LogInfo(fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.LogWarn(fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Errorf(format string, args ...interface{}) {
	cl.LogError(fmt.Sprintf(format, args...))
}

// logWithLevel logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// writeBlock writes pre-rendered lines under one lock, each prefixed with
// the same timestamp.
func (cl *ConsoleLogger) writeBlock(level string, lines []string) {
	if cl.writer == nil || len(lines) == 0 || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "[%s] %s\n", ts, line)
	}
	cl.writer.Write([]byte(b.String()))
}

// LogCaptureResult logs one capture at INFO level (failures at ERROR).
// Format: "[HH:MM:SS] Captured <context>: <path> (<size>, cached)"
func (cl *ConsoleLogger) LogCaptureResult(result capture.Result) {
	if !result.Success {
		cl.Errorf("Capture %s failed: %s", result.Context, result.ErrorMessage)
		return
	}
	cl.writeBlock("info", []string{captureLine(result, cl.scheme())})
}

// LogDetection logs a detection result. Healthy artifacts are logged at
// DEBUG, anything with issues at WARN with one line per issue.
func (cl *ConsoleLogger) LogDetection(path string, result detection.Result) {
	level := "debug"
	if len(result.Issues) > 0 {
		level = "warn"
	}
	cl.writeBlock(level, detectionLines(path, result, cl.scheme()))
}

// LogVerdict logs a validation verdict at INFO (valid) or WARN (invalid).
func (cl *ConsoleLogger) LogVerdict(path string, verdict validation.Verdict) {
	level := "info"
	if !verdict.IsValid {
		level = "warn"
	}
	cl.writeBlock(level, verdictLines(path, verdict, cl.scheme()))
}

// LogSummary logs the batch summary at INFO level.
// Format: "[HH:MM:SS] === Capture Summary ===" followed by counts.
func (cl *ConsoleLogger) LogSummary(summary Summary) {
	cl.writeBlock("info", summaryLines(summary, cl.scheme()))
}

// LogProgress logs a progress bar line at INFO level.
// Format: "[HH:MM:SS] Progress: [=====     ] 2/4 (50%)"
func (cl *ConsoleLogger) LogProgress(done, total int) {
	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.Update(done)
	cl.writeBlock("info", []string{"Progress: " + pb.Render()})
}

// scheme returns the color scheme, or nil when color is off.
func (cl *ConsoleLogger) scheme() *colorScheme {
	if !cl.colorOutput {
		return nil
	}
	return newColorScheme()
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders durations the way the summaries print them:
// 45s, 2m30s, 1h5m.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d > 0 && d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Tracef(string, ...interface{}) {}
func (n *NoOpLogger) Debugf(string, ...interface{}) {}
func (n *NoOpLogger) Infof(string, ...interface{}) {}
func (n *NoOpLogger) Warnf(string, ...interface{}) {}
func (n *NoOpLogger) Errorf(string, ...interface{}) {}
func (n *NoOpLogger) LogCaptureResult(capture.Result) {}
func (n *NoOpLogger) LogDetection(string, detection.Result) {}
func (n *NoOpLogger) LogVerdict(string, validation.Verdict) {}
func (n *NoOpLogger) LogSummary(Summary) {}
