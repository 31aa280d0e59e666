package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

// DefaultLogDir is where run logs go when no directory is configured.
const DefaultLogDir = ".snapshots/logs"

// FileLogger writes a timestamped run log per invocation plus one detail
// file per checked artifact under details/. latest.log always points at the
// most recent run log.
type FileLogger struct {
	logDir     string
	runLog     *os.File
	runFile    string
	detailsDir string
	logLevel   string
	mu         sync.Mutex
}

// NewFileLogger creates a FileLogger writing to DefaultLogDir at info level.
func NewFileLogger() (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(DefaultLogDir, "info")
}

// NewFileLoggerWithDir creates a FileLogger with a custom log directory.
func NewFileLoggerWithDir(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDirAndLevel creates the log directory, opens
// run-YYYYMMDD-HHMMSS.log and repoints latest.log at it.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	detailsDir := filepath.Join(logDir, "details")
	if err := os.MkdirAll(detailsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create details directory: %w", err)
	}

	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:     logDir,
		runLog:     file,
		runFile:    runFile,
		detailsDir: detailsDir,
		logLevel:   normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== Snapshots Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) { fl.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) { fl.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("ERROR", message) }

func (fl *FileLogger) Tracef(format string, args ...interface{}) {
	fl.LogTrace(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Debugf(format string, args ...interface{}) {
	fl.LogDebug(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.LogInfo(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.LogWarn(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Errorf(format string, args ...interface{}) {
	fl.LogError(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

func (fl *FileLogger) writeLines(level string, lines []string) {
	if !fl.shouldLog(level) {
		return
	}
	ts := timestamp()
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "[%s] %s\n", ts, line)
	}
	fl.writeRunLog(b.String())
}

// LogCaptureResult logs one capture at INFO (failures at ERROR).
func (fl *FileLogger) LogCaptureResult(result capture.Result) {
	if !result.Success {
		fl.Errorf("Capture %s failed: %s", result.Context, result.ErrorMessage)
		return
	}
	fl.writeLines("info", []string{captureLine(result, nil)})
}

// LogDetection logs the detection summary and writes the full result, with
// issue metadata, to the artifact's detail file.
func (fl *FileLogger) LogDetection(path string, result detection.Result) {
	level := "debug"
	if len(result.Issues) > 0 {
		level = "warn"
	}
	fl.writeLines(level, detectionLines(path, result, nil))

	if err := fl.writeDetail(path, "detection", result); err != nil {
		fl.Warnf("failed to write detection details for %s: %v", path, err)
	}
}

// LogVerdict logs the verdict and writes it, with metrics, to the artifact's
// detail file.
func (fl *FileLogger) LogVerdict(path string, verdict validation.Verdict) {
	level := "info"
	if !verdict.IsValid {
		level = "warn"
	}
	fl.writeLines(level, verdictLines(path, verdict, nil))

	if err := fl.writeDetail(path, "validation", verdict); err != nil {
		fl.Warnf("failed to write validation details for %s: %v", path, err)
	}
}

// LogSummary logs the batch summary with a final status line.
// Status is SUCCESS, PARTIAL (some failed) or FAILED (none passed).
func (fl *FileLogger) LogSummary(summary Summary) {
	if !fl.shouldLog("info") {
		return
	}

	status := "SUCCESS"
	if summary.Failed > 0 {
		if summary.Passed == 0 {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	lines := append([]string{""}, summaryLines(summary, nil)...)
	lines = append(lines,
		fmt.Sprintf("Status: %s (%d/%d passed)", status, summary.Passed, summary.Total),
		fmt.Sprintf("Completed at: %s", time.Now().Format(time.RFC3339)))
	fl.writeLines("info", lines)
}

// writeDetail appends a "=== kind ===" section with v as indented JSON to
// details/<artifact>.log.
func (fl *FileLogger) writeDetail(path, kind string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fl.mu.Lock()
	defer fl.mu.Unlock()

	name := detailName(path)
	f, err := os.OpenFile(filepath.Join(fl.detailsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "=== %s %s (%s) ===\n%s\n\n", kind, path, time.Now().Format(time.RFC3339), data)
	return err
}

// DetailFiles lists the detail files written so far, sorted.
func (fl *FileLogger) DetailFiles() ([]string, error) {
	entries, err := os.ReadDir(fl.detailsDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, filepath.Join(fl.detailsDir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// detailName maps an artifact path to its detail file name.
func detailName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "artifact"
	}
	return base + ".log"
}

// Close flushes and closes the run log.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		// Flush after each write for real-time logging
		fl.runLog.Sync()
	}
}
