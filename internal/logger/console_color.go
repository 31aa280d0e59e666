package logger

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

// colorScheme defines consistent colors for different metric types.
// Green: success/positive metrics
// Red: failure/error metrics
// Yellow: warning/threshold metrics
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
	header  *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
		header:  color.New(color.Bold),
	}
}

// paint applies c when a scheme is active. A nil scheme means plain text.
func (s *colorScheme) paint(pick func(*colorScheme) *color.Color, text string) string {
	if s == nil {
		return text
	}
	return pick(s).Sprint(text)
}

func successColor(s *colorScheme) *color.Color { return s.success }
func failColor(s *colorScheme) *color.Color    { return s.fail }
func warnColor(s *colorScheme) *color.Color    { return s.warn }
func labelColor(s *colorScheme) *color.Color   { return s.label }
func valueColor(s *colorScheme) *color.Color   { return s.value }
func headerColor(s *colorScheme) *color.Color  { return s.header }

// formatColorizedMetric formats a single metric as "label: value".
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	return fmt.Sprintf("%s: %s", scheme.paint(labelColor, label), scheme.paint(valueColor, fmt.Sprint(value)))
}

// formatConfidence colors a confidence by band: green from 0.8, yellow from
// 0.5, red below.
func formatConfidence(confidence float64, scheme *colorScheme) string {
	text := fmt.Sprintf("%.2f", confidence)
	switch {
	case confidence >= 0.8:
		return scheme.paint(successColor, text)
	case confidence >= 0.5:
		return scheme.paint(warnColor, text)
	default:
		return scheme.paint(failColor, text)
	}
}

func severityLabel(sev detection.Severity, scheme *colorScheme) string {
	text := strings.ToUpper(string(sev))
	switch sev {
	case detection.SeverityCritical:
		return scheme.paint(failColor, text)
	case detection.SeverityWarning:
		return scheme.paint(warnColor, text)
	default:
		return scheme.paint(labelColor, text)
	}
}

// captureLine renders "Captured <context>: <path> (<size>[, cached])".
func captureLine(result capture.Result, scheme *colorScheme) string {
	details := formatBytes(result.FileSize)
	if result.CacheHit {
		details += ", cached"
	}
	if result.PNGPath != "" && result.SVGPath != "" && result.Format == capture.FormatBoth {
		details += ", +png"
	}
	return fmt.Sprintf("%s %s: %s (%s)",
		scheme.paint(successColor, "Captured"),
		scheme.paint(labelColor, result.Context),
		result.ArtifactPath, details)
}

// detectionLines renders the summary line followed by one line per issue.
func detectionLines(path string, result detection.Result, scheme *colorScheme) []string {
	lines := []string{fmt.Sprintf("%s: %s", scheme.paint(labelColor, filepath.Base(path)), detection.Summarize(result))}
	for _, issue := range result.Issues {
		lines = append(lines, fmt.Sprintf("  [%s] %s (%s, confidence %s)",
			severityLabel(issue.Severity, scheme), issue.Description, issue.Category,
			formatConfidence(issue.Confidence, scheme)))
	}
	return lines
}

// verdictLines renders the verdict headline, the per-stage breakdown when
// present, and the issues.
func verdictLines(path string, verdict validation.Verdict, scheme *colorScheme) []string {
	status := scheme.paint(successColor, "VALID")
	if !verdict.IsValid {
		status = scheme.paint(failColor, "INVALID")
	}

	lines := []string{fmt.Sprintf("%s: %s (%s, %s)",
		scheme.paint(labelColor, filepath.Base(path)), status, verdict.Type,
		formatColorizedMetric("confidence", formatConfidence(verdict.Confidence, scheme), scheme))}

	if breakdown, ok := verdict.Metrics["validation_breakdown"].(map[string]float64); ok {
		names := make([]string, 0, len(breakdown))
		for name := range breakdown {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, formatConfidence(breakdown[name], scheme)))
		}
		lines = append(lines, "  stages: "+strings.Join(parts, ", "))
	}

	for _, issue := range verdict.Issues {
		lines = append(lines, "  - "+issue)
	}
	return lines
}

// summaryLines renders the batch summary block.
func summaryLines(summary Summary, scheme *colorScheme) []string {
	op := summary.Operation
	if op == "" {
		op = "Run"
	}

	failed := fmt.Sprintf("Failed: %d", summary.Failed)
	if summary.Failed > 0 {
		failed = scheme.paint(failColor, failed)
	}

	lines := []string{
		scheme.paint(headerColor, fmt.Sprintf("=== %s Summary ===", op)),
		fmt.Sprintf("Total: %d", summary.Total),
		scheme.paint(successColor, fmt.Sprintf("Passed: %d", summary.Passed)),
		failed,
	}
	if summary.CacheHits > 0 {
		lines = append(lines, fmt.Sprintf("Cache hits: %d", summary.CacheHits))
	}
	lines = append(lines, fmt.Sprintf("Duration: %s", formatDuration(summary.Duration)))

	if len(summary.Failures) > 0 {
		lines = append(lines, scheme.paint(failColor, "Failures:"))
		for _, f := range summary.Failures {
			lines = append(lines, "  - "+f)
		}
	}
	return lines
}
