// Package detection finds likely capture defects before they surface as test
// failures: empty screens, truncated renders, malformed documents and
// rendering loops. Every check is a deterministic heuristic over file size
// and document structure.
package detection

import (
	"fmt"
	"strings"
	"time"
)

// Category groups related issues.
type Category string

const (
	CategoryEmptyScreen       Category = "empty_screen"
	CategoryLayoutIssues      Category = "layout_issues"
	CategoryRenderingFailures Category = "rendering_failures"
	CategoryCaptureQuality    Category = "capture_quality"
	CategoryCaptureFailure    Category = "capture_failure"
	CategoryAnalysisError     Category = "analysis_error"
)

// Severity ranks issues.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Weight is the severity's contribution to the aggregate confidence.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityWarning:
		return 0.7
	case SeverityInfo:
		return 0.4
	}
	return 0.5
}

// Issue is one detected problem.
type Issue struct {
	Category    Category       `json:"category"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Confidence  float64        `json:"confidence"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Result is the outcome of one detection run.
type Result struct {
	Issues     []Issue        `json:"issues"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
	Timestamp  time.Time      `json:"timestamp"`
}

// HasCritical reports whether any issue is critical.
func (r Result) HasCritical() bool {
	return len(r.BySeverity(SeverityCritical)) > 0
}

// HasWarnings reports whether any issue is a warning.
func (r Result) HasWarnings() bool {
	return len(r.BySeverity(SeverityWarning)) > 0
}

// BySeverity returns the issues with the given severity in detection order.
func (r Result) BySeverity(sev Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// Confidence is the severity-weighted mean of issue confidences, or 1.0 when
// there are no issues.
func Confidence(issues []Issue) float64 {
	if len(issues) == 0 {
		return 1.0
	}

	var weighted, total float64
	for _, issue := range issues {
		w := issue.Severity.Weight()
		total += w
		weighted += w * issue.Confidence
	}
	return weighted / total
}

// GroupSuggestionsByCategory collects suggestions per category, dropping
// duplicates and keeping first-seen order.
func GroupSuggestionsByCategory(issues []Issue) map[Category][]string {
	grouped := make(map[Category][]string)
	seen := make(map[Category]map[string]bool)

	for _, issue := range issues {
		if _, ok := grouped[issue.Category]; !ok {
			grouped[issue.Category] = []string{}
			seen[issue.Category] = make(map[string]bool)
		}
		for _, s := range issue.Suggestions {
			if seen[issue.Category][s] {
				continue
			}
			seen[issue.Category][s] = true
			grouped[issue.Category] = append(grouped[issue.Category], s)
		}
	}
	return grouped
}

// Summarize renders a one-line human summary of a result.
func Summarize(r Result) string {
	if len(r.Issues) == 0 {
		return "No issues detected - screenshot appears healthy"
	}

	var parts []string
	if n := len(r.BySeverity(SeverityCritical)); n > 0 {
		parts = append(parts, plural(n, "critical issue"))
	}
	if n := len(r.BySeverity(SeverityWarning)); n > 0 {
		parts = append(parts, plural(n, "warning"))
	}
	if n := len(r.BySeverity(SeverityInfo)); n > 0 {
		parts = append(parts, plural(n, "info item"))
	}

	return fmt.Sprintf("Detected: %s (confidence: %.2f)", strings.Join(parts, ", "), r.Confidence)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
