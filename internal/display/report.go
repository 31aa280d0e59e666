package display

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/history"
	"github.com/leoric-crown/textual-snapshots/internal/quality"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

// DetectionReport prints the issues found in one artifact, grouped by
// severity, followed by the deduplicated suggestions per category.
func DetectionReport(w io.Writer, path string, result detection.Result) {
	p := paletteFor(w)

	fmt.Fprintf(w, "%s\n", p.bold(path))
	if len(result.Issues) == 0 {
		fmt.Fprintf(w, "  %s %s\n\n", p.green("✓"), detection.Summarize(result))
		return
	}
	fmt.Fprintf(w, "  %s\n", detection.Summarize(result))

	for _, sev := range []detection.Severity{detection.SeverityCritical, detection.SeverityWarning, detection.SeverityInfo} {
		for _, issue := range result.BySeverity(sev) {
			fmt.Fprintf(w, "  %s %s\n", severityTag(p, sev), issue.Description)
		}
	}

	grouped := detection.GroupSuggestionsByCategory(result.Issues)
	categories := make([]string, 0, len(grouped))
	for cat, suggestions := range grouped {
		if len(suggestions) > 0 {
			categories = append(categories, string(cat))
		}
	}
	sort.Strings(categories)
	for _, cat := range categories {
		fmt.Fprintf(w, "  💡 %s:\n", cat)
		for _, s := range grouped[detection.Category(cat)] {
			fmt.Fprintf(w, "     • %s\n", s)
		}
	}
	fmt.Fprintln(w)
}

func severityTag(p palette, sev detection.Severity) string {
	switch sev {
	case detection.SeverityCritical:
		return p.red("[CRITICAL]")
	case detection.SeverityWarning:
		return p.yellow("[WARNING]")
	default:
		return p.blue("[INFO]")
	}
}

// QualityReport prints the component scores of one artifact. Scores below
// the matching threshold are highlighted.
func QualityReport(w io.Writer, path string, m quality.Metrics, t validation.Thresholds) {
	p := paletteFor(w)

	rows := []struct {
		label string
		value float64
		min   float64
	}{
		{"file size", m.FileSize, t.FileSizeMin},
		{"complexity", m.Complexity, t.ComplexityMin},
		{"structure", m.Structure, t.StructureMin},
		{"completeness", m.Completeness, t.CompletenessMin},
		{"overall", m.Overall, t.OverallMin},
	}

	fmt.Fprintf(w, "%s\n", p.bold(path))
	for _, r := range rows {
		fmt.Fprintf(w, "  %-13s %s  (min %.2f)\n", r.label, p.score(r.value, r.min, fmt.Sprintf("%.2f", r.value)), r.min)
	}
	fmt.Fprintln(w)
}

// VerdictReport prints an external validation verdict.
func VerdictReport(w io.Writer, path string, v validation.Verdict) {
	p := paletteFor(w)

	status := p.green("VALID")
	if !v.IsValid {
		status = p.red("INVALID")
	}
	fmt.Fprintf(w, "%s: %s (%s, confidence %.2f)\n", p.bold(path), status, v.Type, v.Confidence)

	if breakdown, ok := v.Metrics["validation_breakdown"].(map[string]float64); ok {
		passed, _ := v.Metrics["individual_results"].(map[string]bool)
		names := make([]string, 0, len(breakdown))
		for name := range breakdown {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			mark := p.green("✓")
			if !passed[name] {
				mark = p.red("✗")
			}
			fmt.Fprintf(w, "  %s %-10s %.2f\n", mark, name, breakdown[name])
		}
	}

	for _, issue := range v.Issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
	fmt.Fprintln(w)
}

// MissingArtifact marks a baseline frame with no current counterpart.
const MissingArtifact = "MISSING"

// ComparisonRow is one line of a baseline/current comparison.
type ComparisonRow struct {
	Baseline   string  `json:"baseline"`
	Current    string  `json:"current"`
	Similarity float64 `json:"similarity"`
	Passed     bool    `json:"passed"`
}

// Missing reports whether the current side of the row does not exist.
func (r ComparisonRow) Missing() bool {
	return r.Current == MissingArtifact
}

// ComparisonTable prints rows as an aligned table followed by a pass count.
func ComparisonTable(w io.Writer, rows []ComparisonRow, threshold float64) {
	p := paletteFor(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIMILARITY\tSTATUS\tNOTES")
	passed := 0
	for _, r := range rows {
		similarity := fmt.Sprintf("%.3f", r.Similarity)
		status, notes := "✗", fmt.Sprintf("Below threshold (%.3f)", threshold)
		switch {
		case r.Missing():
			similarity, notes = "N/A", "File missing"
		case r.Passed:
			status, notes = "✓", "Passed"
			passed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", filepath.Base(r.Baseline), similarity, status, notes)
	}
	tw.Flush()

	if passed == len(rows) {
		fmt.Fprintln(w, p.green(fmt.Sprintf("\n✓ All %d comparisons passed", len(rows))))
	} else {
		fmt.Fprintln(w, p.red(fmt.Sprintf("\n✗ %d of %d comparisons failed", len(rows)-passed, len(rows))))
	}
}

// HistoryTable prints recorded runs newest first.
func HistoryTable(w io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tCONTEXT\tVALID\tCONFIDENCE\tARTIFACT")
	for _, r := range runs {
		valid := "no"
		if r.Valid {
			valid = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Kind, dash(r.Context), valid, r.Confidence, filepath.Base(r.ArtifactPath))
	}
	tw.Flush()
}

// HistoryStats prints aggregate counts from the history store.
func HistoryStats(w io.Writer, s *history.Stats) {
	fmt.Fprintf(w, "Runs: %d (valid %d, invalid %d)\n", s.Total, s.Valid, s.Invalid)
	if s.Total == 0 {
		return
	}
	fmt.Fprintf(w, "Average confidence: %.2f\n", s.AverageConfidence)

	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.ByKind[history.Kind(k)]))
	}
	fmt.Fprintf(w, "By kind: %s\n", strings.Join(parts, ", "))
	if !s.LastRun.IsZero() {
		fmt.Fprintf(w, "Last run: %s\n", s.LastRun.Local().Format("2006-01-02 15:04:05"))
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
