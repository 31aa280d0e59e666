package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/display"
	"github.com/leoric-crown/textual-snapshots/internal/filelock"
	"github.com/leoric-crown/textual-snapshots/internal/fileutil"
	"github.com/leoric-crown/textual-snapshots/internal/history"
)

type compareOptions struct {
	threshold float64
	recursive bool
	report    string
}

// compareSummary and compareReport are the JSON report shape.
type compareSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

type compareReport struct {
	Threshold float64                 `json:"threshold"`
	Summary   compareSummary          `json:"summary"`
	Results   []display.ComparisonRow `json:"results"`
}

// NewCompareCommand creates and returns the compare subcommand
func NewCompareCommand() *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare <baseline> <current>",
		Short: "Compare current frames against baseline frames",
		Long: `Compare two frames, or two directories of frames, using deterministic
similarity (exact hash, SVG structure, then file size).

Both arguments must be files or both must be directories. Directory
frames are matched by relative path; a baseline frame with no current
counterpart fails as MISSING, and current frames with no baseline are
listed as a warning.

Exit code: 0 if every comparison meets the threshold, 1 otherwise`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return runCompare(cmd.Context(), rt, args[0], args[1], opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", -1, "Minimum similarity to pass, 0.0-1.0 (default: from config)")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Match frames in subdirectories")
	cmd.Flags().StringVar(&opts.report, "output-report", "", "Write a JSON report to this path")

	return cmd
}

func runCompare(ctx context.Context, rt *runtime, baseline, current string, opts *compareOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	threshold := rt.cfg.Compare.Threshold
	if opts.threshold >= 0 {
		threshold = opts.threshold
	}
	if threshold > 1 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0, got %.3f", threshold)
	}

	baseInfo, err := os.Stat(baseline)
	if err != nil {
		return fmt.Errorf("cannot read baseline: %w", err)
	}
	curInfo, err := os.Stat(current)
	if err != nil {
		return fmt.Errorf("cannot read current: %w", err)
	}

	var (
		rows  []display.ComparisonRow
		added []string
	)
	switch {
	case !baseInfo.IsDir() && !curInfo.IsDir():
		rows = []display.ComparisonRow{{Baseline: baseline, Current: current}}
	case baseInfo.IsDir() && curInfo.IsDir():
		paired, err := fileutil.PairArtifacts(baseline, current, opts.recursive)
		if err != nil {
			return err
		}
		rows, added = pairedRows(baseline, paired)
		if len(rows) == 0 {
			return fmt.Errorf("no baseline frames found in %s", baseline)
		}
	default:
		return fmt.Errorf("both paths must be files or both must be directories")
	}

	engine := rt.engine()
	err = forEach(ctx, len(rows), rt.workers(), func(_ context.Context, i int) error {
		if rows[i].Missing() {
			return nil
		}
		rows[i].Similarity = engine.FileSimilarity(rows[i].Baseline, rows[i].Current)
		rows[i].Passed = rows[i].Similarity >= threshold
		return nil
	})
	if err != nil {
		return err
	}

	report := compareReport{Threshold: threshold, Results: rows}
	report.Summary.Total = len(rows)
	runs := make([]*history.Run, 0, len(rows))
	for _, r := range rows {
		if r.Passed {
			report.Summary.Passed++
		}
		rt.log.Debugf("compare %s -> %s: %.3f", r.Baseline, r.Current, r.Similarity)
		runs = append(runs, &history.Run{
			Kind:         history.KindCompare,
			ArtifactPath: r.Current,
			Context:      contextFromFilename(r.Baseline),
			Valid:        r.Passed,
			Confidence:   r.Similarity,
			Summary:      fmt.Sprintf("similarity %.3f to %s (threshold %.3f)", r.Similarity, r.Baseline, threshold),
			Details:      map[string]any{"baseline": r.Baseline, "threshold": threshold},
		})
	}
	report.Summary.Failed = report.Summary.Total - report.Summary.Passed
	rt.record(ctx, runs...)

	if !rt.quiet || report.Summary.Failed > 0 {
		display.ComparisonTable(out, rows, threshold)
	}
	if w, ok := display.WarnUnpairedArtifacts(nil, added); ok && !rt.quiet {
		w.Display(out)
	}

	reportPath := opts.report
	if reportPath == "" {
		reportPath = rt.cfg.Compare.ReportPath
	}
	if reportPath != "" {
		if err := filelock.WriteJSON(reportPath, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		rt.log.Infof("Report written to %s", reportPath)
	}

	if report.Summary.Failed > 0 {
		return fmt.Errorf("screenshot comparison failed or differences found")
	}
	return nil
}

// pairedRows lists every baseline frame in name order. Frames missing from
// the current tree become MISSING rows; frames only in the current tree are
// returned separately.
func pairedRows(baselineDir string, paired *fileutil.PairResult) ([]display.ComparisonRow, []string) {
	byName := make(map[string]display.ComparisonRow, len(paired.Pairs)+len(paired.MissingInCurrent))
	names := make([]string, 0, len(byName))
	for _, p := range paired.Pairs {
		byName[p.Name] = display.ComparisonRow{Baseline: p.Baseline, Current: p.Current}
		names = append(names, p.Name)
	}
	for _, name := range paired.MissingInCurrent {
		byName[name] = display.ComparisonRow{Baseline: filepath.Join(baselineDir, filepath.FromSlash(name)), Current: display.MissingArtifact}
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]display.ComparisonRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, byName[name])
	}
	return rows, paired.NewInCurrent
}
