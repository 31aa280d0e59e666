package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/display"
	"github.com/leoric-crown/textual-snapshots/internal/fileutil"
	"github.com/leoric-crown/textual-snapshots/internal/quality"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

type assessEntry struct {
	Path    string             `json:"path"`
	Scores  map[string]float64 `json:"scores"`
	Valid   bool               `json:"valid"`
	Issues  []string           `json:"issues,omitempty"`
	metrics quality.Metrics
}

// NewAssessCommand creates and returns the assess subcommand
func NewAssessCommand() *cobra.Command {
	var recursive, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "assess <artifact-or-directory>...",
		Short: "Score the quality of captured frames",
		Long: `Compute quality metrics for captured frames: file size, content
complexity, SVG structure and completeness, plus their weighted overall
score. Each score is checked against the configured minimums
(validation.quality in the config file).

Exit code: 0 if every frame meets the thresholds, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return runAssess(cmd.Context(), rt, args, recursive, jsonOutput, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Scan directories recursively")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print scores as JSON")

	return cmd
}

func runAssess(ctx context.Context, rt *runtime, args []string, recursive, jsonOutput bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	paths, err := fileutil.ExpandArtifactArgs(args, recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no artifacts found in %v", args)
	}

	suite := rt.suite()
	entries := make([]assessEntry, len(paths))
	err = forEach(ctx, len(paths), rt.workers(), func(_ context.Context, i int) error {
		result, err := capture.FromFile(paths[i], contextFromFilename(paths[i]))
		if err != nil {
			return err
		}
		m := quality.Score(result)
		v := suite.AssessQuality(result)
		entries[i] = assessEntry{Path: paths[i], Scores: m.ToMap(), Valid: v.IsValid, Issues: v.Issues, metrics: m}
		return nil
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, e := range entries {
		if !e.Valid {
			failed++
			rt.log.Warnf("%s below quality thresholds: %v", e.Path, e.Issues)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode scores: %w", err)
		}
	} else {
		thresholds := validation.DefaultThresholds()
		if suite.Thresholds != nil {
			thresholds = *suite.Thresholds
		}
		for _, e := range entries {
			display.QualityReport(out, e.Path, e.metrics, thresholds)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d artifact(s) below quality thresholds", failed, len(entries))
	}
	return nil
}
