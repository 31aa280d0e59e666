package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/display"
	"github.com/leoric-crown/textual-snapshots/internal/fileutil"
	"github.com/leoric-crown/textual-snapshots/internal/history"
	"github.com/leoric-crown/textual-snapshots/internal/logger"
)

type detectOptions struct {
	context     string
	noStructure bool
	recursive   bool
	jsonOutput  bool
}

// detectEntry is one artifact's detection outcome, also the JSON shape.
type detectEntry struct {
	Path    string           `json:"path"`
	Context string           `json:"context"`
	Result  detection.Result `json:"result"`
}

// NewDetectCommand creates and returns the detect subcommand
func NewDetectCommand() *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <artifact-or-directory>...",
		Short: "Detect empty, broken or suspicious captures",
		Long: `Run proactive error detection over captured frames.

Each artifact goes through file size analysis, SVG structure analysis,
content pattern analysis and platform checks. Issues are reported by
severity with suggestions grouped by category.

Directories are scanned for .svg and .png files (use -r to recurse).
The context name defaults to the file name without its capture stamp.

Exit code: 0 if no critical issues, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return runDetect(cmd.Context(), rt, args, opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&opts.context, "context", "", "Context name for every artifact (default: derived from file name)")
	cmd.Flags().BoolVar(&opts.noStructure, "no-structure", false, "Skip SVG structure analysis")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Scan directories recursively")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")

	return cmd
}

func runDetect(ctx context.Context, rt *runtime, args []string, opts *detectOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	paths, err := fileutil.ExpandArtifactArgs(args, opts.recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no artifacts found in %v", args)
	}

	detector := detection.NewDetector(rt.cfg.Detection.Thresholds).
		WithStructuralAnalysis(rt.cfg.Detection.StructuralAnalysis && !opts.noStructure)

	entries := make([]detectEntry, len(paths))
	err = forEach(ctx, len(paths), rt.workers(), func(_ context.Context, i int) error {
		contextName := opts.context
		if contextName == "" {
			contextName = contextFromFilename(paths[i])
		}
		result, err := capture.FromFile(paths[i], contextName)
		if err != nil {
			return err
		}
		entries[i] = detectEntry{Path: paths[i], Context: contextName, Result: detector.Detect(result)}
		return nil
	})
	if err != nil {
		return err
	}

	summary := logger.Summary{Operation: "Detection", Total: len(entries)}
	runs := make([]*history.Run, 0, len(entries))
	for _, e := range entries {
		rt.log.LogDetection(e.Path, e.Result)
		if e.Result.HasCritical() {
			summary.Failed++
			summary.Failures = append(summary.Failures, e.Path)
		} else {
			summary.Passed++
		}
		runs = append(runs, &history.Run{
			Kind:         history.KindDetect,
			ArtifactPath: e.Path,
			Context:      e.Context,
			Valid:        !e.Result.HasCritical(),
			Confidence:   e.Result.Confidence,
			Summary:      detection.Summarize(e.Result),
			Details:      map[string]any{"issues": len(e.Result.Issues)},
		})
	}
	rt.record(ctx, runs...)

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	} else {
		for _, e := range entries {
			if rt.quiet && len(e.Result.Issues) == 0 {
				continue
			}
			display.DetectionReport(out, e.Path, e.Result)
		}
	}

	summary.Duration = time.Since(start)
	if len(entries) > 1 {
		rt.log.LogSummary(summary)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("critical issues detected in %d of %d artifact(s)", summary.Failed, summary.Total)
	}
	return nil
}
