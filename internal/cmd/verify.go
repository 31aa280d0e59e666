package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/display"
	"github.com/leoric-crown/textual-snapshots/internal/history"
)

type verifyOptions struct {
	context     string
	baselineDir string
	platformDir string
}

// NewVerifyCommand creates and returns the verify subcommand
func NewVerifyCommand() *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <artifact>...",
		Short: "Validate frames against baselines, platform references and quality",
		Long: `Run the multi-point external validation over captured frames.

Three independent checks are combined into one verdict:
  human_baseline        similarity to <context>_baseline_* files
  platform_consistency  similarity to <context>_<platform>_* references
  quality_assessment    quality scores against the configured minimums

A missing reference directory is not an error: the check passes with low
confidence. A frame is valid only if every check passes.

Exit code: 0 if every frame is valid, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return runVerify(cmd.Context(), rt, args, opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&opts.context, "context", "", "Context name used to find references (default: derived from file name)")
	cmd.Flags().StringVar(&opts.baselineDir, "baseline-dir", "", "Human baseline directory (default: from config)")
	cmd.Flags().StringVar(&opts.platformDir, "platform-dir", "", "Platform reference directory (default: from config)")

	return cmd
}

func runVerify(ctx context.Context, rt *runtime, paths []string, opts *verifyOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	suite := rt.suite()
	if opts.baselineDir != "" {
		suite.BaselineDir = opts.baselineDir
	}
	if opts.platformDir != "" {
		suite.PlatformDir = opts.platformDir
	}

	var invalid []string
	runs := make([]*history.Run, 0, len(paths))
	for _, path := range paths {
		contextName := opts.context
		if contextName == "" {
			contextName = contextFromFilename(path)
		}
		result, err := capture.FromFile(path, contextName)
		if err != nil {
			return err
		}

		verdict := suite.Validate(result)
		rt.log.LogVerdict(path, verdict)
		display.VerdictReport(out, path, verdict)

		if !verdict.IsValid {
			invalid = append(invalid, path)
		}
		runs = append(runs, &history.Run{
			Kind:         history.KindVerify,
			ArtifactPath: path,
			Context:      contextName,
			Valid:        verdict.IsValid,
			Confidence:   verdict.Confidence,
			Summary:      strings.Join(verdict.Issues, "; "),
			Details:      verdict.Metrics,
		})
	}
	rt.record(ctx, runs...)

	if len(invalid) > 0 {
		return fmt.Errorf("validation failed for %d of %d artifact(s)", len(invalid), len(paths))
	}
	return nil
}
