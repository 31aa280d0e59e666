package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/display"
	"github.com/leoric-crown/textual-snapshots/internal/history"
	"github.com/leoric-crown/textual-snapshots/internal/logger"
	"github.com/leoric-crown/textual-snapshots/internal/scenario"
	"github.com/leoric-crown/textual-snapshots/internal/tmux"
)

// newRenderer and newConverter are replaced in tests so captures run
// without tmux or an SVG rasteriser.
var (
	newRenderer = func(opts tmux.Options) (capture.Renderer, error) {
		r, err := tmux.NewRenderer(opts)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	newConverter = func(tool string) (capture.Converter, error) {
		c, err := capture.NewCommandConverter(tool)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
)

type captureOptions struct {
	only     []string
	format   string
	baseDir  string
	noChecks bool
	strict   bool
}

// NewCaptureCommand creates and returns the capture subcommand
func NewCaptureCommand() *cobra.Command {
	opts := &captureOptions{}

	cmd := &cobra.Command{
		Use:   "capture <scenario-file>",
		Short: "Capture the frames described by a scenario file",
		Long: `Launch the application of each capture in a detached tmux session,
replay its interactions and write the rendered pane as an SVG frame
(and PNG with --format png or both).

Scenario files are YAML (.yaml, .yml) or Markdown (.md). Every interaction
is validated before anything is launched; invalid scenarios are reported in
full and nothing runs.

Each successful frame goes through error detection and external
validation. Results are logged to .snapshots/logs and recorded in the run
history.

Exit code: 0 if every capture succeeded without critical issues, 1 otherwise`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				opts.format = ""
			}
			return runCapture(cmd.Context(), rt, args[0], opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "Capture only the named captures (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "svg", "Output format for every capture: svg, png or both (default: per capture)")
	cmd.Flags().StringVar(&opts.baseDir, "base-dir", "", "Capture output directory (default: from config)")
	cmd.Flags().BoolVar(&opts.noChecks, "no-checks", false, "Skip error detection and validation of captured frames")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Also fail when a frame does not pass external validation")

	return cmd
}

func runCapture(ctx context.Context, rt *runtime, path string, opts *captureOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	cfg := rt.cfg

	if !rt.quiet {
		display.DisplaySingle(out, "Loading scenario", path)
	}
	s, err := scenario.ParseFile(path)
	if err != nil {
		var serr *scenario.Error
		if errors.As(err, &serr) {
			reportScenarioError(out, serr)
			return fmt.Errorf("scenario %s is invalid: %d problem(s), nothing was captured", path, len(serr.Problems))
		}
		return err
	}
	captures, err := s.Select(opts.only...)
	if err != nil {
		return err
	}

	var override capture.Format
	if opts.format != "" {
		if override, err = capture.ParseFormat(opts.format); err != nil {
			return err
		}
	}
	formats := make([]capture.Format, len(captures))
	needsPNG := false
	for i, c := range captures {
		formats[i] = c.Format
		if override != "" {
			formats[i] = override
		}
		if formats[i] == "" {
			formats[i] = capture.Format(cfg.Capture.Format)
		}
		needsPNG = needsPNG || formats[i] != capture.FormatSVG
	}

	fileLog, err := logger.NewFileLoggerWithDirAndLevel(rt.statePath(cfg.LogDir), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer fileLog.Close()
	log := logger.NewMultiLogger(rt.log, fileLog)
	log.Infof("Scenario %s: %d capture(s) from %s", s.Name, len(captures), s.FilePath)

	renderer, err := newRenderer(tmux.Options{
		TmuxPath: cfg.Capture.TmuxPath,
		Width:    cfg.Capture.Width,
		Height:   cfg.Capture.Height,
		Timeout:  cfg.Capture.Timeout,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	var converter capture.Converter
	if needsPNG {
		if converter, err = newConverter(cfg.Capture.Converter); err != nil {
			return fmt.Errorf("png output requested: %w", err)
		}
	}

	baseDir := cfg.Capture.BaseDir
	if opts.baseDir != "" {
		baseDir = opts.baseDir
	}
	settle := cfg.Capture.SettleDelay
	if s.SettleDelay > 0 {
		settle = s.SettleDelay
	}

	// Lifecycle lines go to the run log; the console gets one line per capture.
	metrics := capture.NewMetricsPlugin()
	capturer, err := capture.New(renderer, capture.Options{
		BaseDir:     baseDir,
		CacheTTL:    cfg.Capture.CacheTTL,
		SettleDelay: settle,
		Converter:   converter,
		Logger:      log,
	}, capture.NewLoggingPlugin(fileLog), capture.NewValidationPlugin(), metrics)
	if err != nil {
		return err
	}

	app := s.App
	if app == "" {
		app = s.Name
	}
	detector := detection.NewDetector(cfg.Detection.Thresholds).
		WithStructuralAnalysis(cfg.Detection.StructuralAnalysis)
	suite := rt.suite()

	progress := display.NewProgressIndicator(out, len(captures), "Capturing", "Captured")
	progress.Start("screen(s)")

	summary := logger.Summary{Operation: "Capture", Total: len(captures)}
	runs := make([]*history.Run, 0, len(captures))
	for i, c := range captures {
		progress.Step(c.Name)

		result := capturer.Capture(ctx, c.AppContext(app), c.Context, formats[i], c.Interactions)
		rt.log.LogCaptureResult(result)
		if result.CacheHit {
			summary.CacheHits++
		}
		run := &history.Run{
			Kind:         history.KindCapture,
			ArtifactPath: result.ArtifactPath,
			Context:      result.Context,
			Valid:        result.Success,
			Details:      map[string]any{"scenario": s.Name, "capture": c.Name, "format": string(formats[i])},
		}
		runs = append(runs, run)

		if !result.Success {
			summary.Failed++
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %s", c.Name, result.ErrorMessage))
			run.Summary = result.ErrorMessage
			continue
		}
		run.Confidence = 1
		if opts.noChecks {
			summary.Passed++
			continue
		}

		det := detector.Detect(result)
		log.LogDetection(result.ArtifactPath, det)
		verdict := suite.Validate(result)
		log.LogVerdict(result.ArtifactPath, verdict)

		run.Confidence = verdict.Confidence
		run.Valid = !det.HasCritical() && (verdict.IsValid || !opts.strict)
		run.Summary = detection.Summarize(det)
		run.Details["verdict_valid"] = verdict.IsValid
		run.Details["issues"] = len(det.Issues)

		if !run.Valid {
			summary.Failed++
			reason := detection.Summarize(det)
			if !det.HasCritical() {
				reason = "external validation failed: " + strings.Join(verdict.Issues, "; ")
			}
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %s", c.Name, reason))
			display.DetectionReport(out, result.ArtifactPath, det)
			continue
		}
		summary.Passed++
	}
	progress.Complete("screen(s)", summary.Failed)
	rt.record(ctx, runs...)

	summary.Duration = time.Since(start)
	log.LogSummary(summary)

	if !rt.quiet {
		m := metrics.Metrics()
		stats := capturer.Cache().Stats()
		fmt.Fprintf(out, "Frames: %s\n", filepath.Join(baseDir, "apps"))
		fmt.Fprintf(out, "Success rate: %.0f%%, average size %.0f bytes, average time %s\n",
			m.SuccessRate*100, m.AverageFileSize, m.AverageDuration.Round(time.Millisecond))
		fmt.Fprintf(out, "Cache: %d entries, %d hit(s), hit rate %.0f%%\n", stats.TotalEntries, m.CacheHits, m.CacheHitRate*100)
		fmt.Fprintf(out, "Run log: %s\n", fileLog.RunFile())
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d capture(s) failed", summary.Failed, summary.Total)
	}
	return nil
}
