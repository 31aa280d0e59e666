package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/fileutil"
)

type convertOptions struct {
	outputDir string
	batch     bool
	recursive bool
	tool      string
}

// NewConvertCommand creates and returns the convert subcommand
func NewConvertCommand() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <svg-file-or-directory>",
		Short: "Convert SVG frames to PNG",
		Long: `Rasterise SVG frames with the configured converter (rsvg-convert by
default, capture.converter in the config file).

Output goes to --output-dir, or a "converted" directory next to the input.
Use --batch to convert every SVG in a directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return runConvert(cmd.Context(), rt, args[0], opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for PNG files (default: <input dir>/converted)")
	cmd.Flags().BoolVar(&opts.batch, "batch", false, "Convert every SVG in the input directory")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "With --batch, include subdirectories")
	cmd.Flags().StringVar(&opts.tool, "converter", "", "Converter executable (default: from config)")

	return cmd
}

func runConvert(ctx context.Context, rt *runtime, input string, opts *convertOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", input, err)
	}

	var inputs []string
	outputDir := opts.outputDir
	switch {
	case info.IsDir() && !opts.batch:
		return fmt.Errorf("%s is a directory, use --batch to convert every SVG in it", input)
	case info.IsDir():
		files, err := fileutil.FindArtifacts(input, opts.recursive)
		if err != nil {
			return err
		}
		for _, f := range files {
			if strings.EqualFold(filepath.Ext(f), ".svg") {
				inputs = append(inputs, f)
			}
		}
		if outputDir == "" {
			outputDir = filepath.Join(input, "converted")
		}
	default:
		if !strings.EqualFold(filepath.Ext(input), ".svg") {
			return fmt.Errorf("%s is not an SVG file", input)
		}
		inputs = []string{input}
		if outputDir == "" {
			outputDir = filepath.Join(filepath.Dir(input), "converted")
		}
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no SVG files found in %s", input)
	}

	tool := opts.tool
	if tool == "" {
		tool = rt.cfg.Capture.Converter
	}
	converter, err := newConverter(tool)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	outputs := make([]string, len(inputs))
	failures := make([]error, len(inputs))
	err = forEach(ctx, len(inputs), rt.workers(), func(ctx context.Context, i int) error {
		stem := strings.TrimSuffix(filepath.Base(inputs[i]), filepath.Ext(inputs[i]))
		outputs[i] = filepath.Join(outputDir, stem+".png")
		failures[i] = converter.Convert(ctx, inputs[i], outputs[i])
		return nil
	})
	if err != nil {
		return err
	}

	failed := 0
	for i, in := range inputs {
		if failures[i] != nil {
			failed++
			rt.log.Errorf("convert %s: %v", in, failures[i])
			continue
		}
		fmt.Fprintf(out, "✓ %s -> %s\n", in, outputs[i])
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversion(s) failed", failed, len(inputs))
	}
	return nil
}
