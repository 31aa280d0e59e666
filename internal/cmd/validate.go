package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/display"
	"github.com/leoric-crown/textual-snapshots/internal/interaction"
	"github.com/leoric-crown/textual-snapshots/internal/scenario"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "validate [interaction]...",
		Short: "Validate interaction sequences or a scenario file",
		Long: `Check interactions before anything is launched.

Each interaction must use the kind:target form, for example:
  press:enter  press:ctrl+c  click:#submit  hover:.menu-item  type:hello  wait:0.5

Every interaction is checked independently and every problem is reported
with suggestions and correct examples.

With --scenario the whole scenario file (YAML or Markdown) is validated,
including the interactions of every capture.

Exit code: 0 if valid, 1 if errors found`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenarioPath != "" {
				if len(args) > 0 {
					return fmt.Errorf("interactions and --scenario cannot be combined")
				}
				return validateScenario(scenarioPath, cmd.OutOrStdout())
			}
			if len(args) == 0 {
				return fmt.Errorf("no interactions given (pass them as arguments or use --scenario)")
			}
			return validateInteractions(args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "Validate a scenario file instead of arguments")

	return cmd
}

// validateInteractions validates a sequence given on the command line.
func validateInteractions(raws []string, out io.Writer) error {
	result := interaction.ValidateSequence(raws)
	if !result.IsValid {
		fmt.Fprint(out, interaction.FormatErrors(result))
		return fmt.Errorf("%d of %d interaction(s) invalid", len(result.Errors), len(raws))
	}

	fmt.Fprintf(out, "✓ %d interaction(s) valid\n", len(result.Validated))
	for i, v := range result.Validated {
		fmt.Fprintf(out, "  %d. %s\n", i+1, v)
	}
	return nil
}

// validateScenario parses a scenario file and reports every problem in it.
func validateScenario(path string, out io.Writer) error {
	s, err := scenario.ParseFile(path)
	if err == nil {
		fmt.Fprintf(out, "✓ Scenario %s is valid: %d capture(s)\n", s.Name, len(s.Captures))
		for _, c := range s.Captures {
			fmt.Fprintf(out, "  - %s (%d interaction(s))\n", c.Name, len(c.Interactions))
		}
		return nil
	}

	var serr *scenario.Error
	if !errors.As(err, &serr) {
		return err
	}
	reportScenarioError(out, serr)
	return fmt.Errorf("scenario %s is invalid: %d problem(s)", path, len(serr.Problems))
}

// reportScenarioError prints a warning per capture with bad interactions,
// the validator's full report, then the remaining field problems.
func reportScenarioError(out io.Writer, serr *scenario.Error) {
	names := make([]string, 0, len(serr.Interactions))
	for name := range serr.Interactions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		seq := serr.Interactions[name]
		display.WarnInvalidInteractions(name, seq).Display(out)
		fmt.Fprintln(out, interaction.FormatErrors(seq))
	}

	var other []string
	for _, p := range serr.Problems {
		if _, ok := serr.Interactions[p.Capture]; ok && strings.HasPrefix(p.Field, "interactions[") {
			continue
		}
		if p.Capture == "" {
			other = append(other, fmt.Sprintf("%s: %s", p.Field, p.Message))
		} else {
			other = append(other, fmt.Sprintf("%s: %s: %s", p.Capture, p.Field, p.Message))
		}
	}
	if len(other) > 0 {
		display.WarnFiles("Invalid scenario fields", other).Display(out)
	}
}
