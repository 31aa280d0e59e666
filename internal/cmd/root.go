package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for snapshots
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Visual regression checks for terminal UI applications",
		Long: `Snapshots captures rendered frames of terminal UI applications and checks
them for regressions.

It validates interaction sequences before anything runs, detects empty or
broken captures, scores frame quality, and compares frames against human
baselines and cross-platform references using deterministic similarity
metrics.

Configuration is loaded from .snapshots/config.yaml if present. A .env file
in the working directory is loaded first, so SNAPSHOTS_* variables can be
set there.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text; main prints the error
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: .snapshots/config.yaml)")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.BoolP("verbose", "v", false, "Verbose output (debug logging)")
	flags.BoolP("quiet", "q", false, "Only print errors")
	flags.Int("max-concurrency", -1, "Maximum parallel file checks (0 = number of CPUs, -1 = use config)")
	flags.Bool("no-history", false, "Do not record results in the history database")

	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewDetectCommand())
	cmd.AddCommand(NewAssessCommand())
	cmd.AddCommand(NewVerifyCommand())
	cmd.AddCommand(NewCompareCommand())
	cmd.AddCommand(NewCaptureCommand())
	cmd.AddCommand(NewConvertCommand())
	cmd.AddCommand(NewPromoteCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
