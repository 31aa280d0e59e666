package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/display"
	"github.com/leoric-crown/textual-snapshots/internal/history"
)

// NewHistoryCommand creates and returns the history subcommand
func NewHistoryCommand() *cobra.Command {
	var (
		contextName string
		limit       int
		stats       bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded detection, verification, comparison and capture runs",
		Long: `List recent runs from the history database (.snapshots/history.db by
default), newest first. Use --context to follow one screen over time and
--stats for aggregate counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return runHistory(cmd.Context(), rt, contextName, limit, stats, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&contextName, "context", "", "Only show runs for this context")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 = all)")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show aggregate statistics instead of runs")

	return cmd
}

func runHistory(ctx context.Context, rt *runtime, contextName string, limit int, stats bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := history.NewStore(rt.statePath(rt.cfg.History.DBPath))
	if err != nil {
		return err
	}
	defer store.Close()

	if stats {
		s, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		display.HistoryStats(out, s)
		return nil
	}

	var runs []*history.Run
	if contextName != "" {
		runs, err = store.ForContext(ctx, contextName, limit)
	} else {
		runs, err = store.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}
	display.HistoryTable(out, runs)
	return nil
}
