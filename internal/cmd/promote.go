package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/filelock"
)

type promoteOptions struct {
	context  string
	platform string
	dir      string
}

// NewPromoteCommand creates and returns the promote subcommand
func NewPromoteCommand() *cobra.Command {
	opts := &promoteOptions{}

	cmd := &cobra.Command{
		Use:   "promote <artifact>...",
		Short: "Approve frames as human baselines or platform references",
		Long: `Copy approved frames into the reference directories used by verify.

Baselines are stored as <context>_baseline_<NNN>.<ext> in the baseline
directory. With --platform the frame becomes a platform reference named
<context>_platform_<platform>_<NNN>.<ext> in the platform directory.
Existing references are never overwritten; the next free number is used.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return runPromote(rt, args, opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&opts.context, "context", "", "Context name (default: derived from file name)")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "Store as a reference for this platform (e.g. linux, darwin)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Destination directory (default: baseline or platform dir from config)")

	return cmd
}

func runPromote(rt *runtime, paths []string, opts *promoteOptions, out io.Writer) error {
	if strings.ContainsAny(opts.platform, "_/\\") {
		return fmt.Errorf("platform name %q must not contain '_' or path separators", opts.platform)
	}

	dir := opts.dir
	if dir == "" {
		dir = rt.cfg.Validation.BaselineDir
		if opts.platform != "" {
			dir = rt.cfg.Validation.PlatformDir
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}

		contextName := opts.context
		if contextName == "" {
			contextName = contextFromFilename(path)
		}
		prefix := contextName + "_baseline_"
		if opts.platform != "" {
			prefix = contextName + "_platform_" + opts.platform + "_"
		}

		n, err := nextReferenceNumber(dir, prefix)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, fmt.Sprintf("%s%03d%s", prefix, n, strings.ToLower(filepath.Ext(path))))
		if err := filelock.CopyFile(path, dst); err != nil {
			return fmt.Errorf("promote %s: %w", path, err)
		}
		rt.log.Debugf("promoted %s to %s", path, dst)
		fmt.Fprintf(out, "✓ %s -> %s\n", path, dst)
	}
	return nil
}

// nextReferenceNumber returns one more than the highest number already
// used by references in dir starting with prefix.
func nextReferenceNumber(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	highest := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), filepath.Ext(name))
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}
