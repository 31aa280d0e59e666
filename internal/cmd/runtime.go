package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leoric-crown/textual-snapshots/internal/config"
	"github.com/leoric-crown/textual-snapshots/internal/history"
	"github.com/leoric-crown/textual-snapshots/internal/logger"
	"github.com/leoric-crown/textual-snapshots/internal/similarity"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

// runtime is the per-invocation state every subcommand starts from:
// resolved configuration, the console logger and the state directory.
type runtime struct {
	cfg       *config.Config
	home      string
	log       *logger.ConsoleLogger
	quiet     bool
	noHistory bool
}

// loadRuntime loads the config file (or defaults), applies SNAPSHOTS_*
// environment overrides, then the global flags, and validates the result.
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	flags := cmd.Flags()

	home, err := config.Home()
	if err != nil {
		return nil, err
	}

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		configPath = filepath.Join(home, "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	var logLevel *string
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		v = strings.ToLower(strings.TrimSpace(v))
		logLevel = &v
	}
	verbose, _ := flags.GetBool("verbose")
	quiet, _ := flags.GetBool("quiet")
	if verbose && quiet {
		return nil, fmt.Errorf("--verbose and --quiet cannot be used together")
	}
	if logLevel == nil && verbose {
		v := "debug"
		logLevel = &v
	}
	if logLevel == nil && quiet {
		v := "error"
		logLevel = &v
	}

	var maxConcurrency *int
	if v, _ := flags.GetInt("max-concurrency"); v >= 0 {
		maxConcurrency = &v
	}

	cfg.MergeWithFlags(logLevel, nil, maxConcurrency, nil, nil)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	noHistory, _ := flags.GetBool("no-history")

	return &runtime{
		cfg:       cfg,
		home:      home,
		log:       logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel),
		quiet:     quiet,
		noHistory: noHistory,
	}, nil
}

// statePath anchors a relative state path (log dir, history db) at the
// project that owns the snapshots home.
func (rt *runtime) statePath(path string) string {
	return config.ResolvePath(rt.home, path)
}

// workers is the bound for parallel file checks.
func (rt *runtime) workers() int {
	if rt.cfg.MaxConcurrency > 0 {
		return rt.cfg.MaxConcurrency
	}
	return goruntime.NumCPU()
}

// engine builds the similarity engine shared by a command's checks.
func (rt *runtime) engine() *similarity.Engine {
	return similarity.Default()
}

// suite builds the external validation suite from configuration.
func (rt *runtime) suite() *validation.Suite {
	v := rt.cfg.Validation
	suite := validation.NewSuite(v.BaselineDir, v.PlatformDir)
	thresholds := v.Quality
	suite.Thresholds = &thresholds
	suite.SimilarityThreshold = v.SimilarityThreshold
	return suite.WithEngine(rt.engine())
}

// record writes runs to the history database unless history is disabled.
// Failures are logged, never returned: history is a side channel.
func (rt *runtime) record(ctx context.Context, runs ...*history.Run) {
	if len(runs) == 0 || rt.noHistory || !rt.cfg.History.Enabled {
		return
	}

	store, err := history.NewStore(rt.statePath(rt.cfg.History.DBPath))
	if err != nil {
		rt.log.Warnf("history disabled: %v", err)
		return
	}
	defer store.Close()

	for _, run := range runs {
		if err := store.Record(ctx, run); err != nil {
			rt.log.Warnf("failed to record %s run for %s: %v", run.Kind, run.ArtifactPath, err)
		}
	}
	rt.log.Debugf("recorded %d run(s) in %s", len(runs), store.Path())
}

// contextFromFilename derives a context name from an artifact file name by
// dropping the extension and a trailing _YYYYMMDD_HHMMSS capture stamp.
func contextFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(name, "_")
	if n := len(parts); n >= 3 && isStamp(parts[n-2], "20060102") && isStamp(parts[n-1], "150405") {
		name = strings.Join(parts[:n-2], "_")
	}
	if name == "" {
		return "capture"
	}
	return name
}

func isStamp(s, layout string) bool {
	if len(s) != len(layout) {
		return false
	}
	_, err := time.Parse(layout, s)
	return err == nil
}
