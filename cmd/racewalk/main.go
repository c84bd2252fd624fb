// ============================================================================
// racewalk CLI entrypoint
// ============================================================================
//
// Package: cmd/racewalk
// File: main.go
// Purpose: Command line interface for the stateless model checker, built
// on cobra exactly like the teacher's beaver-raft CLI: a root command that
// carries explore's flags (including --config), one primary subcommand
// (explore, also the default when no subcommand is given), and a version
// command.
//
// ============================================================================

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ChuLiYu/racewalk/internal/config"
	"github.com/ChuLiYu/racewalk/internal/explorer"
	"github.com/ChuLiYu/racewalk/internal/metrics"
	"github.com/ChuLiYu/racewalk/internal/replay"
	"github.com/ChuLiYu/racewalk/internal/runid"
	"github.com/ChuLiYu/racewalk/internal/schedule"
	"github.com/ChuLiYu/racewalk/internal/tracefile"
	"github.com/ChuLiYu/racewalk/pkg/racetypes"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// exploreFlags holds every explore flag's bound value, backfilled from
// the config file for anything left at its default before Run executes.
type exploreFlags struct {
	inDir          string
	inScheduleFile string
	site           string
	replayCommand  string
	queryCommand   string
	outDir         string
	metricsAddr    string

	conflictReversalBound         int
	conflictReversalBoundOldStyle bool
	iterationBound                int
	fastForward                   bool
	sameStateReversalOpt          bool

	configFile string
}

func main() {
	if err := buildCLI().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:     "racewalk",
		Short:   "racewalk explores alternative event interleavings via race reversal",
		Version: version,
	}

	explore := buildExploreCommand()
	root.AddCommand(explore)
	root.AddCommand(buildVersionCommand())

	// No subcommand given -> run explore, mirroring the teacher's "no
	// args means run" convention.
	root.RunE = explore.RunE
	root.Flags().AddFlagSet(explore.Flags())

	return root
}

func buildExploreCommand() *cobra.Command {
	f := &exploreFlags{}

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Explore alternative schedules from a seed trace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.inDir, "in-dir", "", "base directory the replay runtime reads its recorded state from")
	flags.StringVar(&f.inScheduleFile, "in-schedule-file", "", "seed schedule file")
	flags.StringVar(&f.site, "site", "", "site identifier passed through to the replay runtime (required)")
	flags.StringVar(&f.replayCommand, "replay-command", "", "replay command template (%s base dir, %s site, %s schedule path)")
	flags.StringVar(&f.queryCommand, "query-command", "", "outcome query command template (%s out dir, %s run name)")
	flags.StringVar(&f.outDir, "out-dir", "out", "directory to collect run artifacts into")
	flags.IntVar(&f.conflictReversalBound, "conflict-reversal-bound", 1, "maximum reversal depth explored per branch")
	flags.BoolVar(&f.conflictReversalBoundOldStyle, "conflict-reversal-bound-oldstyle", false, "measure the depth bound by stack path length instead of reversal count")
	flags.IntVar(&f.iterationBound, "iteration-bound", -1, "maximum EAT entries to execute; -1 for unlimited")
	flags.BoolVar(&f.fastForward, "fast-forward", false, "skip replay invocation when a run's artifacts are already present")
	flags.BoolVar(&f.sameStateReversalOpt, "same-state-reversal-opt", false, "prune reversals away from benign runs unless on a just-reversed state")
	flags.StringVar(&f.metricsAddr, "metrics-addr", ":9090", "address to serve Prometheus metrics on; empty disables metrics")
	flags.StringVarP(&f.configFile, "config", "c", "", "optional YAML config file supplying flag defaults")

	return cmd
}

func buildVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the racewalk version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("racewalk", version)
			return nil
		},
	}
}

func runExplore(f *exploreFlags) error {
	fileCfg, err := config.Load(f.configFile)
	if err != nil {
		return err
	}
	applyConfigDefaults(f, fileCfg)

	if f.site == "" {
		log.Println("racewalk: --site is required")
		os.Exit(1)
	}

	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return fmt.Errorf("racewalk: create out-dir: %w", err)
	}

	var collector *metrics.Collector
	if f.metricsAddr != "" {
		collector = metrics.NewCollector()
		go func() {
			log.Printf("racewalk: serving metrics on %s\n", f.metricsAddr)
			if err := metrics.StartServer(f.metricsAddr); err != nil {
				log.Printf("racewalk: metrics server error: %v\n", err)
			}
		}()
	}

	seedStore, err := schedule.Load(f.inScheduleFile)
	if err != nil {
		return fmt.Errorf("racewalk: load seed schedule: %w", err)
	}
	seed := racetypes.ExecutableSchedule(seedStore.Strict())

	invoker := replay.New(replay.Config{
		ReplayCommand: f.replayCommand,
		QueryCommand:  f.queryCommand,
		BaseDir:       f.inDir,
		Site:          f.site,
		OutDir:        f.outDir,
		FastForward:   f.fastForward,
	})

	engine := explorer.New(explorer.Config{
		ConflictReversalBound:         f.conflictReversalBound,
		ConflictReversalBoundOldStyle: f.conflictReversalBoundOldStyle,
		IterationBound:                f.iterationBound,
		SameStateReversalOpt:          f.sameStateReversalOpt,
		WorkDir:                       f.outDir,
	}, invoker, tracefile.New(), runid.New(), metricsAdapter(collector))

	stats, err := engine.Explore(context.Background(), seed, seedStore)
	if err != nil {
		return fmt.Errorf("racewalk: explore: %w", err)
	}

	log.Printf("racewalk: done. all_schedules=%d successful_reverses=%d successful_schedules=%d\n",
		stats.AllSchedules, stats.SuccessfulReverses, stats.SuccessfulSchedules)
	return nil
}

// metricsAdapter returns nil when collector is nil so Engine's nil-Metrics
// convention applies — a typed-nil *Collector wrapped in the interface
// would not compare equal to nil, so this must stay an explicit check.
func metricsAdapter(collector *metrics.Collector) explorer.Metrics {
	if collector == nil {
		return nil
	}
	return collector
}

func applyConfigDefaults(f *exploreFlags, fc config.Config) {
	config.ApplyStringDefault(&f.inDir, "", fc.InDir)
	config.ApplyStringDefault(&f.inScheduleFile, "", fc.InScheduleFile)
	config.ApplyStringDefault(&f.site, "", fc.Site)
	config.ApplyStringDefault(&f.replayCommand, "", fc.ReplayCommand)
	config.ApplyStringDefault(&f.queryCommand, "", fc.QueryCommand)
	config.ApplyStringDefault(&f.outDir, "out", fc.OutDir)
	config.ApplyStringDefault(&f.metricsAddr, ":9090", fc.MetricsAddr)
	config.ApplyIntDefault(&f.conflictReversalBound, 1, fc.ConflictReversalBound)
	config.ApplyIntDefault(&f.iterationBound, -1, fc.IterationBound)
	config.ApplyBoolDefault(&f.conflictReversalBoundOldStyle, fc.ConflictReversalBoundOldStyle)
	config.ApplyBoolDefault(&f.fastForward, fc.FastForward)
	config.ApplyBoolDefault(&f.sameStateReversalOpt, fc.SameStateReversalOpt)
}
