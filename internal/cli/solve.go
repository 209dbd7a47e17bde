package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
)

// solveCommand creates the solve command for layout optimization.
func (c *CLI) solveCommand() *cobra.Command {
	var (
		opts      engine.Options
		timeout   time.Duration
		noCache   bool
		noArchive bool
		output    string
	)

	cmd := &cobra.Command{
		Use:   "solve ROWSxCOLS",
		Short: "Search for the best buildable layout on a board",
		Long: `Search for the buildable layout with the highest score on the given board.

Small boards are solved exactly with branch and bound and the result is
proven optimal. Larger boards fall back to simulated annealing (or the
dedicated yellow climber for yellow-only tables) and report the best
layout found within the trial budget.

Results are cached locally and archived for later lookup.`,
		Example: `  towerblocks solve 3x3
  towerblocks solve 5x5 --table yellowonly --trials 50000
  towerblocks solve 2x3 --mode exact -o run.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, cols, err := parseDims(args[0])
			if err != nil {
				return err
			}
			opts.Rows, opts.Cols = rows, cols
			opts.Timeout = timeout
			c.applyConfigDefaults(cmd, &opts)
			return c.runSolve(cmd.Context(), opts, noCache, noArchive, output)
		},
	}

	cmd.Flags().StringVarP(&opts.Table, "table", "t", engine.DefaultTable, "score table: variant name or TOML file")
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", engine.DefaultMode, "search mode: auto, exact, heuristic")
	cmd.Flags().Int64Var(&opts.Seed, "seed", engine.DefaultSeed, "random seed for heuristic search")
	cmd.Flags().IntVar(&opts.MaxTrials, "trials", 0, "annealing trial budget (0 = default)")
	cmd.Flags().IntVar(&opts.Restarts, "restarts", 0, "parallel annealing restarts (0 = default)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent restart workers (0 = all cores)")
	cmd.Flags().IntVar(&opts.MaxNodes, "nodes", 0, "yellow climber node budget (0 = default)")
	cmd.Flags().IntVar(&opts.ExactCells, "exact-cells", 0, "max cells solved exactly in auto mode (0 = default)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort search after this duration (0 = no limit)")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "do not record the run in the archive")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the full run report to a JSON file")

	return cmd
}

// applyConfigDefaults fills table, mode and seed from the config file for
// flags the user did not set explicitly.
func (c *CLI) applyConfigDefaults(cmd *cobra.Command, opts *engine.Options) {
	if !cmd.Flags().Changed("table") && c.Config.Defaults.Table != "" {
		opts.Table = c.Config.Defaults.Table
	}
	if !cmd.Flags().Changed("mode") && c.Config.Defaults.Mode != "" {
		opts.Mode = c.Config.Defaults.Mode
	}
	if !cmd.Flags().Changed("seed") && c.Config.Defaults.Seed != 0 {
		opts.Seed = c.Config.Defaults.Seed
	}
}

// runSolve executes the search and presents the result.
func (c *CLI) runSolve(ctx context.Context, opts engine.Options, noCache, noArchive bool, output string) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	observability.SetSearchHooks(newSearchProgress(c.Logger))
	defer observability.Reset()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Searching %dx%d board...", opts.Rows, opts.Cols))
	spinner.Start()

	rep, cacheHit, err := runner.OptimizeWithCacheInfo(ctx, opts)
	if err != nil {
		spinner.StopWithError("Search failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	verdict := "best known"
	if rep.Optimal {
		verdict = "proven optimal"
	}
	printSuccess("Score %d (%s)", rep.Score, verdict)
	printBoard(rep.Config, rep.Rows, rep.Cols)
	printRunStats(rep.Trials, rep.Improvements, rep.Duration, cacheHit)

	if output != "" {
		if err := rep.WriteFile(output); err != nil {
			return fmt.Errorf("write report %s: %w", output, err)
		}
		printFile(output)
	}

	if !noArchive {
		c.archiveRun(ctx, rep)
	}

	printNewline()
	printNextStep("Replay the build", fmt.Sprintf("%s replay %s", appName, rep.Layout))

	return nil
}

// archiveRun records the report in the configured archive. Failures are
// reported as warnings; the solve result is already on screen.
func (c *CLI) archiveRun(ctx context.Context, rep *report.Report) {
	store, err := c.newStore(ctx)
	if err != nil {
		printWarning("Archive unavailable: %v", err)
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	if err := store.Put(ctx, rep); err != nil {
		printWarning("Archive write failed: %v", err)
		return
	}
	id := rep.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	printDetail("Archived as run %s", id)
}
