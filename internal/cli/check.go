package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine"
)

// checkCommand creates the check command for layout feasibility.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		opts     engine.Options
		showPlan bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "check LAYOUT",
		Short: "Decide whether a layout is buildable",
		Long: `Decide whether the given layout can be built from an empty board.

LAYOUT uses one letter per cell (B, R, G, Y, or . for empty) with rows
separated by slashes, for example BYB/BBB. Board dimensions are inferred
from the layout.

A buildable layout comes with a complete build plan; an unbuildable one
comes with the reason, either a cell whose position cannot support its
tier or a circular support dependency.`,
		Example: `  towerblocks check BYB/BBB
  towerblocks check BYB/YBY/BYB --plan
  towerblocks check RGR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Layout = args[0]
			if !cmd.Flags().Changed("table") && c.Config.Defaults.Table != "" {
				opts.Table = c.Config.Defaults.Table
			}
			return c.runCheck(cmd.Context(), opts, showPlan, noCache)
		},
	}

	cmd.Flags().StringVarP(&opts.Table, "table", "t", engine.DefaultTable, "score table: variant name or TOML file")
	cmd.Flags().BoolVar(&showPlan, "plan", false, "print the full build plan")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}

// runCheck evaluates the layout and presents the verdict.
func (c *CLI) runCheck(ctx context.Context, opts engine.Options, showPlan, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	ev, cacheHit, err := runner.EvaluateWithCacheInfo(ctx, opts)
	if err != nil {
		return err
	}

	printBoard(ev.Config, ev.Rows, ev.Cols)
	if !ev.Feasible {
		printError("Not buildable: %s", ev.Reason)
		printRunStats(0, 0, ev.Duration, cacheHit)
		return nil
	}

	printSuccess("Buildable in %d moves, score %d", len(ev.Plan), ev.Score)
	printDetail("settled by %s", ev.Builder)
	printRunStats(0, 0, ev.Duration, cacheHit)

	if showPlan {
		printNewline()
		for i, m := range ev.Plan {
			printDetail("%3d. %s", i+1, m)
		}
	} else {
		printNewline()
		printNextStep("Watch the build", fmt.Sprintf("%s replay %s", appName, ev.Layout))
	}

	return nil
}
