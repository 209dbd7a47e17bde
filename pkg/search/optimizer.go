// Package search finds high-scoring target configurations that can actually
// be built.
//
// A search problem is a board size plus a score table; optimizers propose
// configurations and consult the feasibility oracle before accepting them,
// so every result carries a replayable build plan. Four strategies are
// provided:
//
//   - [Exact]: branch and bound over all configurations, proves optimality
//     on small boards.
//   - [Annealer]: simulated annealing with parallel restarts, any board
//     size, reproducible under a fixed seed.
//   - [YellowClimber]: specialized maximizer for yellow-only tables.
//   - [Trivial]: the all-Blue floor, mostly useful as a baseline.
//
// All optimizers are anytime: cancellation or an expired budget returns the
// best feasible result found so far, never an error and never an unbuildable
// configuration.
package search

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/oracle"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
)

// Mode selects a search strategy by name.
type Mode string

const (
	// ModeAuto picks exact or heuristic search based on board size.
	ModeAuto Mode = "auto"
	// ModeExact forces exhaustive branch and bound.
	ModeExact Mode = "exact"
	// ModeHeuristic forces the stochastic or specialized optimizers.
	ModeHeuristic Mode = "heuristic"
)

// DefaultExactCellLimit is the largest board, in cells, that auto mode
// hands to the exact optimizer. It matches the oracle's exhaustive decision
// limit so exact verdicts rest on proven feasibility answers.
const DefaultExactCellLimit = 12

// ParseMode converts a user-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeExact, ModeHeuristic:
		return m, nil
	case "":
		return ModeAuto, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidMode,
			"unknown search mode %q, want auto, exact or heuristic", s)
	}
}

// Resolve maps auto to a concrete mode for a board of the given cell count.
// Exact and heuristic pass through unchanged; a non-positive limit falls
// back to DefaultExactCellLimit.
func (m Mode) Resolve(cells, exactCellLimit int) Mode {
	if m != ModeAuto {
		return m
	}
	if exactCellLimit <= 0 {
		exactCellLimit = DefaultExactCellLimit
	}
	if cells <= exactCellLimit {
		return ModeExact
	}
	return ModeHeuristic
}

// Problem is one optimization task: maximize the score table's total over
// all buildable configurations of a rows x cols board.
type Problem struct {
	Rows int
	Cols int

	// Table assigns points per tier and is being maximized.
	Table score.Table

	// Oracle configures the feasibility checks backing every candidate
	// evaluation. The zero value uses the oracle defaults.
	Oracle oracle.Options

	// Logger receives progress output. Nil discards.
	Logger *log.Logger
}

// ValidateAndSetDefaults checks the problem and fills in defaults. It is
// safe to call more than once.
func (p *Problem) ValidateAndSetDefaults() error {
	if p.Rows < 1 || p.Cols < 1 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"board must be at least 1x1, got %dx%d", p.Rows, p.Cols)
	}
	if err := p.Table.Validate(); err != nil {
		return err
	}
	if p.Logger == nil {
		p.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// Cells returns the board's cell count.
func (p Problem) Cells() int { return p.Rows * p.Cols }

// Result is the outcome of one optimization run. Config is always feasible
// and Plan is a verified build order for it.
type Result struct {
	// Config is the best configuration found, row-major.
	Config []grid.Tier

	// Score is Config's total under the problem's table.
	Score int

	// Plan builds Config from an empty board.
	Plan grid.Plan

	// Optimal is true only when the search exhausted the configuration
	// space with proof-grade feasibility answers. A false value means
	// best known, not best possible.
	Optimal bool

	// Trials counts candidate configurations evaluated.
	Trials int

	// Improvements counts incumbent replacements after the initial floor.
	Improvements int

	// BudgetUsed is the wall time the run consumed.
	BudgetUsed time.Duration
}

// Optimizer searches for the highest-scoring buildable configuration.
//
// Implementations never return an infeasible result: cancellation and
// budget exhaustion surface as a valid Result with Optimal false.
type Optimizer interface {
	Optimize(ctx context.Context, p Problem) (*Result, error)
}

// floorResult returns the all-Blue configuration with its row-major build
// plan. Blue placements have no support requirement, so the floor is
// feasible on every board and seeds each optimizer's incumbent.
func floorResult(p Problem) *Result {
	cells := p.Cells()
	cfg := make([]grid.Tier, cells)
	plan := make(grid.Plan, cells)
	for i := range cfg {
		cfg[i] = grid.Blue
		plan[i] = grid.Move{Row: i / p.Cols, Col: i % p.Cols, Tier: grid.Blue}
	}
	return &Result{Config: cfg, Score: p.Table.Total(cfg), Plan: plan}
}

// cloneConfig copies a configuration buffer that an optimizer will keep
// mutating.
func cloneConfig(cfg []grid.Tier) []grid.Tier {
	out := make([]grid.Tier, len(cfg))
	copy(out, cfg)
	return out
}

// checkConfig settles one candidate configuration with the oracle.
func checkConfig(ctx context.Context, p Problem, cfg []grid.Tier) (*oracle.Outcome, error) {
	g, err := grid.FromConfig(p.Rows, p.Cols, cfg)
	if err != nil {
		return nil, err
	}
	return oracle.Check(ctx, g, p.Oracle)
}
