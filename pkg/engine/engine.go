// Package engine provides the evaluate and optimize entry points for
// TowerBlocks.
//
// This package ties the feasibility oracle, the score tables, and the
// search optimizers together behind two operations that CLI, API, and
// worker components share. By centralizing this logic, we ensure consistent
// behavior across all entry points and avoid code duplication.
//
// # Architecture
//
// The engine exposes two operations:
//
//  1. Evaluate: decide whether one target configuration is buildable and,
//     if so, return its score and a verified build plan
//  2. Optimize: search for the highest-scoring buildable configuration on
//     a board and return a full report
//
// Both are available as plain functions and, with caching, through a
// Runner.
//
// # Usage
//
// Create a Runner and optimize a board:
//
//	runner := engine.NewRunner(cache, nil, logger)
//	opts := engine.Options{
//	    Rows:  5,
//	    Cols:  5,
//	    Table: "towerbloxx",
//	    Mode:  "auto",
//	}
//	rep, err := runner.Optimize(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rep.Summary())
//
// Evaluate a single layout:
//
//	opts := engine.Options{Rows: 3, Cols: 3, Layout: "BYB/YBY/BYB"}
//	ev, err := engine.Evaluate(ctx, opts)
package engine

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/oracle"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/search"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Worker
// =============================================================================

const (
	// DefaultTable is the score table used when none is named.
	DefaultTable = "towerbloxx"

	// DefaultMode lets the board size pick between exact and heuristic
	// search.
	DefaultMode = string(search.ModeAuto)

	// DefaultSeed is the random seed applied when Options.Seed is zero.
	// A literal seed of zero cannot be requested; any other value,
	// negative included, is honored as given. Reports echo the seed that
	// actually ran.
	DefaultSeed = int64(42)

	// DefaultMaxTrials is the annealer trial budget.
	DefaultMaxTrials = search.DefaultAnnealTrials

	// DefaultMaxNodes is the yellow climber node budget.
	DefaultMaxNodes = search.DefaultClimbNodes

	// DefaultExactCells is the auto-mode threshold: boards up to this many
	// cells are solved exactly.
	DefaultExactCells = search.DefaultExactCellLimit
)

// ValidModes is the set of supported search modes.
var ValidModes = map[string]bool{
	string(search.ModeAuto):      true,
	string(search.ModeExact):     true,
	string(search.ModeHeuristic): true,
}

// =============================================================================
// Options - Engine Configuration
// =============================================================================

// Options contains all configuration for the engine.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Board options
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Layout string `json:"layout,omitempty"` // target configuration, Evaluate only

	// Score options
	Table string `json:"table,omitempty"` // variant name or path to a TOML file

	// Search options
	Mode       string `json:"mode,omitempty"`
	Seed       int64  `json:"seed,omitempty"` // zero selects DefaultSeed; see its doc
	MaxTrials  int    `json:"max_trials,omitempty"`
	Restarts   int    `json:"restarts,omitempty"`
	Workers    int    `json:"workers,omitempty"`
	MaxNodes   int    `json:"max_nodes,omitempty"`   // yellow climber budget
	ExactCells int    `json:"exact_cells,omitempty"` // auto-mode exact threshold
	Refresh    bool   `json:"refresh,omitempty"`

	// Oracle options
	MaxExhaustiveCells int `json:"max_exhaustive_cells,omitempty"`

	// Runtime options (not serialized)
	Timeout time.Duration `json:"-"`
	Logger  *log.Logger   `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`

	// table is the resolved score table, filled in during validation.
	table score.Table `json:"-"`

	// config is the parsed Layout, filled in by ValidateForEvaluate.
	config []grid.Tier `json:"-"`
}

// Evaluation is the outcome of judging one target configuration.
type Evaluation struct {
	// Rows and Cols echo the board dimensions.
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// Config is the evaluated target configuration in row-major order.
	Config []grid.Tier `json:"config"`

	// Layout is Config rendered as tier letters with / between rows.
	Layout string `json:"layout"`

	// Feasible reports whether some legal build reaches the target.
	Feasible bool `json:"feasible"`

	// Reason explains a rejection. Empty when feasible.
	Reason string `json:"reason,omitempty"`

	// Code is the rejection's machine-readable error code.
	Code string `json:"code,omitempty"`

	// Score is the configuration's value under the evaluation table.
	Score int `json:"score"`

	// Plan is a verified build reaching the target. Empty when infeasible.
	Plan grid.Plan `json:"plan,omitempty"`

	// Builder names the oracle stage that produced the plan.
	Builder string `json:"builder,omitempty"`

	// Duration is the wall-clock evaluation time.
	Duration time.Duration `json:"duration_ns"`
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateMode checks that a search mode is valid.
func ValidateMode(mode string) error {
	_, err := search.ParseMode(mode)
	return err
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for
// both operations. This method is idempotent - calling it multiple times
// has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBoard(); err != nil {
		return err
	}
	if err := o.ValidateForSearch(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForBoard checks board dimensions and resolves the score table.
func (o *Options) ValidateForBoard() error {
	if o.Rows < 1 || o.Cols < 1 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"board dimensions must be positive, got %dx%d", o.Rows, o.Cols)
	}

	if o.Table == "" {
		o.Table = DefaultTable
	}
	t, err := score.Resolve(o.Table)
	if err != nil {
		return err
	}
	o.table = t

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForEvaluate parses the layout and checks it against the board.
// Dimensions left at zero are inferred from the layout.
func (o *Options) ValidateForEvaluate() error {
	if strings.TrimSpace(o.Layout) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "layout is required")
	}
	cfg, rows, cols, err := grid.ParseConfig(o.Layout)
	if err != nil {
		return err
	}
	if o.Rows == 0 && o.Cols == 0 {
		o.Rows, o.Cols = rows, cols
	}
	if o.Rows != rows || o.Cols != cols {
		return errors.New(errors.ErrCodeInvalidConfig,
			"layout is %dx%d but options say %dx%d", rows, cols, o.Rows, o.Cols)
	}
	o.config = cfg
	return o.ValidateForBoard()
}

// ValidateForSearch checks the mode and applies search budget defaults.
func (o *Options) ValidateForSearch() error {
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if err := ValidateMode(o.Mode); err != nil {
		return err
	}

	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.MaxTrials == 0 {
		o.MaxTrials = DefaultMaxTrials
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.ExactCells == 0 {
		o.ExactCells = DefaultExactCells
	}
	return nil
}

// ScoreTable returns the resolved score table. Valid after a successful
// ValidateForBoard or ValidateAndSetDefaults.
func (o *Options) ScoreTable() score.Table {
	return o.table
}

// Cells returns the number of board cells.
func (o *Options) Cells() int {
	return o.Rows * o.Cols
}

// EffectiveMode resolves auto against the board size.
func (o *Options) EffectiveMode() search.Mode {
	return search.Mode(o.Mode).Resolve(o.Cells(), o.ExactCells)
}

// IsExact returns true if the resolved mode solves to proven optimality.
func (o *Options) IsExact() bool {
	return o.EffectiveMode() == search.ModeExact
}

// problem assembles the search problem the options describe.
func (o *Options) problem() search.Problem {
	return search.Problem{
		Rows:  o.Rows,
		Cols:  o.Cols,
		Table: o.table,
		Oracle: oracle.Options{
			MaxExhaustiveCells: o.MaxExhaustiveCells,
			Logger:             o.Logger,
		},
		Logger: o.Logger,
	}
}

// optimizer builds the optimizer for the resolved mode. Yellow-only tables
// route heuristic search to the dedicated climber.
func (o *Options) optimizer() search.Optimizer {
	if o.IsExact() {
		return &search.Exact{Timeout: o.Timeout}
	}
	if o.table.IsYellowOnly() {
		return &search.YellowClimber{
			MaxNodes: o.MaxNodes,
			Timeout:  o.Timeout,
		}
	}
	return &search.Annealer{
		Seed:      o.Seed,
		Restarts:  o.Restarts,
		Workers:   o.Workers,
		MaxTrials: o.MaxTrials,
		Timeout:   o.Timeout,
	}
}
