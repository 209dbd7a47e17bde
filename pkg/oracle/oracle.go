// Package oracle decides whether a target configuration can be built under
// the placement rules and constructs a verified build plan when it can.
//
// # Pipeline
//
// Check runs a fixed pipeline, cheapest stage first:
//
//  1. Structural check: each cell's target tier must be supportable by its
//     usable degree, counting only neighbors that will ever hold a tower.
//  2. Finalization-order analysis: greedy peeling over "can this cell's last
//     move come last" candidates. A stuck peel proves no build order exists.
//  3. Wave builder: Blue floor, then finalize cells hardest first with
//     transient scaffolding on not-yet-finalized neighbors.
//  4. Reverse peeler: reduce the target back to the Blue floor through
//     safe reductions and guaranteed-undoable promotions.
//  5. Exhaustive breadth-first search over packed states, for boards small
//     enough to enumerate completely.
//
// Stages 1, 2 and 5 reject with a proof; the builders in between are
// constructive shortcuts that handle virtually all feasible targets without
// touching the exponential stage. Every plan is replay-verified before it is
// returned, so an accept is always sound. Rejections carry
// errors.ErrCodeStructurallyUnreachable, errors.ErrCodeCyclicDependency or
// errors.ErrCodeUnreachable; only proven cases claim a proof in the message.
package oracle

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

const (
	// DefaultMaxExhaustiveCells is the largest live-cell count for which the
	// exhaustive fallback runs. 4^12 packed states enumerate in well under a
	// second.
	DefaultMaxExhaustiveCells = 12

	// DefaultExhaustiveStateCap bounds the states the fallback may visit.
	// The default covers the full 12-cell space.
	DefaultExhaustiveStateCap = 1 << 24
)

// Builder names reported in Outcome.Builder.
const (
	BuilderWaves       = "waves"
	BuilderReversePeel = "reverse-peel"
	BuilderExhaustive  = "exhaustive"
)

// Options configures Check. The zero value is ready to use.
type Options struct {
	// MaxExhaustiveCells gates the exhaustive fallback: boards with more
	// live cells rely on the constructive builders alone. Clamped to 13,
	// past which the packed state space stops being enumerable.
	MaxExhaustiveCells int

	// ExhaustiveStateCap is a safety valve on states visited by the
	// exhaustive fallback. Ending on the cap is never reported as a proof.
	ExhaustiveStateCap int

	// Logger receives stage-by-stage debug output. Nil discards.
	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults applies defaults. Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.MaxExhaustiveCells == 0 {
		o.MaxExhaustiveCells = DefaultMaxExhaustiveCells
	}
	if o.MaxExhaustiveCells < 0 {
		o.MaxExhaustiveCells = 0
	}
	if o.MaxExhaustiveCells > hardExhaustiveCellLimit {
		o.MaxExhaustiveCells = hardExhaustiveCellLimit
	}
	if o.ExhaustiveStateCap <= 0 {
		o.ExhaustiveStateCap = DefaultExhaustiveStateCap
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Stats counts the work a Check call did.
type Stats struct {
	LiveCells      int
	StatesExplored int
	AnalysisTime   time.Duration
	BuildTime      time.Duration
}

// Outcome is a successful feasibility verdict: a replay-verified build plan
// for the target, tagged with the pipeline stage that produced it.
type Outcome struct {
	Plan    grid.Plan
	Builder string
	Stats   Stats
}

// Check decides reachability of the target configuration and returns a
// build plan on success. The same target always yields the same plan.
// Rejections carry a code that separates proofs (UNREACHABLE and its
// refinements) from budget give-ups (UNDECIDED). Context cancellation is
// honored between stages and inside the exhaustive fallback.
func Check(ctx context.Context, target *grid.Grid, opts Options) (*Outcome, error) {
	if target == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "nil target configuration")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	if err := ValidateStructure(target); err != nil {
		return nil, err
	}

	analysisStart := time.Now()
	an, err := Analyze(target)
	if err != nil {
		return nil, err
	}
	stats := Stats{LiveCells: an.LiveCount, AnalysisTime: time.Since(analysisStart)}
	logger.Debug("build order exists", "live", an.LiveCount, "took", stats.AnalysisTime)

	buildStart := time.Now()
	if plan, ok := buildTrajectory(target, an); ok && replayVerified(logger, target, plan, BuilderWaves) {
		stats.BuildTime = time.Since(buildStart)
		return &Outcome{Plan: plan, Builder: BuilderWaves, Stats: stats}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("wave builder could not realize the order, reverse peeling")
	if plan, ok := buildReversePeel(target, an); ok && replayVerified(logger, target, plan, BuilderReversePeel) {
		stats.BuildTime = time.Since(buildStart)
		return &Outcome{Plan: plan, Builder: BuilderReversePeel, Stats: stats}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if an.LiveCount <= opts.MaxExhaustiveCells {
		logger.Debug("enumerating reachable states", "live", an.LiveCount, "cap", opts.ExhaustiveStateCap)
		res := exhaustiveSearch(ctx, target, an, opts.ExhaustiveStateCap)
		stats.StatesExplored = res.states
		stats.BuildTime = time.Since(buildStart)
		if res.found && replayVerified(logger, target, res.plan, BuilderExhaustive) {
			return &Outcome{Plan: res.plan, Builder: BuilderExhaustive, Stats: stats}, nil
		}
		if res.exhausted && !res.found {
			return nil, errors.New(errors.ErrCodeUnreachable,
				"no build order reaches the target: all %d reachable states enumerated", res.states)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New(errors.ErrCodeUndecided,
			"constructive strategies exhausted after %d states; not proven unreachable", res.states)
	}
	return nil, errors.New(errors.ErrCodeUndecided,
		"constructive strategies exhausted; board exceeds the %d-cell exhaustive decision limit",
		opts.MaxExhaustiveCells)
}

// replayVerified confirms a builder's plan replays to the target. A failure
// here is an internal builder defect; it is logged and the pipeline moves on
// so that acceptance stays sound.
func replayVerified(logger *log.Logger, target *grid.Grid, plan grid.Plan, builder string) bool {
	if _, err := plan.Verify(target.Rows(), target.Cols(), target.Config()); err != nil {
		logger.Warn("discarding unsound plan", "builder", builder, "error", err)
		return false
	}
	return true
}
