package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/cache"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/oracle"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/search"
)

// Runner encapsulates engine execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store run results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// EvaluateWithCacheInfo judges one configuration with caching and returns
// cache hit info. Cached verdicts are replay-verified before being trusted;
// the score is always recomputed against the requested table, so one cached
// entry serves every table.
func (r *Runner) EvaluateWithCacheInfo(ctx context.Context, opts Options) (*Evaluation, bool, error) {
	if err := opts.ValidateForEvaluate(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	layout := grid.FormatConfig(opts.config, opts.Rows, opts.Cols)
	key := r.Keyer.EvaluationKey(opts.Rows, opts.Cols, layout)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if ev, ok := r.decodeEvaluation(data, opts, layout); ok {
				observability.Cache().OnCacheHit(ctx, cache.KeyTypeEvaluation)
				return ev, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeEvaluation)
	}

	ev, err := evaluate(ctx, &opts)
	if err != nil {
		return nil, false, err
	}

	// Cache only budget-independent verdicts: feasible outcomes carry a
	// verified plan, and the two structural rejection codes are proofs.
	// Plain unreachable verdicts can depend on the exhaustive budget.
	if ev.decided() {
		if data, err := json.Marshal(ev); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLEvaluation); err == nil {
				observability.Cache().OnCacheSet(ctx, cache.KeyTypeEvaluation, len(data))
			}
		}
	}
	return ev, false, nil
}

// Evaluate is a convenience wrapper that calls EvaluateWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Evaluate(ctx context.Context, opts Options) (*Evaluation, error) {
	ev, _, err := r.EvaluateWithCacheInfo(ctx, opts)
	return ev, err
}

// decodeEvaluation revives a cached evaluation. The entry must match the
// requested board, and a feasible entry must replay to its own target.
func (r *Runner) decodeEvaluation(data []byte, opts Options, layout string) (*Evaluation, bool) {
	var ev Evaluation
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, false
	}
	if ev.Rows != opts.Rows || ev.Cols != opts.Cols || ev.Layout != layout {
		return nil, false
	}
	if len(ev.Config) != opts.Rows*opts.Cols {
		return nil, false
	}
	if ev.Feasible {
		if _, err := ev.Plan.Verify(ev.Rows, ev.Cols, ev.Config); err != nil {
			r.Logger.Warn("discarding cached evaluation with unsound plan", "layout", layout, "error", err)
			return nil, false
		}
	} else if !ev.decided() {
		return nil, false
	}
	// Score is table-dependent, the cached verdict is not.
	ev.Score = opts.table.Total(ev.Config)
	return &ev, true
}

// OptimizeWithCacheInfo searches a board with best-known caching and returns
// cache hit info. A cached report is served when it is proven optimal or the
// requested mode is heuristic anyway; an exact request with only a heuristic
// entry cached reruns the search. Entries are replaced only by strictly
// better scores.
func (r *Runner) OptimizeWithCacheInfo(ctx context.Context, opts Options) (*report.Report, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	table := opts.ScoreTable()
	key := r.Keyer.BestKnownKey(opts.Rows, opts.Cols, table.Key())

	// Read even on refresh: the strictly-better rule needs the incumbent.
	cached := r.readBestKnown(ctx, opts, key)
	if !opts.Refresh {
		if cached != nil && (cached.Optimal || !opts.IsExact()) {
			observability.Cache().OnCacheHit(ctx, cache.KeyTypeBestKnown)
			return cached, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeBestKnown)
	}

	rep, err := optimize(ctx, &opts)
	if err != nil {
		return nil, false, err
	}

	if cached == nil || rep.Score > cached.Score || (rep.Optimal && !cached.Optimal) {
		var buf bytes.Buffer
		if err := rep.Write(&buf); err == nil {
			if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.TTLBestKnown); err == nil {
				observability.Cache().OnCacheSet(ctx, cache.KeyTypeBestKnown, buf.Len())
			}
		}
	}
	return rep, false, nil
}

// Optimize is a convenience wrapper that calls OptimizeWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Optimize(ctx context.Context, opts Options) (*report.Report, error) {
	rep, _, err := r.OptimizeWithCacheInfo(ctx, opts)
	return rep, err
}

// readBestKnown returns the cached report for key if it decodes, matches the
// requested board and table, and replays cleanly. Anything else reads as nil
// so the entry is recomputed and overwritten.
func (r *Runner) readBestKnown(ctx context.Context, opts Options, key string) *report.Report {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil
	}
	rep, err := report.Read(bytes.NewReader(data))
	if err != nil {
		r.Logger.Warn("discarding unreadable best-known entry", "key", key, "error", err)
		return nil
	}
	table := opts.ScoreTable()
	if rep.Rows != opts.Rows || rep.Cols != opts.Cols || rep.TableKey != table.Key() {
		return nil
	}
	if err := rep.Verify(); err != nil {
		r.Logger.Warn("discarding best-known entry that fails replay", "key", key, "error", err)
		return nil
	}
	if table.Total(rep.Config) != rep.Score {
		r.Logger.Warn("discarding best-known entry with a stale score", "key", key)
		return nil
	}
	return rep
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// Evaluate judges one target configuration without caching.
func Evaluate(ctx context.Context, opts Options) (*Evaluation, error) {
	if err := opts.ValidateForEvaluate(); err != nil {
		return nil, err
	}
	return evaluate(ctx, &opts)
}

// Optimize searches a board for its best configuration without caching.
func Optimize(ctx context.Context, opts Options) (*report.Report, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return optimize(ctx, &opts)
}

// evaluate runs the oracle on validated options. Feasibility verdicts fold
// into the Evaluation; only malformed input and cancellation surface as
// errors.
func evaluate(ctx context.Context, opts *Options) (*Evaluation, error) {
	start := time.Now()

	ev := &Evaluation{
		Rows:   opts.Rows,
		Cols:   opts.Cols,
		Config: opts.config,
		Layout: grid.FormatConfig(opts.config, opts.Rows, opts.Cols),
		Score:  opts.table.Total(opts.config),
	}

	g, err := grid.FromConfig(opts.Rows, opts.Cols, opts.config)
	if err != nil {
		return nil, err
	}
	out, err := oracle.Check(ctx, g, oracle.Options{
		MaxExhaustiveCells: opts.MaxExhaustiveCells,
		Logger:             opts.Logger,
	})
	switch {
	case err == nil:
		ev.Feasible = true
		ev.Plan = out.Plan
		ev.Builder = out.Builder
	case errors.IsUnreachable(err):
		ev.Reason = errors.UserMessage(err)
		ev.Code = string(errors.GetCode(err))
	default:
		return nil, err
	}
	ev.Duration = time.Since(start)

	opts.Logger.Info("evaluated configuration",
		"layout", ev.Layout,
		"feasible", ev.Feasible,
		"score", ev.Score,
		"duration", ev.Duration)
	return ev, nil
}

// optimize runs the mode-selected optimizer on validated options.
func optimize(ctx context.Context, opts *Options) (*report.Report, error) {
	p := opts.problem()
	mode := opts.EffectiveMode()

	opts.Logger.Info("optimizing board",
		"rows", opts.Rows,
		"cols", opts.Cols,
		"table", opts.ScoreTable().Name,
		"mode", mode)

	res, err := opts.optimizer().Optimize(ctx, p)
	if err != nil {
		return nil, err
	}

	// Exact runs are seed-independent.
	seed := opts.Seed
	if mode == search.ModeExact {
		seed = 0
	}
	rep := report.New(p, mode, seed, res)
	opts.Logger.Info("optimization finished",
		"score", rep.Score,
		"optimal", rep.Optimal,
		"trials", rep.Trials,
		"duration", rep.Duration)
	return rep, nil
}

// decided reports whether the verdict holds for every oracle budget.
// Undecided give-ups are the only budget-dependent outcome; everything
// else is a plan or a proof.
func (ev *Evaluation) decided() bool {
	if ev.Feasible {
		return true
	}
	switch errors.Code(ev.Code) {
	case errors.ErrCodeUnreachable, errors.ErrCodeStructurallyUnreachable, errors.ErrCodeCyclicDependency:
		return true
	}
	return false
}
