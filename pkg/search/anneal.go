package search

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
)

const (
	// DefaultRestarts is the number of independent annealing runs.
	DefaultRestarts = 4
	// DefaultAnnealTrials is the total proposal budget across restarts.
	DefaultAnnealTrials = 4096

	coolingRate    = 0.995
	minTemperature = 1e-3

	// clusterMoveBias is the chance a proposal re-tiers one neighbor
	// along with the chosen cell, letting a tower and its support move
	// together.
	clusterMoveBias = 0.3
)

// Annealer is simulated annealing over target configurations with
// independent parallel restarts.
//
// Proposals re-tier one random cell, sometimes together with a neighbor.
// Structurally impossible candidates are rejected outright; the rest are
// settled by the feasibility oracle, so the walk only ever stands on
// buildable configurations. Improving and equal moves are always accepted,
// worsening ones with probability exp(delta/T) under geometric cooling.
//
// Restart r seeds its generator with Seed+r and runs a fixed trial quota.
// With no timeout, a given Seed reproduces the same configuration, score
// and plan no matter how many workers execute the restarts.
type Annealer struct {
	// Seed fixes the random walk.
	Seed int64

	// Restarts is the number of independent runs. Restart 0 starts from
	// the all-Blue floor, later ones from a random feasible
	// configuration. Non-positive means DefaultRestarts.
	Restarts int

	// Workers bounds how many restarts run concurrently. Non-positive
	// means GOMAXPROCS, capped at Restarts.
	Workers int

	// MaxTrials is the total proposal budget across all restarts.
	// Non-positive returns the floor untouched.
	MaxTrials int

	// Timeout bounds the run. Zero means no limit. On expiry each restart
	// stops at its next trial boundary and the best configuration found
	// so far is returned.
	Timeout time.Duration
}

func (a Annealer) Optimize(ctx context.Context, p Problem) (*Result, error) {
	if err := p.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := floorResult(p)
	if a.MaxTrials <= 0 {
		res.BudgetUsed = time.Since(start)
		observability.Search().OnComplete(ctx, "annealer", 0, res.Score, false, res.BudgetUsed)
		return res, nil
	}
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	restarts := a.Restarts
	if restarts <= 0 {
		restarts = DefaultRestarts
	}
	if restarts > a.MaxTrials {
		restarts = a.MaxTrials
	}
	workers := a.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > restarts {
		workers = restarts
	}

	b := newBoard(p.Rows, p.Cols)
	shared := &incumbent{score: res.Score}
	runs := make([]*Result, restarts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for r := 0; r < restarts; r++ {
		quota := a.MaxTrials / restarts
		if r < a.MaxTrials%restarts {
			quota++
		}
		g.Go(func() error {
			runs[r] = a.anneal(gctx, p, b, r, quota, shared)
			return nil
		})
	}
	_ = g.Wait() // restarts report through runs, never through errors

	total := 0
	for _, run := range runs {
		if run == nil {
			continue
		}
		total += run.Trials
		if run.Score > res.Score {
			res = run
		}
	}
	res.Trials = total
	res.Improvements = shared.improvements
	res.BudgetUsed = time.Since(start)
	observability.Search().OnComplete(ctx, "annealer", total, res.Score, false, res.BudgetUsed)
	p.Logger.Info("annealing finished",
		"score", res.Score, "trials", total, "restarts", restarts)
	return res, nil
}

// anneal runs one restart on its own generator and trial quota, so the
// trajectory depends only on (Seed, r, quota).
func (a Annealer) anneal(ctx context.Context, p Problem, b *board, r, quota int, shared *incumbent) *Result {
	rng := rand.New(rand.NewSource(a.Seed + int64(r)))
	hooks := observability.Search()

	cur := floorResult(p)
	trials := 0

	// Later restarts diversify from a random structural configuration
	// when the oracle accepts it.
	if r > 0 && ctx.Err() == nil {
		cand := make([]grid.Tier, p.Cells())
		for i := range cand {
			cand[i] = grid.Blue + grid.Tier(rng.Intn(int(b.maxTier[i]-grid.Blue)+1))
		}
		trials++
		if out, err := checkConfig(ctx, p, cand); err == nil {
			cur = &Result{Config: cand, Score: p.Table.Total(cand), Plan: out.Plan}
			hooks.OnTrial(ctx, "annealer", trials, cur.Score, true)
		} else {
			hooks.OnTrial(ctx, "annealer", trials, 0, false)
		}
	}

	best := &Result{Config: cloneConfig(cur.Config), Score: cur.Score, Plan: cur.Plan.Clone()}
	if shared.improve(best.Score) {
		hooks.OnImprove(ctx, "annealer", trials, best.Score)
	}

	temp := initialTemperature(p.Table)
	for trials < quota {
		if ctx.Err() != nil {
			break
		}
		trials++
		cand, touched := proposeMove(rng, b, cur.Config)
		candScore := p.Table.Total(cand)

		blocked := false
		for _, i := range touched {
			if b.yellowBlocked(cand, i, len(cand)) {
				blocked = true
				break
			}
		}
		if blocked {
			hooks.OnTrial(ctx, "annealer", trials, candScore, false)
			temp = cool(temp)
			continue
		}

		out, err := checkConfig(ctx, p, cand)
		feasible := err == nil
		hooks.OnTrial(ctx, "annealer", trials, candScore, feasible)
		if feasible {
			delta := candScore - cur.Score
			if delta > 0 || rng.Float64() < math.Exp(float64(delta)/temp) {
				cur = &Result{Config: cand, Score: candScore, Plan: out.Plan}
			}
			if candScore > best.Score {
				best = &Result{Config: cloneConfig(cand), Score: candScore, Plan: out.Plan.Clone()}
				if shared.improve(candScore) {
					hooks.OnImprove(ctx, "annealer", trials, candScore)
				}
			}
		}
		temp = cool(temp)
	}
	best.Trials = trials
	return best
}

// proposeMove returns a copy of cfg with one random cell re-tiered, and
// sometimes one of its neighbors too. It reports the touched cells.
func proposeMove(rng *rand.Rand, b *board, cfg []grid.Tier) ([]grid.Tier, []int) {
	out := cloneConfig(cfg)
	i := rng.Intn(len(out))
	out[i] = retier(rng, b.maxTier[i], out[i])
	touched := []int{i}
	if rng.Float64() < clusterMoveBias && len(b.neighbors[i]) > 0 {
		j := b.neighbors[i][rng.Intn(len(b.neighbors[i]))]
		out[j] = retier(rng, b.maxTier[j], out[j])
		touched = append(touched, j)
	}
	return out, touched
}

// retier picks a uniform random tier in [Blue, max], different from cur
// whenever the range allows it.
func retier(rng *rand.Rand, max, cur grid.Tier) grid.Tier {
	span := int(max-grid.Blue) + 1
	if span <= 1 {
		return grid.Blue
	}
	t := grid.Blue + grid.Tier(rng.Intn(span-1))
	if t >= cur {
		t++
	}
	return t
}

// initialTemperature scales the Metropolis criterion to the table: at the
// largest per-tier point value, an early worsening move of typical size
// keeps an acceptance chance around 1/e.
func initialTemperature(t score.Table) float64 {
	max := 1
	for _, tier := range []grid.Tier{grid.Blue, grid.Red, grid.Green, grid.Yellow} {
		if s := t.Score(tier); s > max {
			max = s
		}
	}
	return float64(max)
}

func cool(t float64) float64 {
	t *= coolingRate
	if t < minTemperature {
		return minTemperature
	}
	return t
}

// incumbent is the cross-restart best score. Replacement is strictly
// greater, so equal-scoring results never churn.
type incumbent struct {
	mu           sync.Mutex
	score        int
	improvements int
}

// improve claims s as the new shared best and reports whether it won.
func (in *incumbent) improve(s int) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if s <= in.score {
		return false
	}
	in.score = s
	in.improvements++
	return true
}
