package search

import (
	"context"
	"sort"
	"time"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
)

// Exact enumerates configurations by branch and bound and proves the best
// one optimal.
//
// Cells are assigned in row-major order, highest-scoring tier first.
// Three prunes keep the tree small: the per-cell degree ceiling, the
// Yellow adjacency cuts, and an optimistic completion bound against the
// incumbent. Complete assignments are settled by the feasibility oracle.
//
// The verdict is proof-grade only when the oracle can decide every
// candidate exhaustively, which holds up to the oracle's exhaustive cell
// limit. On larger boards Exact still runs but reports best known.
type Exact struct {
	// Timeout bounds the run. Zero means no limit. On expiry the
	// incumbent is returned with Optimal false.
	Timeout time.Duration

	// Progress, when set, is called every progressInterval evaluated
	// candidates with the candidate count, the number of pruned branches
	// and the incumbent score.
	Progress func(explored, pruned, best int)

	// Debug, when set, receives a line per incumbent replacement.
	Debug func(format string, args ...any)
}

// progressInterval is the number of evaluated candidates between Progress
// calls.
const progressInterval = 256

func (e Exact) Optimize(ctx context.Context, p Problem) (*Result, error) {
	if err := p.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	n := p.Cells()
	b := newBoard(p.Rows, p.Cols)

	// bound[i] is the best score cells i.. can still contribute, from the
	// per-degree ceilings of the table.
	bound := make([]int, n+1)
	for i := n - 1; i >= 0; i-- {
		bound[i] = bound[i+1] + p.Table.MaxTier(b.degree[i])
	}

	// Rejections are only proofs while the oracle can enumerate the full
	// state space; past that limit they may merely mean the constructive
	// builders gave up.
	eff := p.Oracle
	if err := eff.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	decisive := n <= eff.MaxExhaustiveCells
	if !decisive {
		p.Logger.Warn("board exceeds the exhaustive decision limit, reporting best known only",
			"cells", n, "limit", eff.MaxExhaustiveCells)
	}

	s := &exactSearch{
		p:        p,
		b:        b,
		bound:    bound,
		order:    tierOrder(p.Table),
		best:     floorResult(p),
		debug:    e.Debug,
		progress: e.Progress,
	}
	complete := s.descend(ctx, 0, 0, make([]grid.Tier, n))

	s.best.Optimal = complete && decisive
	s.best.Trials = s.explored
	s.best.Improvements = s.improved
	s.best.BudgetUsed = time.Since(start)
	observability.Search().OnComplete(ctx, "exact", s.explored, s.best.Score, s.best.Optimal, s.best.BudgetUsed)
	p.Logger.Info("exact search finished",
		"score", s.best.Score, "optimal", s.best.Optimal,
		"candidates", s.explored, "pruned", s.pruned)
	return s.best, nil
}

// tierOrder returns the non-Empty tiers sorted by table score, best first.
// Ties go to the lower tier, which needs fewer supports.
func tierOrder(t score.Table) []grid.Tier {
	order := []grid.Tier{grid.Blue, grid.Red, grid.Green, grid.Yellow}
	sort.SliceStable(order, func(a, b int) bool {
		return t.Score(order[a]) > t.Score(order[b])
	})
	return order
}

type exactSearch struct {
	p        Problem
	b        *board
	bound    []int
	order    []grid.Tier
	best     *Result
	explored int
	pruned   int
	improved int
	debug    func(string, ...any)
	progress func(int, int, int)
}

// descend assigns cells from index i on, with acc the score of the
// assigned prefix. It returns false when cancellation cut the walk short.
func (s *exactSearch) descend(ctx context.Context, i, acc int, cfg []grid.Tier) bool {
	if i == len(cfg) {
		return s.leaf(ctx, acc, cfg)
	}
	for _, t := range s.order {
		if t > s.b.maxTier[i] {
			s.pruned++
			continue
		}
		cfg[i] = t
		if t == grid.Yellow && s.b.yellowBlocked(cfg, i, i+1) {
			s.pruned++
			continue
		}
		next := acc + s.p.Table.Score(t)
		if next+s.bound[i+1] <= s.best.Score {
			// Tiers later in the order score no better, so the whole
			// remainder is dominated.
			s.pruned++
			return true
		}
		if !s.descend(ctx, i+1, next, cfg) {
			return false
		}
	}
	return true
}

// leaf settles one complete configuration. The context is consulted only
// here, between candidates.
func (s *exactSearch) leaf(ctx context.Context, acc int, cfg []grid.Tier) bool {
	if ctx.Err() != nil {
		return false
	}
	s.explored++
	if s.progress != nil && s.explored%progressInterval == 0 {
		s.progress(s.explored, s.pruned, s.best.Score)
	}
	out, err := checkConfig(ctx, s.p, cfg)
	feasible := err == nil
	observability.Search().OnTrial(ctx, "exact", s.explored, acc, feasible)
	if !feasible {
		return ctx.Err() == nil
	}
	if acc > s.best.Score {
		s.best.Config = cloneConfig(cfg)
		s.best.Score = acc
		s.best.Plan = out.Plan
		s.improved++
		observability.Search().OnImprove(ctx, "exact", s.explored, acc)
		if s.debug != nil {
			s.debug("incumbent %d after %d candidates: %s",
				acc, s.explored, grid.FormatConfig(cfg, s.p.Rows, s.p.Cols))
		}
	}
	return true
}
