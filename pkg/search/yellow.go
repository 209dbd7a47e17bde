package search

import (
	"context"
	"time"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/oracle"
)

// DefaultClimbNodes bounds the yellow climber's branch and bound tree.
const DefaultClimbNodes = 100000

// YellowClimber packs as many Yellow towers as possible on tables where
// only Yellow scores. It explores configurations of Blues and Yellows
// exclusively, with every other cell acting as support.
//
// Greedy sweeps seed the incumbent: cells are promoted one at a time and
// kept Yellow whenever the oracle still accepts the configuration, once in
// row-major order and once per checkerboard parity class. Branch and bound
// over the same restriction then looks for denser packings until the node
// budget runs out. Complete candidates pass an
// 8-connected support filter before the oracle: layouts whose non-Yellow
// cells fall apart into separate components are skipped.
//
// Results are best known. The Blue-and-Yellow restriction means an
// exhausted tree still proves nothing about mixed layouts, so Optimal is
// always false.
type YellowClimber struct {
	// MaxNodes bounds the branch and bound tree. Non-positive means
	// DefaultClimbNodes.
	MaxNodes int

	// Timeout bounds the run. Zero means no limit.
	Timeout time.Duration

	// Progress, when set, is called on each new incumbent with the
	// candidates evaluated, branches pruned and best yellow count.
	Progress func(explored, pruned, best int)
}

func (y YellowClimber) Optimize(ctx context.Context, p Problem) (*Result, error) {
	if err := p.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if !p.Table.IsYellowOnly() {
		return nil, errors.New(errors.ErrCodeInvalidMode,
			"yellow climber requires a yellow-only score table, got %s", p.Table.Key())
	}
	start := time.Now()
	if y.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.Timeout)
		defer cancel()
	}

	maxNodes := y.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultClimbNodes
	}

	b := newBoard(p.Rows, p.Cols)
	var eligible []int
	for i, d := range b.degree {
		if d >= 3 {
			eligible = append(eligible, i)
		}
	}

	s := &climb{
		p:        p,
		b:        b,
		eligible: eligible,
		maxNodes: maxNodes,
		best:     floorResult(p),
		progress: y.Progress,
	}
	s.cfg = cloneConfig(s.best.Config)

	s.seed(ctx)

	// The tree re-assigns every eligible cell from scratch.
	for i := range s.cfg {
		s.cfg[i] = grid.Blue
	}
	s.yellows = 0
	exhausted := s.descend(ctx, 0)

	s.best.Trials = s.trials
	s.best.Improvements = s.improved
	s.best.BudgetUsed = time.Since(start)
	observability.Search().OnComplete(ctx, "yellow-climber", s.trials, s.best.Score, false, s.best.BudgetUsed)
	p.Logger.Info("yellow climb finished",
		"yellows", s.bestYellows, "score", s.best.Score,
		"exhausted", exhausted, "nodes", s.nodes, "candidates", s.trials)
	return s.best, nil
}

type climb struct {
	p           Problem
	b           *board
	eligible    []int
	cfg         []grid.Tier
	yellows     int
	nodes       int
	maxNodes    int
	trials      int
	pruned      int
	improved    int
	best        *Result
	bestYellows int
	progress    func(int, int, int)
}

// seed greedily promotes cells to Yellow along each sweep order, keeping a
// promotion only when the oracle accepts the whole configuration. Every
// sweep starts from the all-Blue floor; record keeps whichever sweep packed
// the most.
func (s *climb) seed(ctx context.Context) {
	for _, order := range s.seedOrders() {
		for i := range s.cfg {
			s.cfg[i] = grid.Blue
		}
		s.yellows = 0
		for _, i := range order {
			if ctx.Err() != nil {
				return
			}
			s.cfg[i] = grid.Yellow
			if s.b.yellowBlocked(s.cfg, i, len(s.cfg)) {
				s.cfg[i] = grid.Blue
				continue
			}
			s.trials++
			out, err := checkConfig(ctx, s.p, s.cfg)
			feasible := err == nil
			observability.Search().OnTrial(ctx, "yellow-climber", s.trials, s.yellows+1, feasible)
			if !feasible {
				s.cfg[i] = grid.Blue
				continue
			}
			s.yellows++
			s.record(ctx, out)
		}
	}
}

// seedOrders lists the greedy sweep orders: plain row-major, then each
// checkerboard parity class first. Dense packings alternate Yellow and
// support cells, and a parity-first sweep reaches them where row-major
// greed walls itself in early.
func (s *climb) seedOrders() [][]int {
	var odd, even []int
	for _, i := range s.eligible {
		if (i/s.b.cols+i%s.b.cols)%2 == 1 {
			odd = append(odd, i)
		} else {
			even = append(even, i)
		}
	}
	oddFirst := append(append([]int(nil), odd...), even...)
	evenFirst := append(append([]int(nil), even...), odd...)
	return [][]int{s.eligible, oddFirst, evenFirst}
}

// descend assigns eligible cells from position k on, Yellow branch first.
// It returns false when the node budget or the context cut the walk short.
func (s *climb) descend(ctx context.Context, k int) bool {
	if s.nodes >= s.maxNodes || ctx.Err() != nil {
		return false
	}
	s.nodes++
	if s.yellows+len(s.eligible)-k <= s.bestYellows {
		s.pruned++
		return true
	}
	if k == len(s.eligible) {
		return s.leaf(ctx)
	}
	i := s.eligible[k]
	complete := true
	s.cfg[i] = grid.Yellow
	if s.b.yellowBlocked(s.cfg, i, len(s.cfg)) {
		s.pruned++
	} else {
		s.yellows++
		complete = s.descend(ctx, k+1)
		s.yellows--
	}
	s.cfg[i] = grid.Blue
	if complete {
		complete = s.descend(ctx, k+1)
	}
	return complete
}

// leaf settles one complete Blue-and-Yellow candidate. Only candidates
// strictly denser than the incumbent reach this point.
func (s *climb) leaf(ctx context.Context) bool {
	if !blueConnected(s.b, s.cfg) {
		s.pruned++
		return true
	}
	s.trials++
	out, err := checkConfig(ctx, s.p, s.cfg)
	feasible := err == nil
	observability.Search().OnTrial(ctx, "yellow-climber", s.trials, s.yellows, feasible)
	if !feasible {
		return ctx.Err() == nil
	}
	s.record(ctx, out)
	return true
}

// record replaces the incumbent when the current configuration holds more
// Yellows.
func (s *climb) record(ctx context.Context, out *oracle.Outcome) {
	if s.yellows <= s.bestYellows {
		return
	}
	s.bestYellows = s.yellows
	s.best.Config = cloneConfig(s.cfg)
	s.best.Score = s.p.Table.Total(s.cfg)
	s.best.Plan = out.Plan
	s.improved++
	observability.Search().OnImprove(ctx, "yellow-climber", s.trials, s.best.Score)
	if s.progress != nil {
		s.progress(s.trials, s.pruned, s.bestYellows)
	}
}

// blueConnected reports whether the non-Yellow cells form one 8-connected
// component. An empty support set counts as connected.
func blueConnected(b *board, cfg []grid.Tier) bool {
	total := 0
	start := -1
	for i, t := range cfg {
		if t != grid.Yellow {
			total++
			if start < 0 {
				start = i
			}
		}
	}
	if total == 0 {
		return true
	}
	seen := make([]bool, len(cfg))
	seen[start] = true
	count := 1
	stack := []int{start}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r, c := i/b.cols, i%b.cols
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				nr, nc := r+dr, c+dc
				if (dr == 0 && dc == 0) || nr < 0 || nr >= b.rows || nc < 0 || nc >= b.cols {
					continue
				}
				j := nr*b.cols + nc
				if seen[j] || cfg[j] == grid.Yellow {
					continue
				}
				seen[j] = true
				count++
				stack = append(stack, j)
			}
		}
	}
	return count == total
}
