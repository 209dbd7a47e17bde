package oracle

import (
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

// maxRaiseDepth bounds the scaffolding recursion. Support chains are at most
// three tiers deep, so anything beyond this is a cycle the busy guard missed.
const maxRaiseDepth = 12

// waveBuilder constructs a plan in waves: a Blue floor first, then each cell
// is finalized in analysis order (hardest tiers first), transiently raising
// service neighbors as scaffolding. Cells finalized earlier are pinned;
// scaffolding lives only on cells whose own finalization comes later, so the
// trailing Blue wave overwrites it for free.
type waveBuilder struct {
	target  *grid.Grid
	an      *Analysis
	work    *grid.Grid
	plan    grid.Plan
	final   []bool // finalized cells, never touched again
	busy    []bool // cells mid-raise or locked as support providers
	moveCap int
}

// buildTrajectory runs the wave builder. A false return means this strategy
// could not realize the order, not that the target is unreachable.
func buildTrajectory(target *grid.Grid, an *Analysis) (grid.Plan, bool) {
	work, err := grid.New(target.Rows(), target.Cols())
	if err != nil {
		return nil, false
	}
	n := target.Cells()
	b := &waveBuilder{
		target:  target,
		an:      an,
		work:    work,
		plan:    make(grid.Plan, 0, an.LiveCount*2),
		final:   make([]bool, n),
		busy:    make([]bool, n),
		moveCap: 64*an.LiveCount + 16,
	}

	for i := 0; i < n; i++ {
		if an.Live[i] && !b.place(i, grid.Blue) {
			return nil, false
		}
	}
	for _, u := range an.Finalize {
		t := target.TierAt(u)
		if b.work.TierAt(u) != t && !b.raise(u, t, 0) {
			return nil, false
		}
		b.final[u] = true
	}
	if !b.work.Equal(target) {
		return nil, false
	}
	return b.plan, true
}

// raise makes cell u hold tier t right now, recursively preparing supports.
// Raising to a lower tier is just as legal as raising to a higher one; Blue
// in particular always succeeds, which is how stale scaffolding is cleared.
func (b *waveBuilder) raise(u int, t grid.Tier, depth int) bool {
	if depth > maxRaiseDepth {
		return false
	}
	if b.work.TierAt(u) == t {
		return true
	}
	if b.final[u] || b.busy[u] {
		return false
	}
	b.busy[u] = true
	ok := b.prepareAndPlace(u, t, depth)
	b.busy[u] = false
	return ok
}

// prepareAndPlace assembles the distinct supporting neighbors t needs at u
// and then places t. Required tiers already present are claimed from the
// poorest scaffold candidates so high-degree neighbors stay raisable;
// missing tiers are raised on free neighbors, hardest first, preferring the
// lowest final target (cheap to fix later) and then row-major order.
func (b *waveBuilder) prepareAndPlace(u int, t grid.Tier, depth int) bool {
	sup := t.Supports()
	if len(sup) == 0 {
		return b.place(u, t)
	}

	var provider [grid.TierCount]int
	for i := range provider {
		provider[i] = -1
	}
	for _, s := range sup {
		best := -1
		for _, v := range b.an.LiveNeighbors(u) {
			if b.work.TierAt(v) != s {
				continue
			}
			if best == -1 || b.poorerScaffold(v, best) {
				best = v
			}
		}
		provider[s] = best
	}

	var locked []int
	lock := func(v int) {
		if !b.busy[v] {
			b.busy[v] = true
			locked = append(locked, v)
		}
	}
	defer func() {
		for _, v := range locked {
			b.busy[v] = false
		}
	}()
	for _, s := range sup {
		if provider[s] >= 0 {
			lock(provider[s])
		}
	}

	for i := len(sup) - 1; i >= 0; i-- {
		s := sup[i]
		if provider[s] >= 0 {
			continue
		}
		raised := false
		for _, v := range b.serviceCandidates(u) {
			if b.raise(v, s, depth+1) {
				provider[s] = v
				lock(v)
				raised = true
				break
			}
		}
		if !raised {
			return false
		}
	}
	return b.place(u, t)
}

// serviceCandidates lists the neighbors of u that may be raised right now,
// ordered by preference: lowest final target tier, then row-major.
func (b *waveBuilder) serviceCandidates(u int) []int {
	var out []int
	for _, v := range b.an.LiveNeighbors(u) {
		if b.final[v] || b.busy[v] {
			continue
		}
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && b.cheaperService(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (b *waveBuilder) cheaperService(v, w int) bool {
	tv, tw := b.target.TierAt(v), b.target.TierAt(w)
	if tv != tw {
		return tv < tw
	}
	return v < w
}

// poorerScaffold orders passive provider choices: fewer live neighbors
// first, then row-major. Claiming the least connected provider keeps the
// well-connected cells free for recursive raising.
func (b *waveBuilder) poorerScaffold(v, w int) bool {
	dv, dw := len(b.an.LiveNeighbors(v)), len(b.an.LiveNeighbors(w))
	if dv != dw {
		return dv < dw
	}
	return v < w
}

// place appends a verified move. Failing the placement check here means the
// builder itself went wrong; the caller falls through to the next strategy.
func (b *waveBuilder) place(u int, t grid.Tier) bool {
	if len(b.plan) >= b.moveCap {
		return false
	}
	r, c := b.work.Coord(u)
	if !grid.CanPlace(b.work, r, c, t) {
		return false
	}
	b.work.SetTier(r, c, t)
	b.plan = append(b.plan, grid.Move{Row: r, Col: c, Tier: t})
	return true
}
