package oracle

import (
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

// speculativeTrialBudget bounds the number of speculative Green promotions
// attempted across the entire reduction recursion.
const speculativeTrialBudget = 128

// reversePeeler builds a plan backward from the target. A cell is reduced to
// Blue when its forward placement would be legal at that point; when a
// required support tier is missing next to the cell, a Blue neighbor is
// temporarily promoted to provide it. Promotions are only chosen when their
// own later reduction is guaranteed: a Red promotion always is, a Green
// promotion needs a second Blue or Red neighbor besides the reduced cell.
// Every reduction emits its forward moves in front of the ones gathered so
// far, so the final list replays floor to target.
type reversePeeler struct {
	target *grid.Grid
	an     *Analysis
	trials int
	// broken flags an undo reduction that was selected as guaranteed-safe
	// but failed anyway; the working state is unusable past that point.
	broken bool
}

// buildReversePeel runs the reverse peeler. A false return means this
// strategy could not fully reduce the target, not that it is unreachable.
func buildReversePeel(target *grid.Grid, an *Analysis) (grid.Plan, bool) {
	p := &reversePeeler{target: target, an: an, trials: speculativeTrialBudget}
	work := target.Clone()
	reduced, moves := p.reduceToFloor(work)
	if p.broken || !p.allBlue(reduced) {
		return nil, false
	}
	plan := make(grid.Plan, 0, an.LiveCount+len(moves))
	for u := 0; u < target.Cells(); u++ {
		if an.Live[u] {
			r, c := target.Coord(u)
			plan = append(plan, grid.Move{Row: r, Col: c, Tier: grid.Blue})
		}
	}
	return append(plan, moves...), true
}

// reduceToFloor drives safe reductions to a fixpoint. When cells remain
// above Blue, speculative Green promotions next to the remaining Yellows are
// tried on cloned grids, keeping whichever attempt reduces furthest. Returns
// the most reduced grid reached and the moves replaying it back to the
// state w held on entry.
func (p *reversePeeler) reduceToFloor(w *grid.Grid) (*grid.Grid, []grid.Move) {
	moves := p.reduceAll(w)
	if p.broken || p.allBlue(w) {
		return w, moves
	}
	best, bestMoves := w, moves
	for _, cand := range p.speculativeCandidates(w) {
		if p.trials <= 0 {
			break
		}
		p.trials--
		trial := w.Clone()
		trial.SetTierAt(cand, grid.Green)
		reduced, rm := p.reduceToFloor(trial)
		if p.broken {
			return best, bestMoves
		}
		r, c := w.Coord(cand)
		tm := make([]grid.Move, 0, len(rm)+1+len(moves))
		tm = append(tm, rm...)
		tm = append(tm, grid.Move{Row: r, Col: c, Tier: grid.Blue})
		tm = append(tm, moves...)
		if p.allBlue(reduced) {
			return reduced, tm
		}
		if p.lessReduced(reduced, best) {
			best, bestMoves = reduced, tm
		}
	}
	return best, bestMoves
}

// reduceAll sweeps the grid row-major, applying safe reductions until a full
// sweep changes nothing.
func (p *reversePeeler) reduceAll(w *grid.Grid) []grid.Move {
	var moves []grid.Move
	for changed := true; changed && !p.broken; {
		changed = false
		for u := 0; u < w.Cells(); u++ {
			if !p.an.Live[u] {
				continue
			}
			if m, ok := p.reduceCell(w, u); ok {
				changed = true
				m = append(m, moves...)
				moves = m
			}
		}
	}
	return moves
}

// reduceCell attempts to safely reduce cell u to Blue, returning the forward
// moves from the reduced state back to the state w held on entry. The
// reduction needs one Blue neighbor kept as-is plus every tier below u's on
// distinct neighbors; missing tiers are taken by promoting spare Blue
// neighbors, and each promotion is undone afterwards by a reduction that the
// promotion rule made safe.
func (p *reversePeeler) reduceCell(w *grid.Grid, u int) ([]grid.Move, bool) {
	t := w.TierAt(u)
	if t <= grid.Blue {
		return nil, false
	}
	blues := 0
	for _, v := range p.an.LiveNeighbors(u) {
		if w.TierAt(v) == grid.Blue {
			blues++
		}
	}
	if blues == 0 {
		return nil, false
	}
	spare := blues - 1

	type promotion struct {
		cell int
		tier grid.Tier
	}
	var promos []promotion
	used := func(v int) bool {
		for _, pr := range promos {
			if pr.cell == v {
				return true
			}
		}
		return false
	}
	// Most restrictive tier first: Green promotions have the extra-neighbor
	// requirement, so they get first pick of the spare Blues.
	for s := t - 1; s >= grid.Red; s-- {
		if p.hasLiveNeighborTier(w, u, s) {
			continue
		}
		if spare == 0 {
			return nil, false
		}
		found := false
		for _, v := range p.an.LiveNeighbors(u) {
			if used(v) {
				continue
			}
			if p.promotable(w, u, v, s) {
				promos = append(promos, promotion{cell: v, tier: s})
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
		spare--
	}

	ur, uc := w.Coord(u)
	moves := make([]grid.Move, 0, 2*len(promos)+1)
	for _, pr := range promos {
		w.SetTierAt(pr.cell, pr.tier)
		r, c := w.Coord(pr.cell)
		moves = append([]grid.Move{{Row: r, Col: c, Tier: grid.Blue}}, moves...)
	}
	w.SetTierAt(u, grid.Blue)
	moves = append([]grid.Move{{Row: ur, Col: uc, Tier: t}}, moves...)
	for _, pr := range promos {
		um, ok := p.reduceCell(w, pr.cell)
		if !ok {
			p.broken = true
			return nil, false
		}
		joined := make([]grid.Move, 0, len(um)+len(moves))
		joined = append(joined, um...)
		moves = append(joined, moves...)
	}
	return moves, true
}

// promotable reports whether Blue neighbor v of u can safely hold tier s
// while u is reduced. Red is always safe: after u's reduction, u itself is
// the Blue neighbor that lets v reduce. Green additionally needs a Blue or
// Red neighbor of v other than u.
func (p *reversePeeler) promotable(w *grid.Grid, u, v int, s grid.Tier) bool {
	if w.TierAt(v) != grid.Blue {
		return false
	}
	switch s {
	case grid.Red:
		return true
	case grid.Green:
		for _, x := range p.an.LiveNeighbors(v) {
			if x == u {
				continue
			}
			if xt := w.TierAt(x); xt == grid.Blue || xt == grid.Red {
				return true
			}
		}
	}
	return false
}

// speculativeCandidates lists Blue cells worth promoting to Green when safe
// reductions stall: the Blue neighbors of any remaining Yellow whose
// neighborhood could then admit a reduction (two Blues plus a Red, or three
// Blues).
func (p *reversePeeler) speculativeCandidates(w *grid.Grid) []int {
	var out []int
	seen := make(map[int]bool)
	for u := 0; u < w.Cells(); u++ {
		if !p.an.Live[u] || w.TierAt(u) != grid.Yellow {
			continue
		}
		blues, reds := 0, 0
		for _, v := range p.an.LiveNeighbors(u) {
			switch w.TierAt(v) {
			case grid.Blue:
				blues++
			case grid.Red:
				reds++
			}
		}
		if blues < 3 && !(blues >= 2 && reds >= 1) {
			continue
		}
		for _, v := range p.an.LiveNeighbors(u) {
			if w.TierAt(v) == grid.Blue && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func (p *reversePeeler) hasLiveNeighborTier(w *grid.Grid, u int, s grid.Tier) bool {
	for _, v := range p.an.LiveNeighbors(u) {
		if w.TierAt(v) == s {
			return true
		}
	}
	return false
}

func (p *reversePeeler) allBlue(w *grid.Grid) bool {
	for u := 0; u < w.Cells(); u++ {
		if p.an.Live[u] && w.TierAt(u) != grid.Blue {
			return false
		}
	}
	return true
}

// lessReduced orders partially reduced grids: fewer cells above Blue first,
// then lower total tier mass.
func (p *reversePeeler) lessReduced(a, b *grid.Grid) bool {
	ac, as := p.reductionMass(a)
	bc, bs := p.reductionMass(b)
	if ac != bc {
		return ac < bc
	}
	return as < bs
}

func (p *reversePeeler) reductionMass(w *grid.Grid) (cells, sum int) {
	for u := 0; u < w.Cells(); u++ {
		if !p.an.Live[u] {
			continue
		}
		if t := w.TierAt(u); t > grid.Blue {
			cells++
			sum += int(t)
		}
	}
	return cells, sum
}
