package oracle

import (
	"fmt"
	"strings"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

// UsableDegree returns the number of neighbors of (r, c) whose target tier is
// non-Empty. An Empty cell never receives a tower, so it can never serve as
// support regardless of build order.
func UsableDegree(target *grid.Grid, r, c int) int {
	n := 0
	for _, nb := range target.Neighbors(r, c) {
		if target.Tier(nb.Row, nb.Col) != grid.Empty {
			n++
		}
	}
	return n
}

// ValidateStructure checks every cell's target tier against its usable
// degree. A tier needing k distinct supporting neighbors is impossible on a
// cell with fewer than k neighbors that will ever hold a tower. Returns the
// first offending cell in row-major order as ErrCodeStructurallyUnreachable.
func ValidateStructure(target *grid.Grid) error {
	for r := 0; r < target.Rows(); r++ {
		for c := 0; c < target.Cols(); c++ {
			t := target.Tier(r, c)
			need := t.SupportCount()
			if need == 0 {
				continue
			}
			if got := UsableDegree(target, r, c); got < need {
				return errors.New(errors.ErrCodeStructurallyUnreachable,
					"%s at (%d,%d) needs %d distinct supporting neighbors but only %d can ever hold a tower",
					t, r, c, need, got)
			}
		}
	}
	return nil
}

// Analysis is the outcome of finalization-order analysis over a target
// configuration. Finalize lists the live cells in the order the builder
// should give them their last placement: hardest tiers first, Blue targets
// last so transient scaffolding is overwritten for free.
type Analysis struct {
	// Live marks cells with a non-Empty target, indexed row-major.
	Live []bool
	// LiveCount is the number of live cells.
	LiveCount int
	// Finalize holds the live cell indices in build order.
	Finalize []int

	neighbors [][]int // live neighbor indices per cell
}

// LiveNeighbors returns the row-major indices of the live neighbors of the
// given cell.
func (a *Analysis) LiveNeighbors(i int) []int { return a.neighbors[i] }

// Analyze decides whether any build order can exist for the target.
//
// Every build induces an order in which cells receive their last move. A
// cell can come last within a remaining set S exactly when its required
// support tiers are covered by in-S neighbors pinned at their targets, with
// each uncovered tier charged to one neighbor already outside S (free to
// hold an arbitrary tier at that instant). Removing cells from S never makes
// another cell harder to remove, so greedily peeling any removable cell is a
// complete decision procedure: if the peel gets stuck, no order exists at
// all, and the stuck set is a proof. That case is reported as
// ErrCodeCyclicDependency together with a support cycle extracted from the
// stuck set.
//
// The peel sweeps cells lowest target tier first, so the resulting build
// order (the reverse) finalizes the hardest cells while their neighborhoods
// are still free.
func Analyze(target *grid.Grid) (*Analysis, error) {
	n := target.Cells()
	a := &Analysis{
		Live:      make([]bool, n),
		neighbors: make([][]int, n),
	}
	for i := 0; i < n; i++ {
		if target.TierAt(i) == grid.Empty {
			continue
		}
		a.Live[i] = true
		a.LiveCount++
		r, c := target.Coord(i)
		for _, nb := range target.Neighbors(r, c) {
			j := target.Index(nb.Row, nb.Col)
			if target.TierAt(j) != grid.Empty {
				a.neighbors[i] = append(a.neighbors[i], j)
			}
		}
	}

	// Scan order: lowest target tier first, then row-major. Blues peel
	// immediately, freeing their neighbors as wildcards for harder cells.
	scan := make([]int, 0, a.LiveCount)
	for t := grid.Blue; t <= grid.Yellow; t++ {
		for i := 0; i < n; i++ {
			if a.Live[i] && target.TierAt(i) == t {
				scan = append(scan, i)
			}
		}
	}

	inSet := make([]bool, n)
	copy(inSet, a.Live)
	peeled := make([]int, 0, a.LiveCount)
	for remaining := a.LiveCount; remaining > 0; {
		progress := false
		for _, u := range scan {
			if inSet[u] && a.peelable(target, inSet, u) {
				inSet[u] = false
				remaining--
				peeled = append(peeled, u)
				progress = true
			}
		}
		if !progress {
			return nil, a.conflictError(target, inSet, remaining)
		}
	}

	a.Finalize = make([]int, a.LiveCount)
	for i, u := range peeled {
		a.Finalize[a.LiveCount-1-i] = u
	}
	return a, nil
}

// peelable reports whether cell u can receive its last placement while every
// other in-set neighbor already sits at its target. Neighbors outside the
// set are finalized later and each can cover one missing tier.
func (a *Analysis) peelable(target *grid.Grid, inSet []bool, u int) bool {
	sup := target.TierAt(u).Supports()
	if len(sup) == 0 {
		return true
	}
	var covered [grid.TierCount]bool
	wild := 0
	for _, v := range a.neighbors[u] {
		if inSet[v] {
			covered[target.TierAt(v)] = true
		} else {
			wild++
		}
	}
	missing := 0
	for _, s := range sup {
		if !covered[s] {
			missing++
		}
	}
	return missing <= wild
}

// conflictError builds the CyclicDependency rejection for a stuck peel. The
// stuck set itself is the proof; for diagnostics a concrete support cycle is
// extracted: an edge u -> v means u can only come last if v, currently
// pinned at a tier useless to u, is finalized after u instead.
func (a *Analysis) conflictError(target *grid.Grid, inSet []bool, remaining int) error {
	cycle := a.conflictCycle(target, inSet)
	if len(cycle) > 0 {
		return errors.New(errors.ErrCodeCyclicDependency,
			"no build order exists: %d cells deadlock on mutual support, e.g. %s",
			remaining, formatCycle(target, cycle))
	}
	return errors.New(errors.ErrCodeCyclicDependency,
		"no build order exists: %d cells deadlock on mutual support: %s",
		remaining, formatCells(target, inSet))
}

// conflictCycle finds a directed cycle in the wants-later relation over the
// stuck set using depth-first search with white/gray/black coloring.
func (a *Analysis) conflictCycle(target *grid.Grid, inSet []bool) []int {
	const (
		white = iota
		gray
		black
	)

	edges := func(u int) []int {
		var needed [grid.TierCount]bool
		for _, s := range target.TierAt(u).Supports() {
			needed[s] = true
		}
		var out []int
		for _, v := range a.neighbors[u] {
			if inSet[v] && !needed[target.TierAt(v)] {
				out = append(out, v)
			}
		}
		return out
	}

	color := make(map[int]int, len(inSet))
	var stack []int
	var cycle []int

	var dfs func(u int)
	dfs = func(u int) {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range edges(u) {
			if cycle != nil {
				return
			}
			switch color[v] {
			case white:
				dfs(v)
			case gray:
				for i, w := range stack {
					if w == v {
						cycle = append([]int(nil), stack[i:]...)
						return
					}
				}
			}
		}
		color[u] = black
		stack = stack[:len(stack)-1]
	}

	for u := 0; u < len(inSet); u++ {
		if inSet[u] && color[u] == white {
			stack = stack[:0]
			dfs(u)
			if cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func formatCycle(g *grid.Grid, cycle []int) string {
	var b strings.Builder
	for _, u := range cycle {
		r, c := g.Coord(u)
		fmt.Fprintf(&b, "(%d,%d) -> ", r, c)
	}
	r, c := g.Coord(cycle[0])
	fmt.Fprintf(&b, "(%d,%d)", r, c)
	return b.String()
}

func formatCells(g *grid.Grid, inSet []bool) string {
	const limit = 8
	var parts []string
	extra := 0
	for i, in := range inSet {
		if !in {
			continue
		}
		if len(parts) >= limit {
			extra++
			continue
		}
		r, c := g.Coord(i)
		parts = append(parts, fmt.Sprintf("(%d,%d)", r, c))
	}
	s := strings.Join(parts, ", ")
	if extra > 0 {
		s += fmt.Sprintf(" and %d more", extra)
	}
	return s
}
