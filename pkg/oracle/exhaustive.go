package oracle

import (
	"context"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

// hardExhaustiveCellLimit caps the packed state space at 4^13 entries so the
// distance array stays a modest allocation.
const hardExhaustiveCellLimit = 13

const unvisited = 0xFF

type exhaustiveResult struct {
	plan      grid.Plan
	found     bool
	exhausted bool // the full reachable space was enumerated
	states    int
}

// exhaustiveSearch enumerates every configuration reachable from the Blue
// floor, breadth-first over packed states (two bits per live cell), and
// reconstructs a shortest move sequence when the target state is reached.
//
// Restricting the space to live cells holding Blue..Yellow loses nothing:
// any plan stays valid when a Blue floor is laid first, because extra towers
// only add support. Exhausting the space without a hit is therefore a proof
// of unreachability. Hitting the state cap or being cancelled ends the
// search without a proof, reported via exhausted=false.
func exhaustiveSearch(ctx context.Context, target *grid.Grid, an *Analysis, stateCap int) exhaustiveResult {
	cells := make([]int, 0, an.LiveCount) // live position -> cell index
	pos := make([]int, target.Cells())    // cell index -> live position
	for i := range pos {
		pos[i] = -1
	}
	for u := 0; u < target.Cells(); u++ {
		if an.Live[u] {
			pos[u] = len(cells)
			cells = append(cells, u)
		}
	}
	n := len(cells)
	if n == 0 {
		return exhaustiveResult{found: true, exhausted: true, states: 1}
	}
	if n > hardExhaustiveCellLimit {
		return exhaustiveResult{}
	}

	nbs := make([][]int, n)
	for li, u := range cells {
		for _, v := range an.LiveNeighbors(u) {
			nbs[li] = append(nbs[li], pos[v])
		}
	}
	var targetState uint32
	for li, u := range cells {
		targetState |= uint32(target.TierAt(u)-grid.Blue) << (2 * li)
	}

	dist := make([]uint8, 1<<(2*n))
	for i := range dist {
		dist[i] = unvisited
	}
	dist[0] = 0
	if targetState == 0 {
		return exhaustiveResult{plan: floorPlan(target, cells), found: true, exhausted: true, states: 1}
	}

	queue := make([]uint32, 1, 1024)
	states := 1
	for head := 0; head < len(queue); head++ {
		if head&0x3ff == 0 && ctx.Err() != nil {
			return exhaustiveResult{states: states}
		}
		s := queue[head]
		d := dist[int(s)]
		for li := 0; li < n; li++ {
			cur := (s >> (2 * li)) & 3
			var have uint32
			for _, nb := range nbs[li] {
				have |= 1 << ((s >> (2 * nb)) & 3)
			}
			for nv := uint32(0); nv < 4; nv++ {
				if nv == cur {
					continue
				}
				// Placing value nv needs every lower value among neighbors.
				need := uint32(1)<<nv - 1
				if have&need != need {
					continue
				}
				ns := s&^(3<<(2*li)) | nv<<(2*li)
				if dist[int(ns)] != unvisited {
					continue
				}
				if d+1 >= unvisited {
					return exhaustiveResult{states: states}
				}
				dist[int(ns)] = d + 1
				states++
				if ns == targetState {
					plan := reconstructPlan(target, dist, nbs, cells, targetState)
					return exhaustiveResult{plan: plan, found: plan != nil, states: states}
				}
				if states > stateCap {
					return exhaustiveResult{states: states}
				}
				queue = append(queue, ns)
			}
		}
	}
	return exhaustiveResult{exhausted: true, states: states}
}

// reconstructPlan walks the distance array backward from the target state,
// peeling one last move per step, then emits the Blue floor followed by the
// moves in forward order.
func reconstructPlan(target *grid.Grid, dist []uint8, nbs [][]int, cells []int, targetState uint32) grid.Plan {
	n := len(cells)
	var rev []grid.Move
	for cur := targetState; dist[int(cur)] > 0; {
		stepped := false
		for li := 0; li < n && !stepped; li++ {
			tv := (cur >> (2 * li)) & 3
			var have uint32
			for _, nb := range nbs[li] {
				have |= 1 << ((cur >> (2 * nb)) & 3)
			}
			need := uint32(1)<<tv - 1
			if have&need != need {
				continue // this cell's value is not placeable here, so its move was not last
			}
			for pv := uint32(0); pv < 4; pv++ {
				if pv == tv {
					continue
				}
				prev := cur&^(3<<(2*li)) | pv<<(2*li)
				if dist[int(prev)] == dist[int(cur)]-1 {
					r, c := target.Coord(cells[li])
					rev = append(rev, grid.Move{Row: r, Col: c, Tier: grid.Blue + grid.Tier(tv)})
					cur = prev
					stepped = true
					break
				}
			}
		}
		if !stepped {
			return nil
		}
	}
	plan := floorPlan(target, cells)
	for i := len(rev) - 1; i >= 0; i-- {
		plan = append(plan, rev[i])
	}
	return plan
}

func floorPlan(target *grid.Grid, cells []int) grid.Plan {
	plan := make(grid.Plan, 0, len(cells))
	for _, u := range cells {
		r, c := target.Coord(u)
		plan = append(plan, grid.Move{Row: r, Col: c, Tier: grid.Blue})
	}
	return plan
}
