package search

import (
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

// board caches the geometry the optimizers query on every candidate: cell
// degrees, neighbor index lists and the degree-capped tier ceiling. All
// fields are immutable once built, so one board is shared freely across
// goroutines.
type board struct {
	rows, cols int
	degree     []int
	neighbors  [][]int
	maxTier    []grid.Tier
}

func newBoard(rows, cols int) *board {
	n := rows * cols
	b := &board{
		rows:      rows,
		cols:      cols,
		degree:    make([]int, n),
		neighbors: make([][]int, n),
		maxTier:   make([]grid.Tier, n),
	}
	for i := 0; i < n; i++ {
		r, c := i/cols, i%cols
		for _, d := range [4][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}} {
			nr, nc := r+d[0], c+d[1]
			if nr >= 0 && nr < rows && nc >= 0 && nc < cols {
				b.neighbors[i] = append(b.neighbors[i], nr*cols+nc)
			}
		}
		b.degree[i] = len(b.neighbors[i])
		b.maxTier[i] = grid.MaxTierForDegree(b.degree[i])
	}
	return b
}

// yellowBlocked reports whether cell i holding Yellow completes a pattern
// no build order can finalize. Two patterns are cut:
//
//   - a pair of adjacent degree-3 Yellow cells: whichever of the two is
//     finalized later has its Yellow neighbor pinned, leaving two cells
//     for three support tiers;
//   - a 2x2 block of Yellow cells: the last of the four to finalize has
//     two pinned Yellow neighbors and at most two cells outside the block.
//
// Cells at index limit or beyond count as unassigned, which lets the exact
// search test a row-major prefix. Both patterns fail under every order, so
// the cut is exact.
func (b *board) yellowBlocked(cfg []grid.Tier, i, limit int) bool {
	if cfg[i] != grid.Yellow {
		return false
	}
	if b.degree[i] == 3 {
		for _, j := range b.neighbors[i] {
			if j < limit && b.degree[j] == 3 && cfg[j] == grid.Yellow {
				return true
			}
		}
	}
	r, c := i/b.cols, i%b.cols
	for _, d := range [4][2]int{{-1, -1}, {-1, 0}, {0, -1}, {0, 0}} {
		tr, tc := r+d[0], c+d[1]
		if tr < 0 || tc < 0 || tr+1 >= b.rows || tc+1 >= b.cols {
			continue
		}
		full := true
		for _, e := range [4][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
			j := (tr+e[0])*b.cols + tc + e[1]
			if j >= limit || cfg[j] != grid.Yellow {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}
	return false
}
