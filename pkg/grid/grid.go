// Package grid models the tower-placement board: a fixed-size rectangular
// grid of tiered cells with 4-neighbor adjacency, the placement requirement
// predicate, and replayable build plans.
//
// The grid is stored as a flat row-major tier array so that search trials can
// clone boards with a single copy. Mutation via [Grid.SetTier] is
// unconditional; legality checking is a separate concern ([CanPlace]) owned
// by the feasibility oracle.
package grid

import (
	"strings"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
)

// neighborOffsets is the 4-neighborhood in row-major scan order.
var neighborOffsets = [4][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}

// Cell is a grid coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Grid is a rectangular board of tiered cells. The zero value is not usable;
// construct with [New].
type Grid struct {
	rows, cols int
	cells      []Tier // row-major, len rows*cols
}

// New returns an all-Empty grid with the given dimensions.
func New(rows, cols int) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "grid dimensions must be at least 1x1, got %dx%d", rows, cols)
	}
	return &Grid{rows: rows, cols: cols, cells: make([]Tier, rows*cols)}, nil
}

// FromConfig returns a grid holding the given configuration. The
// configuration is copied.
func FromConfig(rows, cols int, cfg []Tier) (*Grid, error) {
	g, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	if len(cfg) != rows*cols {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "configuration has %d cells, want %d", len(cfg), rows*cols)
	}
	for i, t := range cfg {
		if !t.Valid() {
			r, c := i/cols, i%cols
			return nil, errors.New(errors.ErrCodeInvalidConfig, "undefined tier value %d at (%d,%d)", t, r, c)
		}
	}
	copy(g.cells, cfg)
	return g, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Cells returns the total cell count.
func (g *Grid) Cells() int { return len(g.cells) }

// Index maps (row, col) to the row-major cell index.
func (g *Grid) Index(r, c int) int { return r*g.cols + c }

// Coord maps a row-major cell index back to (row, col).
func (g *Grid) Coord(i int) (r, c int) { return i / g.cols, i % g.cols }

// InBounds reports whether (r, c) lies on the board.
func (g *Grid) InBounds(r, c int) bool {
	return r >= 0 && r < g.rows && c >= 0 && c < g.cols
}

// Tier returns the tier currently held at (r, c).
func (g *Grid) Tier(r, c int) Tier { return g.cells[g.Index(r, c)] }

// TierAt returns the tier at a row-major index.
func (g *Grid) TierAt(i int) Tier { return g.cells[i] }

// SetTier mutates the tier at (r, c) without any legality check.
func (g *Grid) SetTier(r, c int, t Tier) { g.cells[g.Index(r, c)] = t }

// SetTierAt mutates the tier at a row-major index without any legality check.
func (g *Grid) SetTierAt(i int, t Tier) { g.cells[i] = t }

// Neighbors returns the existing adjacent cells of (r, c) in deterministic
// scan order: up, left, right, down.
func (g *Grid) Neighbors(r, c int) []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range neighborOffsets {
		nr, nc := r+d[0], c+d[1]
		if g.InBounds(nr, nc) {
			out = append(out, Cell{nr, nc})
		}
	}
	return out
}

// Degree returns the number of existing neighbors of (r, c): 2 at corners,
// 3 on edges, 4 in the interior. Fixed for the grid's lifetime.
func (g *Grid) Degree(r, c int) int {
	n := 0
	for _, d := range neighborOffsets {
		if g.InBounds(r+d[0], c+d[1]) {
			n++
		}
	}
	return n
}

// Config returns a copy of the current tier assignment.
func (g *Grid) Config() []Tier {
	out := make([]Tier, len(g.cells))
	copy(out, g.cells)
	return out
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{rows: g.rows, cols: g.cols, cells: g.Config()}
}

// Equal reports whether both grids have identical dimensions and tiers.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.rows != other.rows || g.cols != other.cols {
		return false
	}
	for i, t := range g.cells {
		if other.cells[i] != t {
			return false
		}
	}
	return true
}

// Fill sets every cell to the given tier.
func (g *Grid) Fill(t Tier) {
	for i := range g.cells {
		g.cells[i] = t
	}
}

// String renders the grid in the compact rune form, one row per line.
func (g *Grid) String() string {
	var b strings.Builder
	for r := 0; r < g.rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < g.cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(g.Tier(r, c).Rune())
		}
	}
	return b.String()
}

// CanPlace reports whether tier t may be placed at (r, c) given the grid's
// current state: every support tier of t must be held by a distinct existing
// neighbor at this instant. Empty is never placeable. Placement never depends
// on the target cell's own current tier, so any cell may be overwritten.
func CanPlace(g *Grid, r, c int, t Tier) bool {
	if t == Empty || !t.Valid() || !g.InBounds(r, c) {
		return false
	}
	if t == Blue {
		return true
	}
	// One neighbor per required tier; a neighbor holds a single tier, so
	// presence of each required tier implies distinct cells.
	var have [TierCount]bool
	for _, d := range neighborOffsets {
		nr, nc := r+d[0], c+d[1]
		if g.InBounds(nr, nc) {
			have[g.Tier(nr, nc)] = true
		}
	}
	for _, s := range t.Supports() {
		if !have[s] {
			return false
		}
	}
	return true
}
