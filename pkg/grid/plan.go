package grid

import (
	"fmt"
	"strings"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
)

// Move places a tier at a cell. Moves are events: applying one mutates
// exactly that cell.
type Move struct {
	Row  int  `json:"row"`
	Col  int  `json:"col"`
	Tier Tier `json:"tier"`
}

// String returns the move in "tier@(row,col)" form.
func (m Move) String() string {
	return fmt.Sprintf("%s@(%d,%d)", m.Tier, m.Row, m.Col)
}

// Plan is an ordered sequence of moves that builds a configuration from an
// all-Empty board. A plan is a witness of reachability, not a scored object.
type Plan []Move

// Apply replays the plan onto g without legality checks.
func (p Plan) Apply(g *Grid) {
	for _, m := range p {
		g.SetTier(m.Row, m.Col, m.Tier)
	}
}

// String renders the plan as a space-separated move list.
func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, m := range p {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

// Verify replays the plan from an all-Empty rows×cols board, checking every
// move against [CanPlace] at the instant it is applied, and confirms the
// terminal state equals target. It returns the reached grid on success.
//
// This is the round-trip guarantee every oracle- or search-produced plan must
// satisfy; a failure pinpoints the first illegal move.
func (p Plan) Verify(rows, cols int, target []Tier) (*Grid, error) {
	g, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	if len(target) != rows*cols {
		return nil, errors.New(errors.ErrCodeInvalidPlan, "target has %d cells, want %d", len(target), rows*cols)
	}
	for i, m := range p {
		if !g.InBounds(m.Row, m.Col) {
			return nil, errors.New(errors.ErrCodeInvalidPlan, "move %d places outside the board: %s", i, m)
		}
		if !CanPlace(g, m.Row, m.Col, m.Tier) {
			return nil, errors.New(errors.ErrCodeInvalidPlan, "move %d is illegal: %s", i, m)
		}
		g.SetTier(m.Row, m.Col, m.Tier)
	}
	for i, want := range target {
		if got := g.TierAt(i); got != want {
			r, c := g.Coord(i)
			return nil, errors.New(errors.ErrCodeInvalidPlan, "replay ends with %s at (%d,%d), want %s", got, r, c, want)
		}
	}
	return g, nil
}

// Clone returns an independent copy of the plan.
func (p Plan) Clone() Plan {
	out := make(Plan, len(p))
	copy(out, p)
	return out
}
