package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

// Held records one cell whose tower stood under a final placement.
type Held struct {
	// From is the supporting cell.
	From grid.Cell

	// Provided is the tier the supporting cell held at that instant.
	Provided grid.Tier

	// Transient marks scaffolding: the provided tier is not the tier the
	// supporting cell ends the build with.
	Transient bool
}

// Support describes one finished tower: its cell, its target tier, its
// position in the finalization sequence, and the cells that held it up.
type Support struct {
	Cell  grid.Cell
	Tier  grid.Tier
	Order int
	Held  []Held
}

// SupportStructure replays a verified plan and recovers, for every cell's
// last placement, which neighbor towers provided its supports. The result
// is in finalization order. Blue placements need no supports and get an
// empty Held list.
func SupportStructure(rows, cols int, target []grid.Tier, plan grid.Plan) ([]Support, error) {
	if _, err := plan.Verify(rows, cols, target); err != nil {
		return nil, err
	}
	g, err := grid.New(rows, cols)
	if err != nil {
		return nil, err
	}

	lastMove := make(map[int]int, len(plan))
	for mi, m := range plan {
		lastMove[g.Index(m.Row, m.Col)] = mi
	}

	var sup []Support
	for mi, m := range plan {
		if lastMove[g.Index(m.Row, m.Col)] == mi {
			s := Support{
				Cell:  grid.Cell{Row: m.Row, Col: m.Col},
				Tier:  m.Tier,
				Order: len(sup) + 1,
			}
			for _, need := range m.Tier.Supports() {
				for _, nb := range g.Neighbors(m.Row, m.Col) {
					if g.Tier(nb.Row, nb.Col) != need {
						continue
					}
					s.Held = append(s.Held, Held{
						From:      nb,
						Provided:  need,
						Transient: target[nb.Row*cols+nb.Col] != need,
					})
					break
				}
			}
			sup = append(sup, s)
		}
		g.SetTier(m.Row, m.Col, m.Tier)
	}
	return sup, nil
}

// DOTOptions configures support digraph rendering.
type DOTOptions struct {
	// Detailed includes coordinates and finalization order in node labels.
	// When false, only the tier letter is shown.
	Detailed bool
}

// SupportDOT converts a support structure to Graphviz DOT. Every finished
// tower becomes a node colored by its tier; an edge points from each
// supporting cell to the tower it held up, dashed when the support was
// scaffolding. The resulting DOT string can be rendered with [RenderSVG].
func SupportDOT(sup []Support, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=18, margin=\"0.15,0.08\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, s := range sup {
		label := fmtSupportLabel(s, opts.Detailed)
		attrs := []string{
			fmt.Sprintf("label=%q", label),
			fmt.Sprintf("fillcolor=%q", fillColors[s.Tier]),
			fmt.Sprintf("fontcolor=%q", textColors[s.Tier]),
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", cellID(s.Cell), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, s := range sup {
		for _, h := range s.Held {
			attrs := []string{fmt.Sprintf("color=%q", fillColors[h.Provided])}
			if h.Transient {
				attrs = append(attrs, "style=dashed",
					fmt.Sprintf("label=%q", string(h.Provided.Rune())),
					fmt.Sprintf("fontcolor=%q", fillColors[h.Provided]))
			}
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", cellID(h.From), cellID(s.Cell), strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// PlanDOT is a convenience wrapper: recover the support structure of a plan
// and render it as DOT in one step.
func PlanDOT(rows, cols int, target []grid.Tier, plan grid.Plan, opts DOTOptions) (string, error) {
	sup, err := SupportStructure(rows, cols, target, plan)
	if err != nil {
		return "", err
	}
	return SupportDOT(sup, opts), nil
}

func cellID(c grid.Cell) string {
	return fmt.Sprintf("%d,%d", c.Row, c.Col)
}

func fmtSupportLabel(s Support, detailed bool) string {
	if !detailed {
		return string(s.Tier.Rune())
	}
	return fmt.Sprintf("%c (%d,%d)\n#%d", s.Tier.Rune(), s.Cell.Row, s.Cell.Col, s.Order)
}
