// Package render turns boards and build plans into visual output.
//
// # Overview
//
// Three renderers cover the surfaces the CLI and server expose:
//
//   - [BoardSVG] draws a configuration as a grid of colored tiles.
//   - [SupportDOT] exports the support structure of a build plan as a
//     Graphviz digraph; [RenderSVG] rasterizes any DOT string.
//   - [ToPDF] and [ToPNG] convert SVG output to print and raster formats
//     via rsvg-convert.
//
// # Support structure
//
// A build plan finishes each cell with one last placement. The cells whose
// towers stood under that placement are its supports; some of them were
// scaffolding that was later rebuilt. [SupportStructure] recovers this
// relation by replaying the plan, and [SupportDOT] renders it with solid
// edges for finished supports and dashed edges for scaffolds:
//
//	sup, err := render.SupportStructure(rows, cols, target, plan)
//	dot := render.SupportDOT(sup, render.DOTOptions{Detailed: true})
//	svg, err := render.RenderSVG(dot)
package render

import (
	"bytes"
	"fmt"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
)

// fillColors is the tile palette, one color per tier.
var fillColors = [grid.TierCount]string{
	grid.Empty:  "#ececec",
	grid.Blue:   "#4a90d9",
	grid.Red:    "#d9534f",
	grid.Green:  "#57a95c",
	grid.Yellow: "#f2c744",
}

// textColors keeps the tier letter readable on each fill.
var textColors = [grid.TierCount]string{
	grid.Empty:  "#b0b0b0",
	grid.Blue:   "#ffffff",
	grid.Red:    "#ffffff",
	grid.Green:  "#ffffff",
	grid.Yellow: "#6b5410",
}

const (
	defaultCellSize = 56.0
	tileGap         = 4.0
	frameMargin     = 12.0
	labelSpace      = 18.0
)

// BoardOption configures [BoardSVG].
type BoardOption func(*boardRenderer)

type boardRenderer struct {
	cell   float64
	table  *score.Table
	coords bool
}

// WithCellSize overrides the tile edge length in SVG units.
func WithCellSize(px float64) BoardOption {
	return func(r *boardRenderer) {
		if px > 0 {
			r.cell = px
		}
	}
}

// WithScores annotates every tile with its points under the given table.
func WithScores(t score.Table) BoardOption {
	return func(r *boardRenderer) { r.table = &t }
}

// WithCoords adds row and column indices along the board edges.
func WithCoords() BoardOption {
	return func(r *boardRenderer) { r.coords = true }
}

// BoardSVG renders a configuration as an SVG tile grid.
func BoardSVG(cfg []grid.Tier, rows, cols int, opts ...BoardOption) ([]byte, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"board must be at least 1x1, got %dx%d", rows, cols)
	}
	if len(cfg) != rows*cols {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"configuration has %d cells, want %d", len(cfg), rows*cols)
	}

	r := boardRenderer{cell: defaultCellSize}
	for _, opt := range opts {
		opt(&r)
	}

	offset := frameMargin
	if r.coords {
		offset += labelSpace
	}
	width := offset + float64(cols)*r.cell + float64(cols-1)*tileGap + frameMargin
	height := offset + float64(rows)*r.cell + float64(rows-1)*tileGap + frameMargin

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)

	if r.coords {
		renderCoords(&buf, rows, cols, r.cell, offset)
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			t := cfg[row*cols+col]
			x := offset + float64(col)*(r.cell+tileGap)
			y := offset + float64(row)*(r.cell+tileGap)
			renderTile(&buf, &r, t, row, col, x, y)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

func renderTile(buf *bytes.Buffer, r *boardRenderer, t grid.Tier, row, col int, x, y float64) {
	fmt.Fprintf(buf, `  <rect id="tile-%d-%d" class="tile" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="6" fill="%s" stroke="#444444" stroke-width="1"/>`+"\n",
		row, col, x, y, r.cell, r.cell, fillColors[t])

	if t != grid.Empty {
		fmt.Fprintf(buf, `  <text class="tile-text" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="central" font-family="Helvetica, Arial, sans-serif" font-size="%.1f" font-weight="bold" fill="%s">%c</text>`+"\n",
			x+r.cell/2, y+r.cell/2, r.cell*0.42, textColors[t], t.Rune())
	}
	if r.table != nil && t != grid.Empty {
		fmt.Fprintf(buf, `  <text class="tile-score" x="%.1f" y="%.1f" text-anchor="end" font-family="Helvetica, Arial, sans-serif" font-size="%.1f" fill="%s">%d</text>`+"\n",
			x+r.cell-5, y+r.cell-5, r.cell*0.2, textColors[t], r.table.Score(t))
	}
}

func renderCoords(buf *bytes.Buffer, rows, cols int, cell, offset float64) {
	for col := 0; col < cols; col++ {
		x := offset + float64(col)*(cell+tileGap) + cell/2
		fmt.Fprintf(buf, `  <text class="coord" x="%.1f" y="%.1f" text-anchor="middle" font-family="Helvetica, Arial, sans-serif" font-size="11" fill="#888888">%d</text>`+"\n",
			x, offset-6, col)
	}
	for row := 0; row < rows; row++ {
		y := offset + float64(row)*(cell+tileGap) + cell/2
		fmt.Fprintf(buf, `  <text class="coord" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="central" font-family="Helvetica, Arial, sans-serif" font-size="11" fill="#888888">%d</text>`+"\n",
			offset-9, y, row)
	}
}
