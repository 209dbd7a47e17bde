package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/render"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
)

const (
	typeBoard   = "board"   // colored tile grid of the layout
	typeSupport = "support" // digraph of which towers held up which
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file path (or base path for multiple outputs)
	types    []string // artifact types: "board", "support"
	formats  []string // output formats: "svg", "png", "pdf", "dot"
	detailed bool     // coordinates and build order in support node labels
	scores   bool     // per-tile point annotations on the board
	coords   bool     // row/column indices on the board
	scale    float64  // raster scale for PNG output
	table    string   // score table for --scores
	report   string   // take layout and plan from a saved run report
	noCache  bool
}

// renderCommand creates the render command for visual exports.
func (c *CLI) renderCommand() *cobra.Command {
	var typesStr, formatsStr string
	opts := renderOpts{scale: render.DefaultPNGScale}

	cmd := &cobra.Command{
		Use:   "render [LAYOUT]",
		Short: "Export a layout as SVG, PNG, PDF or DOT",
		Long: `Export visual artifacts for a layout.

Two artifact types are available: "board" draws the layout as a grid of
colored tiles, and "support" draws the build plan's support structure as
a Graphviz digraph, with dashed edges for scaffold towers that were
rebuilt later. The support artifact requires a buildable layout.

With --report the layout and plan come from a saved run report instead
of a LAYOUT argument.`,
		Example: `  towerblocks render BYB/BBB
  towerblocks render BYB/YBY/BYB -t support -f svg,dot
  towerblocks render --report run.json -t board,support -f png --scale 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.report == "" && len(args) == 0 {
				return fmt.Errorf("either a LAYOUT argument or --report is required")
			}
			layout := ""
			if len(args) == 1 {
				layout = args[0]
			}
			opts.types = splitList(typesStr, typeBoard)
			opts.formats = splitList(formatsStr, "svg")
			if err := validateTypes(opts.types); err != nil {
				return err
			}
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), layout, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single artifact) or base path (multiple)")
	cmd.Flags().StringVarP(&typesStr, "type", "t", "", "artifact type(s): board (default), support (comma-separated)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show coordinates and build order in support labels")
	cmd.Flags().BoolVar(&opts.scores, "scores", false, "annotate board tiles with their points")
	cmd.Flags().BoolVar(&opts.coords, "coords", false, "show row and column indices on the board")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "raster scale factor for PNG output")
	cmd.Flags().StringVar(&opts.table, "table", engine.DefaultTable, "score table for --scores")
	cmd.Flags().StringVar(&opts.report, "report", "", "render from a saved run report")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

// splitList parses a comma-separated flag value with a default.
func splitList(s, def string) []string {
	if s == "" {
		return []string{def}
	}
	return strings.Split(s, ",")
}

var validFormats = map[string]bool{"svg": true, "png": true, "pdf": true, "dot": true}

func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'svg', 'png', 'pdf', or 'dot')", f)
		}
	}
	return nil
}

func validateTypes(types []string) error {
	for _, t := range types {
		if t != typeBoard && t != typeSupport {
			return fmt.Errorf("invalid type: %s (must be 'board' or 'support')", t)
		}
	}
	return nil
}

// errSkipFormat marks an unsupported type/format combination.
var errSkipFormat = fmt.Errorf("skip unsupported format")

// runRender resolves the layout (and plan if needed) and writes all
// requested artifacts.
func (c *CLI) runRender(ctx context.Context, layout string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	cfg, rows, cols, plan, err := c.resolveSubject(ctx, layout, opts)
	if err != nil {
		return err
	}

	base := renderBasePath(opts.output, layout, opts.report, rows, cols)

	written := 0
	for _, typ := range opts.types {
		for _, format := range opts.formats {
			data, err := c.renderArtifact(cfg, rows, cols, plan, typ, format, opts)
			if errors.Is(err, errSkipFormat) {
				logger.Debugf("Skipping %s/%s (unsupported combination)", typ, format)
				continue
			}
			if err != nil {
				return fmt.Errorf("%s/%s: %w", typ, format, err)
			}

			if opts.output == "-" {
				if _, err := os.Stdout.Write(data); err != nil {
					return err
				}
				written++
				continue
			}

			path := artifactPath(base, typ, format, len(opts.types) > 1)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			printFile(path)
			written++
		}
	}

	if opts.output != "-" {
		prog.done(fmt.Sprintf("Rendered %d file(s)", written))
	}
	return nil
}

// resolveSubject produces the configuration to draw and, when a support
// artifact was requested, its build plan.
func (c *CLI) resolveSubject(ctx context.Context, layout string, opts *renderOpts) (cfg []grid.Tier, rows, cols int, plan grid.Plan, err error) {
	if opts.report != "" {
		rep, err := report.ReadFile(opts.report)
		if err != nil {
			return nil, 0, 0, nil, err
		}
		if err := rep.Verify(); err != nil {
			return nil, 0, 0, nil, fmt.Errorf("report %s: %w", opts.report, err)
		}
		return rep.Config, rep.Rows, rep.Cols, rep.Plan, nil
	}

	cfg, rows, cols, err = grid.ParseConfig(layout)
	if err != nil {
		return nil, 0, 0, nil, err
	}

	if containsType(opts.types, typeSupport) {
		runner, err := c.newRunner(ctx, opts.noCache)
		if err != nil {
			return nil, 0, 0, nil, fmt.Errorf("initialize runner: %w", err)
		}
		defer runner.Close()

		ev, err := runner.Evaluate(ctx, engine.Options{Layout: layout, Logger: c.Logger})
		if err != nil {
			return nil, 0, 0, nil, err
		}
		if !ev.Feasible {
			return nil, 0, 0, nil, fmt.Errorf("layout is not buildable: %s", ev.Reason)
		}
		plan = ev.Plan
	}

	return cfg, rows, cols, plan, nil
}

func containsType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// renderArtifact produces one type/format combination.
func (c *CLI) renderArtifact(cfg []grid.Tier, rows, cols int, plan grid.Plan, typ, format string, opts *renderOpts) ([]byte, error) {
	switch typ {
	case typeBoard:
		if format == "dot" {
			return nil, errSkipFormat // DOT export only makes sense for the support digraph
		}
		var boardOpts []render.BoardOption
		if opts.scores {
			t, err := score.Resolve(opts.table)
			if err != nil {
				return nil, err
			}
			boardOpts = append(boardOpts, render.WithScores(t))
		}
		if opts.coords {
			boardOpts = append(boardOpts, render.WithCoords())
		}
		svg, err := render.BoardSVG(cfg, rows, cols, boardOpts...)
		if err != nil {
			return nil, err
		}
		return convertSVG(svg, format, opts.scale)

	case typeSupport:
		dot, err := render.PlanDOT(rows, cols, cfg, plan, render.DOTOptions{Detailed: opts.detailed})
		if err != nil {
			return nil, err
		}
		if format == "dot" {
			return []byte(dot), nil
		}
		svg, err := render.RenderSVG(dot)
		if err != nil {
			return nil, err
		}
		return convertSVG(svg, format, opts.scale)

	default:
		return nil, fmt.Errorf("unknown artifact type: %s", typ)
	}
}

// convertSVG converts SVG bytes to the requested raster or print format.
func convertSVG(svg []byte, format string, scale float64) ([]byte, error) {
	switch format {
	case "svg":
		return svg, nil
	case "png":
		return render.ToPNG(svg, scale)
	case "pdf":
		return render.ToPDF(svg)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// renderBasePath derives the base output path. Explicit output paths are
// stripped of a known format extension; otherwise the name comes from the
// report file or the layout text.
func renderBasePath(output, layout, reportPath string, rows, cols int) string {
	if output != "" && output != "-" {
		ext := filepath.Ext(output)
		if validFormats[strings.TrimPrefix(ext, ".")] {
			return strings.TrimSuffix(output, ext)
		}
		return output
	}
	if reportPath != "" {
		return strings.TrimSuffix(reportPath, filepath.Ext(reportPath))
	}
	if layout != "" {
		slug := strings.ToLower(strings.NewReplacer("/", "-", ";", "-", " ", "").Replace(layout))
		return slug
	}
	return fmt.Sprintf("board_%dx%d", rows, cols)
}

// artifactPath builds the file name: base.format, or base_type.format when
// several artifact types are rendered together.
func artifactPath(base, typ, format string, multiType bool) string {
	if multiType {
		return fmt.Sprintf("%s_%s.%s", base, typ, format)
	}
	return fmt.Sprintf("%s.%s", base, format)
}
