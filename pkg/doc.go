// Package pkg provides the core libraries for TowerBlocks layout optimization.
//
// # Overview
//
// TowerBlocks decides which Tower Bloxx city layouts can actually be built
// and searches boards for the highest-scoring buildable layout. The pkg
// directory is organized into five main areas:
//
//  1. [grid], [score] - Domain model (tiers, boards, build plans, score tables)
//  2. [oracle] - Feasibility analysis (is a layout buildable, and how)
//  3. [search], [engine] - Optimization (exact, annealing, yellow climber)
//  4. [cache], [archive], [report] - Persistence (result cache, run archive)
//  5. [render] - Visualization (board SVG, support digraph via Graphviz)
//
// # Architecture
//
// The typical data flow through TowerBlocks:
//
//	Layout text or board size
//	         ↓
//	    [grid] package (tiers, boards, moves)
//	         ↓
//	    [oracle] package (feasibility verdict + build plan)
//	         ↓
//	    [search] package (optimizer picks candidate layouts)
//	         ↓
//	    [engine] package (evaluate / optimize facade + cached Runner)
//	         ↓
//	    reports, archive entries, SVG/PNG/PDF/DOT artifacts
//
// # Quick Start
//
// Search a board for its best layout:
//
//	import (
//	    "context"
//	    "github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine"
//	    "github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/render"
//	)
//
//	// 1. Optimize a 4x4 board under the classic score table
//	runner := engine.NewRunner(nil, nil, nil)
//	rep, _ := runner.Optimize(context.Background(), engine.Options{
//	    Rows:  4,
//	    Cols:  4,
//	    Table: "towerbloxx",
//	})
//
//	// 2. Render the winning layout
//	svg, _ := render.BoardSVG(rep.Config, rep.Rows, rep.Cols)
//
// Judge a single layout:
//
//	ev, _ := engine.Evaluate(context.Background(), engine.Options{
//	    Layout: "BYB/YBY/BYB",
//	})
//	fmt.Println(ev.Feasible, ev.Score)
//
// # Main Packages
//
// ## Domain Model
//
// [grid] - Tiers (Blue < Red < Green < Yellow), rectangular boards, the
// placement predicate, and build plans with replay verification. Everything
// else is expressed in these types.
//
// [score] - Score tables: built-in variants (towerbloxx, simple,
// yellowonly) plus custom tables loaded from TOML files.
//
// ## Feasibility
//
// [oracle] - The feasibility pipeline: structural screening, finalization
// analysis, scaffold waves, reverse peeling, and a bounded exhaustive
// search for the small stubborn cases. Produces verified build plans.
//
// ## Optimization
//
// [search] - Optimizers over the layout space: exhaustive branch and bound
// for small boards, simulated annealing with parallel restarts, and a
// dedicated climber for yellow-only tables.
//
// [engine] - Evaluate and optimize facade shared by CLI and HTTP API, plus
// the caching [engine.Runner].
//
// ## Persistence
//
// [report] - Run reports: JSON serialization, file round-trips, and replay
// verification of archived plans.
//
// [cache] - Result cache with file, redis, memory, and null backends
// behind one interface. Evaluations and best-known results are cached
// separately.
//
// [archive] - Long-term run archive with file, mongo, and memory backends.
// Serves the best-known lookup.
//
// ## Visualization
//
// [render] - Board SVG rendering and the support digraph of a build plan
// (DOT, or SVG via Graphviz; PNG/PDF through rsvg-convert).
//
// ## Support
//
// [errors] - Structured errors with machine-readable codes shared across
// CLI and API.
//
// [observability] - Pluggable hooks for search progress, cache traffic,
// and HTTP requests.
//
// [buildinfo] - Version information injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/oracle/...   # Specific package
//	go test -run Example       # Examples only
//
// [grid]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid
// [score]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score
// [oracle]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/oracle
// [search]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/search
// [engine]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine
// [report]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report
// [cache]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/cache
// [archive]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/archive
// [render]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/render
// [errors]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors
// [observability]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/buildinfo
package pkg
