package engine

import (
	"context"
	"testing"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/search"
)

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Rows: 2, Cols: 3}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Valid options should pass: %v", err)
	}

	// Check defaults were set
	if opts.Table != DefaultTable {
		t.Errorf("Table should be %s, got %s", DefaultTable, opts.Table)
	}
	if opts.Mode != DefaultMode {
		t.Errorf("Mode should be %s, got %s", DefaultMode, opts.Mode)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("Seed should be %d, got %d", DefaultSeed, opts.Seed)
	}
	if opts.MaxTrials != DefaultMaxTrials {
		t.Errorf("MaxTrials should be %d, got %d", DefaultMaxTrials, opts.MaxTrials)
	}
	if opts.MaxNodes != DefaultMaxNodes {
		t.Errorf("MaxNodes should be %d, got %d", DefaultMaxNodes, opts.MaxNodes)
	}
	if opts.ExactCells != DefaultExactCells {
		t.Errorf("ExactCells should be %d, got %d", DefaultExactCells, opts.ExactCells)
	}
	if opts.ScoreTable().Name != "towerbloxx" {
		t.Errorf("table should resolve to towerbloxx, got %s", opts.ScoreTable().Name)
	}
	if opts.Logger == nil {
		t.Error("Logger should be defaulted")
	}
	if opts.Cells() != 6 {
		t.Errorf("Cells should be 6, got %d", opts.Cells())
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Rows: 2, Cols: 2, Seed: 7}

	// First call
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}

	originalSeed := opts.Seed
	originalMode := opts.Mode

	// Second call should be idempotent
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}

	if opts.Seed != originalSeed {
		t.Error("Seed changed on second call")
	}
	if opts.Mode != originalMode {
		t.Error("Mode changed on second call")
	}
}

func TestOptionsValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"zero rows", Options{Rows: 0, Cols: 3}, errors.ErrCodeInvalidConfig},
		{"negative cols", Options{Rows: 3, Cols: -1}, errors.ErrCodeInvalidConfig},
		{"unknown table", Options{Rows: 2, Cols: 2, Table: "platinum"}, errors.ErrCodeInvalidTable},
		{"unknown mode", Options{Rows: 2, Cols: 2, Mode: "simulated"}, errors.ErrCodeInvalidMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("error code = %v, want %v", errors.GetCode(err), tt.code)
			}
		})
	}
}

func TestValidateMode(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr bool
	}{
		{"auto", false},
		{"exact", false},
		{"heuristic", false},
		{"EXACT", false}, // normalized
		{"", false},      // empty resolves to auto
		{"optimal", true},
		{"annealing", true},
	}

	for _, tt := range tests {
		err := ValidateMode(tt.mode)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateMode(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
		}
	}
}

func TestOptionsEffectiveMode(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want search.Mode
	}{
		{"auto small board", Options{Rows: 3, Cols: 4, Mode: "auto"}, search.ModeExact},
		{"auto large board", Options{Rows: 4, Cols: 4, Mode: "auto"}, search.ModeHeuristic},
		{"auto custom limit", Options{Rows: 2, Cols: 4, Mode: "auto", ExactCells: 6}, search.ModeHeuristic},
		{"explicit heuristic stays", Options{Rows: 2, Cols: 2, Mode: "heuristic"}, search.ModeHeuristic},
		{"explicit exact stays", Options{Rows: 9, Cols: 9, Mode: "exact"}, search.ModeExact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			if got := tt.opts.EffectiveMode(); got != tt.want {
				t.Errorf("EffectiveMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionsOptimizerSelection(t *testing.T) {
	exact := Options{Rows: 2, Cols: 2, Mode: "exact"}
	if err := exact.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if _, ok := exact.optimizer().(*search.Exact); !ok {
		t.Errorf("exact mode should build *search.Exact, got %T", exact.optimizer())
	}

	anneal := Options{Rows: 5, Cols: 5, Mode: "heuristic"}
	if err := anneal.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if _, ok := anneal.optimizer().(*search.Annealer); !ok {
		t.Errorf("heuristic mode should build *search.Annealer, got %T", anneal.optimizer())
	}

	climb := Options{Rows: 5, Cols: 5, Mode: "heuristic", Table: "yellowonly"}
	if err := climb.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if _, ok := climb.optimizer().(*search.YellowClimber); !ok {
		t.Errorf("yellow-only heuristic should build *search.YellowClimber, got %T", climb.optimizer())
	}
}

func TestOptionsValidateForEvaluate(t *testing.T) {
	// Dimensions inferred from the layout
	opts := Options{Layout: "BYB/YBY/BYB"}
	if err := opts.ValidateForEvaluate(); err != nil {
		t.Fatalf("valid layout should pass: %v", err)
	}
	if opts.Rows != 3 || opts.Cols != 3 {
		t.Errorf("dims = %dx%d, want 3x3", opts.Rows, opts.Cols)
	}

	// Explicit dimensions must agree with the layout
	opts = Options{Rows: 2, Cols: 3, Layout: "BYB/YBY/BYB"}
	if err := opts.ValidateForEvaluate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("dimension mismatch should fail with invalid config, got %v", err)
	}

	// Layout is required
	opts = Options{Rows: 2, Cols: 2}
	if err := opts.ValidateForEvaluate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("missing layout should fail with invalid config, got %v", err)
	}

	// Garbage layouts are rejected by the parser
	opts = Options{Layout: "BXB/BBB"}
	if err := opts.ValidateForEvaluate(); err == nil {
		t.Error("unknown tier letter should fail")
	}
}

func TestEvaluateFeasible(t *testing.T) {
	// The Yellow at (0,1) has three neighbors. Scaffolding raises Red and
	// Green on two of them transiently; after the Yellow lands they are
	// demoted back to their Blue targets.
	ev, err := Evaluate(context.Background(), Options{Layout: "BYB/BBB"})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}

	if !ev.Feasible {
		t.Fatalf("BYB/BBB should be feasible: %s", ev.Reason)
	}
	if ev.Score != 9 {
		t.Errorf("Score = %d, want 9", ev.Score)
	}
	if ev.Builder == "" {
		t.Error("feasible evaluation should name its builder")
	}
	if _, err := ev.Plan.Verify(ev.Rows, ev.Cols, ev.Config); err != nil {
		t.Errorf("returned plan does not replay: %v", err)
	}
}

func TestEvaluateStructuralReject(t *testing.T) {
	// Yellow needs three distinct supports; the end of a 1x3 strip has one
	// neighbor.
	ev, err := Evaluate(context.Background(), Options{Layout: "YBB"})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}

	if ev.Feasible {
		t.Fatal("corner Yellow on a strip should be infeasible")
	}
	if ev.Code != string(errors.ErrCodeStructurallyUnreachable) {
		t.Errorf("Code = %s, want %s", ev.Code, errors.ErrCodeStructurallyUnreachable)
	}
	if ev.Reason == "" {
		t.Error("rejection should carry a reason")
	}
	if len(ev.Plan) != 0 {
		t.Error("infeasible evaluation should not carry a plan")
	}
	// The would-be score is still reported
	if ev.Score != 6 {
		t.Errorf("Score = %d, want 6", ev.Score)
	}
}

func TestEvaluateCyclicReject(t *testing.T) {
	// Each Yellow is the other's only third neighbor, and a finished
	// Yellow cannot stand in for the Blue, Red, or Green it would need.
	// Both pass the per-cell degree screen; only order analysis rejects.
	ev, err := Evaluate(context.Background(), Options{Layout: "BYB/BYB"})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}

	if ev.Feasible {
		t.Fatal("adjacent Yellow pair should be infeasible")
	}
	if ev.Code != string(errors.ErrCodeCyclicDependency) {
		t.Errorf("Code = %s, want %s", ev.Code, errors.ErrCodeCyclicDependency)
	}
}

func TestOptimizeSmallBoardExact(t *testing.T) {
	rep, err := Optimize(context.Background(), Options{Rows: 1, Cols: 2})
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}

	// Two cells, auto mode: solved exactly. A Red supported by its Blue
	// neighbor beats two Blues.
	if rep.Score != 3 {
		t.Errorf("Score = %d, want 3", rep.Score)
	}
	if !rep.Optimal {
		t.Error("1x2 should be proven optimal")
	}
	if rep.Mode != string(search.ModeExact) {
		t.Errorf("Mode = %s, want exact", rep.Mode)
	}
	if rep.Seed != 0 {
		t.Errorf("exact runs should record seed 0, got %d", rep.Seed)
	}
	if rep.Layout != "RB" {
		t.Errorf("Layout = %s, want RB", rep.Layout)
	}
	if err := rep.Verify(); err != nil {
		t.Errorf("report does not verify: %v", err)
	}
}

func TestOptimizeYellowOnlyClimber(t *testing.T) {
	rep, err := Optimize(context.Background(), Options{
		Rows:  3,
		Cols:  3,
		Table: "yellowonly",
		Mode:  "heuristic",
	})
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}

	// The climber finds the four-Yellow cross and reports it best known.
	if rep.Score != 4 {
		t.Errorf("Score = %d, want 4", rep.Score)
	}
	if rep.Optimal {
		t.Error("climber results are best known, never proven optimal")
	}
	if rep.Layout != "BYB/YBY/BYB" {
		t.Errorf("Layout = %s, want BYB/YBY/BYB", rep.Layout)
	}
}
