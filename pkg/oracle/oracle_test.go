package oracle

import (
	"context"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
)

func mustGrid(t *testing.T, s string) *grid.Grid {
	t.Helper()
	cfg, rows, cols, err := grid.ParseConfig(s)
	if err != nil {
		t.Fatalf("ParseConfig(%q) error = %v", s, err)
	}
	g, err := grid.FromConfig(rows, cols, cfg)
	if err != nil {
		t.Fatalf("FromConfig(%q) error = %v", s, err)
	}
	return g
}

func mustAnalyze(t *testing.T, g *grid.Grid) *Analysis {
	t.Helper()
	an, err := Analyze(g)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return an
}

// replay confirms the plan rebuilds the target from an empty board.
func replay(t *testing.T, target *grid.Grid, plan grid.Plan) {
	t.Helper()
	if _, err := plan.Verify(target.Rows(), target.Cols(), target.Config()); err != nil {
		t.Fatalf("plan does not replay to the target: %v\nplan: %s", err, plan)
	}
}

func TestCheckBuildsPlan(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		liveCells int
	}{
		{"single blue", "B", 1},
		{"all blue", "BB;BB", 4},
		{"tier ladder", "RGB", 3},
		{"yellow cross", "BYB;YBY;BYB", 9},
		{"red island", "B.R;..B", 3},
		{"all empty", "..;..", 0},
		{"dense two rows", "BYRYB;RGBGR", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := mustGrid(t, tt.config)
			out, err := Check(context.Background(), target, Options{})
			if err != nil {
				t.Fatalf("Check(%q) error = %v", tt.config, err)
			}
			if out.Builder == "" {
				t.Error("Builder is empty, want the producing stage name")
			}
			if out.Stats.LiveCells != tt.liveCells {
				t.Errorf("Stats.LiveCells = %d, want %d", out.Stats.LiveCells, tt.liveCells)
			}
			replay(t, target, out.Plan)
		})
	}
}

func TestCheckRejections(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		wantCode errors.Code
	}{
		{"yellow in corner", "YB;BB", errors.ErrCodeStructurallyUnreachable},
		{"all yellow 2x2", "YY;YY", errors.ErrCodeStructurallyUnreachable},
		{"red green red", "RGR", errors.ErrCodeCyclicDependency},
		{"adjacent yellow pillars", "BYB;BYB", errors.ErrCodeCyclicDependency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Check(context.Background(), mustGrid(t, tt.config), Options{})
			if err == nil {
				t.Fatalf("Check(%q) accepted an unreachable target with plan %s", tt.config, out.Plan)
			}
			if got := errors.GetCode(err); got != tt.wantCode {
				t.Errorf("error code = %v, want %v", got, tt.wantCode)
			}
			if !errors.IsUnreachable(err) {
				t.Errorf("IsUnreachable(%v) = false, want true", err)
			}
		})
	}
}

func TestCheckDenseFiveByFive(t *testing.T) {
	// Thirteen Yellows fit on a 5x5 board: the odd checkerboard cells plus
	// the center. The graded layout keeps a single Blue support and leans on
	// the Reds and Greens around it; the plain variant parks every support
	// at Blue and needs a speculative promotion to get the peel moving.
	tests := []struct {
		name        string
		config      string
		wantBuilder string
	}{
		{"blue supports", "BYBYB;YBYBY;BYYYB;YBYBY;BYBYB", BuilderReversePeel},
		{"graded supports", "GYGYB;YRYGY;GYYYR;YGYRY;RYRYG", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := mustGrid(t, tt.config)
			out, err := Check(context.Background(), target, Options{})
			if err != nil {
				t.Fatalf("Check(%q) error = %v", tt.config, err)
			}
			if tt.wantBuilder != "" && out.Builder != tt.wantBuilder {
				t.Errorf("Builder = %q, want %q", out.Builder, tt.wantBuilder)
			}
			yellows := 0
			for _, tier := range target.Config() {
				if tier == grid.Yellow {
					yellows++
				}
			}
			if yellows != 13 {
				t.Fatalf("fixture holds %d Yellows, want 13", yellows)
			}
			replay(t, target, out.Plan)
		})
	}
}

func TestCheckNilTarget(t *testing.T) {
	_, err := Check(context.Background(), nil, Options{})
	if err == nil {
		t.Fatal("Check(nil) error = nil, want invalid configuration")
	}
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
	if errors.IsUnreachable(err) {
		t.Error("IsUnreachable reports true for a nil target, want false")
	}
}

func TestCheckDeterministic(t *testing.T) {
	target := mustGrid(t, "BYB;YBY;BYB")

	first, err := Check(context.Background(), target, Options{})
	if err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	second, err := Check(context.Background(), target, Options{})
	if err != nil {
		t.Fatalf("second Check() error = %v", err)
	}
	if first.Builder != second.Builder {
		t.Errorf("builders differ: %q vs %q", first.Builder, second.Builder)
	}
	if !reflect.DeepEqual(first.Plan, second.Plan) {
		t.Errorf("plans differ:\n%s\n%s", first.Plan, second.Plan)
	}
}

func TestCheckStopsAtFirstWorkingBuilder(t *testing.T) {
	out, err := Check(context.Background(), mustGrid(t, "BYB;BBB"), Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if out.Builder != BuilderWaves {
		t.Errorf("Builder = %q, want %q", out.Builder, BuilderWaves)
	}
	if out.Stats.StatesExplored != 0 {
		t.Errorf("StatesExplored = %d, want 0 when no exhaustive search ran", out.Stats.StatesExplored)
	}
}

func TestCheckCrossUsesReversePeel(t *testing.T) {
	out, err := Check(context.Background(), mustGrid(t, "BYB;YBY;BYB"), Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if out.Builder != BuilderReversePeel {
		t.Errorf("Builder = %q, want %q", out.Builder, BuilderReversePeel)
	}
	if out.Stats.StatesExplored != 0 {
		t.Errorf("StatesExplored = %d, want 0 when no exhaustive search ran", out.Stats.StatesExplored)
	}
}

// A yellow target in a corner can never have three distinct supporting
// neighbors, whatever the rest of the board holds.
func TestCheckCornerYellowAlwaysRejected(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 100; trial++ {
		cfg := make([]grid.Tier, 16)
		for i := range cfg {
			cfg[i] = grid.Tier(r.Intn(5))
		}
		cfg[0] = grid.Yellow
		target, err := grid.FromConfig(4, 4, cfg)
		if err != nil {
			t.Fatalf("FromConfig() error = %v", err)
		}
		_, err = Check(context.Background(), target, Options{})
		if !errors.Is(err, errors.ErrCodeStructurallyUnreachable) {
			t.Fatalf("trial %d: error = %v, want %v for\n%s",
				trial, err, errors.ErrCodeStructurallyUnreachable, target)
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.MaxExhaustiveCells != DefaultMaxExhaustiveCells {
		t.Errorf("MaxExhaustiveCells = %d, want %d", opts.MaxExhaustiveCells, DefaultMaxExhaustiveCells)
	}
	if opts.ExhaustiveStateCap != DefaultExhaustiveStateCap {
		t.Errorf("ExhaustiveStateCap = %d, want %d", opts.ExhaustiveStateCap, DefaultExhaustiveStateCap)
	}
	if opts.Logger == nil {
		t.Error("Logger is nil after validation, want a discard logger")
	}

	clamped := Options{MaxExhaustiveCells: 99}
	if err := clamped.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if clamped.MaxExhaustiveCells != hardExhaustiveCellLimit {
		t.Errorf("MaxExhaustiveCells = %d, want clamp to %d", clamped.MaxExhaustiveCells, hardExhaustiveCellLimit)
	}

	disabled := Options{MaxExhaustiveCells: -1}
	if err := disabled.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if disabled.MaxExhaustiveCells != 0 {
		t.Errorf("MaxExhaustiveCells = %d, want 0 for a negative input", disabled.MaxExhaustiveCells)
	}

	// Idempotent: a second call leaves validated options untouched.
	before := opts
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second ValidateAndSetDefaults() error = %v", err)
	}
	if opts != before {
		t.Errorf("options changed on revalidation: %+v vs %+v", opts, before)
	}
}

func TestBuildTrajectoryLadder(t *testing.T) {
	target := mustGrid(t, "RGB")
	plan, ok := buildTrajectory(target, mustAnalyze(t, target))
	if !ok {
		t.Fatal("buildTrajectory() ok = false, want a plan")
	}
	// Floor first, then finalization in analysis order; the blue cell
	// needs no second move.
	want := "blue@(0,0) blue@(0,1) blue@(0,2) red@(0,0) green@(0,1)"
	if got := plan.String(); got != want {
		t.Errorf("plan = %s, want %s", got, want)
	}
}

func TestBuildTrajectoryCrossFallsThrough(t *testing.T) {
	// With two cross arms already pinned at yellow, a corner next to the
	// third arm has only busy or finalized neighbors left, so its transient
	// red can no longer be raised. The pipeline hands the cross to the
	// reverse peeler.
	target := mustGrid(t, "BYB;YBY;BYB")
	if _, ok := buildTrajectory(target, mustAnalyze(t, target)); ok {
		t.Fatal("buildTrajectory() ok = true, want fall-through on the cross")
	}
}

func TestBuildTrajectoryDenseRows(t *testing.T) {
	target := mustGrid(t, "BYRYB;RGBGR")
	plan, ok := buildTrajectory(target, mustAnalyze(t, target))
	if !ok {
		t.Fatal("buildTrajectory() ok = false, want a plan")
	}
	replay(t, target, plan)
}

func TestBuildReversePeel(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"tier ladder", "RGB"},
		{"single red", "BRB"},
		// The cross stalls safe reductions and is only solved through a
		// speculative green promotion next to a stuck yellow.
		{"yellow cross", "BYB;YBY;BYB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := mustGrid(t, tt.config)
			plan, ok := buildReversePeel(target, mustAnalyze(t, target))
			if !ok {
				t.Fatal("buildReversePeel() ok = false, want a plan")
			}
			replay(t, target, plan)
		})
	}
}

// Disjoint crosses are buildable one by one, but each defeats the wave
// builder and costs the reverse peeler one speculative trial, so enough of
// them drain its trial budget. The board is also far past the exhaustive
// cell limit. The pipeline then has to give up, and the give-up must be
// distinguishable from a proof of unreachability.
func TestCheckGiveUpReportsUndecided(t *testing.T) {
	n := speculativeTrialBudget + 7
	tile := func(s string) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = s
		}
		return strings.Join(parts, ".")
	}
	layout := tile("BYB") + ";" + tile("YBY") + ";" + tile("BYB")

	_, err := Check(context.Background(), mustGrid(t, layout), Options{})
	if err == nil {
		t.Fatal("Check() error = nil, want an undecided give-up")
	}
	if got := errors.GetCode(err); got != errors.ErrCodeUndecided {
		t.Errorf("error code = %v, want %v", got, errors.ErrCodeUndecided)
	}
	if !errors.IsUnreachable(err) {
		t.Errorf("IsUnreachable(%v) = false, want true so callers still reject the candidate", err)
	}
}
