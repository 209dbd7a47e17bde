package engine

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/cache"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/search"
)

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.NewWithOptions(io.Discard, log.Options{}))
}

// seedBestKnown plants a valid floor report for a 1x2 towerbloxx board and
// returns it alongside its cache key.
func seedBestKnown(t *testing.T, c cache.Cache, keyer cache.Keyer) (*report.Report, string) {
	t.Helper()

	p := search.Problem{Rows: 1, Cols: 2, Table: score.TowerBloxx}
	res, err := (&search.Trivial{}).Optimize(context.Background(), p)
	if err != nil {
		t.Fatalf("floor run: %v", err)
	}
	rep := report.New(p, search.ModeHeuristic, 42, res)

	var buf bytes.Buffer
	if err := rep.Write(&buf); err != nil {
		t.Fatalf("write report: %v", err)
	}
	key := keyer.BestKnownKey(1, 2, score.TowerBloxx.Key())
	if err := c.Set(context.Background(), key, buf.Bytes(), 0); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	return rep, key
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)

	if _, ok := r.Cache.(*cache.NullCache); !ok {
		t.Errorf("nil cache should default to NullCache, got %T", r.Cache)
	}
	if r.Keyer == nil {
		t.Error("nil keyer should default to DefaultKeyer")
	}
	if r.Logger == nil {
		t.Error("nil logger should be defaulted")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
}

func TestRunnerEvaluateCaching(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	r := quietRunner(mem)
	defer r.Close()

	ev1, hit, err := r.EvaluateWithCacheInfo(ctx, Options{Layout: "BYB/BBB"})
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if hit {
		t.Error("first evaluation should miss")
	}
	if !ev1.Feasible || ev1.Score != 9 {
		t.Fatalf("BYB/BBB = feasible %v score %d, want true 9", ev1.Feasible, ev1.Score)
	}
	if mem.Len() != 1 {
		t.Errorf("feasible verdict should be cached, Len = %d", mem.Len())
	}

	ev2, hit, err := r.EvaluateWithCacheInfo(ctx, Options{Layout: "BYB/BBB"})
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if !hit {
		t.Error("second evaluation should hit")
	}
	if !ev2.Feasible || ev2.Score != ev1.Score {
		t.Errorf("cached verdict differs: feasible %v score %d", ev2.Feasible, ev2.Score)
	}
	if _, err := ev2.Plan.Verify(ev2.Rows, ev2.Cols, ev2.Config); err != nil {
		t.Errorf("cached plan does not replay: %v", err)
	}

	// Refresh bypasses the cached entry
	if _, hit, err = r.EvaluateWithCacheInfo(ctx, Options{Layout: "BYB/BBB", Refresh: true}); err != nil || hit {
		t.Errorf("refresh should recompute: hit=%v err=%v", hit, err)
	}
}

func TestRunnerEvaluateServesEveryTable(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(cache.NewMemoryCache())
	defer r.Close()

	if _, _, err := r.EvaluateWithCacheInfo(ctx, Options{Layout: "BYB/BBB"}); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	// Feasibility does not depend on the table, so the same entry serves a
	// different one with its score recomputed.
	ev, hit, err := r.EvaluateWithCacheInfo(ctx, Options{Layout: "BYB/BBB", Table: "simple"})
	if err != nil {
		t.Fatalf("evaluate with simple table: %v", err)
	}
	if !hit {
		t.Error("different table should still hit the shared verdict")
	}
	if ev.Score != 6 {
		t.Errorf("simple score = %d, want 6", ev.Score)
	}
}

func TestRunnerOptimizeCachesBestKnown(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	r := quietRunner(mem)
	defer r.Close()

	rep1, hit, err := r.OptimizeWithCacheInfo(ctx, Options{Rows: 1, Cols: 2})
	if err != nil {
		t.Fatalf("first optimize: %v", err)
	}
	if hit {
		t.Error("first optimize should miss")
	}
	if rep1.Score != 3 || !rep1.Optimal {
		t.Fatalf("1x2 = score %d optimal %v, want 3 true", rep1.Score, rep1.Optimal)
	}
	if mem.Len() != 1 {
		t.Errorf("best-known should be cached, Len = %d", mem.Len())
	}

	rep2, hit, err := r.OptimizeWithCacheInfo(ctx, Options{Rows: 1, Cols: 2})
	if err != nil {
		t.Fatalf("second optimize: %v", err)
	}
	if !hit {
		t.Error("second optimize should hit")
	}
	// The cached report is served verbatim, run identity included.
	if rep2.RunID != rep1.RunID {
		t.Errorf("RunID = %s, want cached %s", rep2.RunID, rep1.RunID)
	}
	if err := rep2.Verify(); err != nil {
		t.Errorf("served report does not verify: %v", err)
	}
}

func TestRunnerOptimizeExactUpgradesHeuristicEntry(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	r := quietRunner(mem)
	defer r.Close()

	floor, _ := seedBestKnown(t, mem, r.Keyer)
	if floor.Score != 2 || floor.Optimal {
		t.Fatalf("seed should be the non-optimal floor, got score %d optimal %v", floor.Score, floor.Optimal)
	}

	// A heuristic request is happy with any valid best-known entry.
	rep, hit, err := r.OptimizeWithCacheInfo(ctx, Options{Rows: 1, Cols: 2, Mode: "heuristic"})
	if err != nil {
		t.Fatalf("heuristic optimize: %v", err)
	}
	if !hit || rep.Score != 2 {
		t.Errorf("heuristic request should serve the floor entry: hit=%v score=%d", hit, rep.Score)
	}

	// An exact request must not settle for a heuristic entry.
	rep, hit, err = r.OptimizeWithCacheInfo(ctx, Options{Rows: 1, Cols: 2, Mode: "exact"})
	if err != nil {
		t.Fatalf("exact optimize: %v", err)
	}
	if hit {
		t.Error("exact request should rerun on a non-optimal entry")
	}
	if rep.Score != 3 || !rep.Optimal {
		t.Errorf("exact run = score %d optimal %v, want 3 true", rep.Score, rep.Optimal)
	}

	// The strictly better result replaced the floor.
	rep, hit, err = r.OptimizeWithCacheInfo(ctx, Options{Rows: 1, Cols: 2, Mode: "heuristic"})
	if err != nil {
		t.Fatalf("third optimize: %v", err)
	}
	if !hit || rep.Score != 3 || !rep.Optimal {
		t.Errorf("upgraded entry should be served: hit=%v score=%d optimal=%v", hit, rep.Score, rep.Optimal)
	}
}

func TestRunnerOptimizeDiscardsTamperedEntry(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	r := quietRunner(mem)
	defer r.Close()

	// Rewrite the seeded entry with an inflated score. Replay still passes,
	// so only the score recomputation can catch it.
	rep, key := seedBestKnown(t, mem, r.Keyer)
	rep.Score = 99
	var buf bytes.Buffer
	if err := rep.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set(ctx, key, buf.Bytes(), 0); err != nil {
		t.Fatal(err)
	}

	fresh, hit, err := r.OptimizeWithCacheInfo(ctx, Options{Rows: 1, Cols: 2})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if hit {
		t.Error("tampered entry must not be served")
	}
	if fresh.Score != 3 || !fresh.Optimal {
		t.Errorf("fresh run = score %d optimal %v, want 3 true", fresh.Score, fresh.Optimal)
	}

	// The recomputed report overwrote the tampered entry.
	data, ok, err := mem.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("cache should hold the fresh entry: ok=%v err=%v", ok, err)
	}
	stored, err := report.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read stored report: %v", err)
	}
	if stored.Score != 3 {
		t.Errorf("stored score = %d, want 3", stored.Score)
	}
}

type cacheHookRecorder struct {
	observability.NoopCacheHooks
	hits, misses, sets int
	lastType           string
}

func (r *cacheHookRecorder) OnCacheHit(_ context.Context, keyType string) {
	r.hits++
	r.lastType = keyType
}

func (r *cacheHookRecorder) OnCacheMiss(_ context.Context, keyType string) {
	r.misses++
	r.lastType = keyType
}

func (r *cacheHookRecorder) OnCacheSet(_ context.Context, keyType string, _ int) {
	r.sets++
	r.lastType = keyType
}

func TestRunnerFiresCacheHooks(t *testing.T) {
	rec := &cacheHookRecorder{}
	observability.SetCacheHooks(rec)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	r := quietRunner(cache.NewMemoryCache())
	defer r.Close()

	if _, _, err := r.EvaluateWithCacheInfo(ctx, Options{Layout: "BYB/BBB"}); err != nil {
		t.Fatal(err)
	}
	if rec.misses != 1 || rec.sets != 1 || rec.hits != 0 {
		t.Errorf("after first call: misses=%d sets=%d hits=%d, want 1 1 0", rec.misses, rec.sets, rec.hits)
	}

	if _, _, err := r.EvaluateWithCacheInfo(ctx, Options{Layout: "BYB/BBB"}); err != nil {
		t.Fatal(err)
	}
	if rec.hits != 1 {
		t.Errorf("second call should record a hit, got %d", rec.hits)
	}
	if rec.lastType != cache.KeyTypeEvaluation {
		t.Errorf("keyType = %s, want %s", rec.lastType, cache.KeyTypeEvaluation)
	}
}

func TestEvaluationDecided(t *testing.T) {
	tests := []struct {
		name string
		ev   Evaluation
		want bool
	}{
		{"feasible", Evaluation{Feasible: true}, true},
		{"proven unreachable", Evaluation{Code: string(errors.ErrCodeUnreachable)}, true},
		{"structural", Evaluation{Code: string(errors.ErrCodeStructurallyUnreachable)}, true},
		{"cyclic", Evaluation{Code: string(errors.ErrCodeCyclicDependency)}, true},
		// A give-up could flip under a larger exhaustive budget, so it must
		// never be cached as a verdict.
		{"undecided give-up", Evaluation{Code: string(errors.ErrCodeUndecided)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.decided(); got != tt.want {
				t.Errorf("decided() = %v, want %v", got, tt.want)
			}
		})
	}
}
