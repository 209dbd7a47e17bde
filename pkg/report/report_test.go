package report

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/search"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	p := search.Problem{Rows: 2, Cols: 2, Table: score.TowerBloxx}
	res, err := search.Trivial{}.Optimize(context.Background(), p)
	if err != nil {
		t.Fatalf("building sample result: %v", err)
	}
	return New(p, search.ModeHeuristic, 42, res)
}

func TestNewFillsMetadata(t *testing.T) {
	rep := sampleReport(t)
	if _, err := uuid.Parse(rep.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", rep.RunID, err)
	}
	if rep.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
	if rep.Table != "towerbloxx" || rep.TableKey != "b1.r2.g3.y4" {
		t.Errorf("table identity = %s/%s, want towerbloxx/b1.r2.g3.y4", rep.Table, rep.TableKey)
	}
	if rep.Layout != "BB/BB" {
		t.Errorf("Layout = %q, want BB/BB", rep.Layout)
	}
	if err := rep.Verify(); err != nil {
		t.Errorf("Verify() returned %v", err)
	}
}

func TestReportRoundTrip(t *testing.T) {
	rep := sampleReport(t)
	var buf bytes.Buffer
	if err := rep.Write(&buf); err != nil {
		t.Fatalf("Write() returned %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() returned %v", err)
	}
	if got.RunID != rep.RunID || got.Score != rep.Score || got.Layout != rep.Layout {
		t.Errorf("round trip changed identity fields: %+v", got)
	}
	if !got.CreatedAt.Equal(rep.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rep.CreatedAt)
	}
	if !reflect.DeepEqual(got.Config, rep.Config) {
		t.Error("round trip changed the configuration")
	}
	if !reflect.DeepEqual(got.Plan, rep.Plan) {
		t.Error("round trip changed the plan")
	}
	if err := got.Verify(); err != nil {
		t.Errorf("Verify() after round trip returned %v", err)
	}
}

func TestReportFileRoundTrip(t *testing.T) {
	rep := sampleReport(t)
	path := filepath.Join(t.TempDir(), "run.json")
	if err := rep.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() returned %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() returned %v", err)
	}
	if got.RunID != rep.RunID {
		t.Errorf("RunID = %q, want %q", got.RunID, rep.RunID)
	}
}

func TestVerifyCatchesTampering(t *testing.T) {
	rep := sampleReport(t)
	rep.Config[0] = grid.Red
	rep.Layout = grid.FormatConfig(rep.Config, rep.Rows, rep.Cols)
	err := rep.Verify()
	if !errors.Is(err, errors.ErrCodeInvalidPlan) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidPlan)
	}
}

func TestVerifyCatchesLayoutDrift(t *testing.T) {
	rep := sampleReport(t)
	rep.Layout = "RR/RR"
	err := rep.Verify()
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}

func TestReadRejectsBadInput(t *testing.T) {
	if _, err := Read(strings.NewReader("{")); !errors.Is(err, errors.ErrCodeStore) {
		t.Errorf("truncated JSON: error code = %v, want %v", errors.GetCode(err), errors.ErrCodeStore)
	}
	if _, err := Read(strings.NewReader(`{"rows":0,"cols":2}`)); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("zero rows: error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}

func TestSummary(t *testing.T) {
	rep := sampleReport(t)
	s := rep.Summary()
	for _, want := range []string{"2x2", "towerbloxx", "best known", "seed 42", "layout BB/BB"} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary() missing %q:\n%s", want, s)
		}
	}

	rep.Optimal = true
	rep.Mode = string(search.ModeExact)
	s = rep.Summary()
	if !strings.Contains(s, "proven optimal") {
		t.Errorf("Summary() missing proven optimal verdict:\n%s", s)
	}
	if strings.Contains(s, "seed") {
		t.Errorf("Summary() mentions a seed for exact search:\n%s", s)
	}
}
