// Package report packages optimization outcomes for logs, files and
// downstream tooling.
//
// A Report freezes everything needed to audit one run: the board, the
// score table identity, the search mode and seed, the winning
// configuration with its build plan, and the run counters. Reports
// round-trip through JSON and can re-verify their own plan, so a stored
// report is never trusted blindly.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/search"
)

// Report is the durable record of one optimization run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// CreatedAt is when the report was assembled, in UTC.
	CreatedAt time.Time `json:"created_at"`

	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// Table is the score table's name, TableKey its canonical point
	// encoding. Together they identify the objective.
	Table    string `json:"table"`
	TableKey string `json:"table_key"`

	// Mode is the concrete strategy that ran, after auto resolution.
	Mode string `json:"mode"`

	// Seed reproduces heuristic runs. Zero for exact ones.
	Seed int64 `json:"seed"`

	// Config is the best configuration found, row-major; Layout is the
	// same configuration in compact text form.
	Config []grid.Tier `json:"config"`
	Layout string      `json:"layout"`

	Score   int  `json:"score"`
	Optimal bool `json:"optimal"`

	// Plan builds Config from an empty board.
	Plan grid.Plan `json:"plan"`

	Trials       int           `json:"trials"`
	Improvements int           `json:"improvements"`
	Duration     time.Duration `json:"duration_ns"`
}

// New assembles a report from a finished run.
func New(p search.Problem, mode search.Mode, seed int64, res *search.Result) *Report {
	return &Report{
		RunID:        uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Rows:         p.Rows,
		Cols:         p.Cols,
		Table:        p.Table.Name,
		TableKey:     p.Table.Key(),
		Mode:         string(mode),
		Seed:         seed,
		Config:       res.Config,
		Layout:       grid.FormatConfig(res.Config, p.Rows, p.Cols),
		Score:        res.Score,
		Optimal:      res.Optimal,
		Plan:         res.Plan,
		Trials:       res.Trials,
		Improvements: res.Improvements,
		Duration:     res.BudgetUsed,
	}
}

// Verify checks the report's internal consistency: dimensions, the
// layout rendering, and that the plan actually rebuilds the
// configuration. Reports loaded from storage go through Verify before
// anything trusts them.
func (r *Report) Verify() error {
	if r.Rows < 1 || r.Cols < 1 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"report board must be at least 1x1, got %dx%d", r.Rows, r.Cols)
	}
	if len(r.Config) != r.Rows*r.Cols {
		return errors.New(errors.ErrCodeInvalidConfig,
			"report configuration has %d cells, want %d", len(r.Config), r.Rows*r.Cols)
	}
	if r.Layout != grid.FormatConfig(r.Config, r.Rows, r.Cols) {
		return errors.New(errors.ErrCodeInvalidConfig,
			"report layout %q does not match its configuration", r.Layout)
	}
	if _, err := r.Plan.Verify(r.Rows, r.Cols, r.Config); err != nil {
		return err
	}
	return nil
}

// Write encodes the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode report")
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "write report")
	}
	return nil
}

// Read decodes one report. The result is structurally validated but the
// plan is not replayed; call [Report.Verify] before trusting it.
func Read(rd io.Reader) (*Report, error) {
	var r Report
	dec := json.NewDecoder(rd)
	if err := dec.Decode(&r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode report")
	}
	if r.Rows < 1 || r.Cols < 1 || len(r.Config) != r.Rows*r.Cols {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"report dimensions %dx%d do not fit %d cells", r.Rows, r.Cols, len(r.Config))
	}
	return &r, nil
}

// WriteFile writes the report to path.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "create report file")
	}
	if err := r.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "close report file")
	}
	return nil
}

// ReadFile reads a report from path.
func ReadFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "open report file")
	}
	defer f.Close()
	return Read(f)
}

// Summary renders a compact human-readable account for logs and CLI
// output.
func (r *Report) Summary() string {
	verdict := "best known"
	if r.Optimal {
		verdict = "proven optimal"
	}
	id := r.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %dx%d board, table %s (%s)\n", id, r.Rows, r.Cols, r.Table, r.TableKey)
	fmt.Fprintf(&b, "score %d (%s) via %s search", r.Score, verdict, r.Mode)
	if r.Mode == string(search.ModeHeuristic) {
		fmt.Fprintf(&b, ", seed %d", r.Seed)
	}
	fmt.Fprintf(&b, "\n%d trials, %d improvements, %s\n", r.Trials, r.Improvements, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "layout %s, plan %d moves", r.Layout, len(r.Plan))
	return b.String()
}
