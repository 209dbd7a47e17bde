package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/score"
)

// evaluateResponse is an evaluation plus cache provenance.
type evaluateResponse struct {
	*engine.Evaluation
	Cached bool `json:"cached"`
}

// optimizeResponse is a run report plus cache provenance.
type optimizeResponse struct {
	*report.Report
	Cached bool `json:"cached"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// guardTable restricts a request's score table to named variants. A table
// naming a file would let the request read server-local paths through the
// resolver.
func guardTable(name string) error {
	if strings.HasSuffix(name, ".toml") || strings.ContainsAny(name, `/\`) {
		return errors.New(errors.ErrCodeInvalidTable,
			"file-based score tables are not served over HTTP")
	}
	return nil
}

// handleEvaluate decides feasibility of one layout. Infeasible layouts are
// a 200 with feasible=false and the rejection reason in the body.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var opts engine.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode request"))
		return
	}
	if err := guardTable(opts.Table); err != nil {
		writeError(w, err)
		return
	}

	ev, cached, err := s.runner.EvaluateWithCacheInfo(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Evaluation: ev, Cached: cached})
}

// handleOptimize searches a board and, when an archive is configured,
// records the resulting run.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var opts engine.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode request"))
		return
	}
	if err := guardTable(opts.Table); err != nil {
		writeError(w, err)
		return
	}

	rep, cached, err := s.runner.OptimizeWithCacheInfo(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.store != nil {
		if err := s.store.Put(r.Context(), rep); err != nil {
			s.logger.Warn("archive write failed", "run", rep.RunID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, optimizeResponse{Report: rep, Cached: cached})
}

// handleBest serves the best archived run for a board size and score table.
func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "archive not configured",
			Code:  errors.ErrCodeStore,
		})
		return
	}

	rows, errRows := strconv.Atoi(chi.URLParam(r, "rows"))
	cols, errCols := strconv.Atoi(chi.URLParam(r, "cols"))
	if errRows != nil || errCols != nil || rows < 1 || cols < 1 {
		writeError(w, errors.New(errors.ErrCodeInvalidConfig,
			"invalid board size %sx%s", chi.URLParam(r, "rows"), chi.URLParam(r, "cols")))
		return
	}

	name := chi.URLParam(r, "table")
	if err := guardTable(name); err != nil {
		writeError(w, err)
		return
	}
	table, err := score.Resolve(name)
	if err != nil {
		writeError(w, err)
		return
	}

	rep, err := s.store.Best(r.Context(), rows, cols, table.Key())
	if err != nil {
		writeError(w, err)
		return
	}
	if rep == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: fmt.Sprintf("no archived runs for %dx%d under table %s", rows, cols, table.Name),
		})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
