// Package server exposes the engine over HTTP.
//
// Endpoints:
//
//	POST /api/v1/evaluate                    decide feasibility of a layout
//	POST /api/v1/optimize                    search a board for its best layout
//	GET  /api/v1/best/{rows}x{cols}/{table}  best archived run for a board
//	GET  /healthz                            liveness probe
//
// Evaluate and optimize decode an [engine.Options] JSON body and answer with
// the evaluation or run report plus cache provenance. Feasibility verdicts
// are part of a successful response, not HTTP errors: only malformed
// requests and backend failures map to error statuses.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/archive"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine"
)

// shutdownTimeout bounds the graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Config wires the server's collaborators.
type Config struct {
	// Addr is the listen address, for example ":8080".
	Addr string

	// Runner executes evaluate and optimize requests. Required.
	Runner *engine.Runner

	// Store archives optimize runs and serves the best-known lookup.
	// Optional; without it /best answers 503 and runs are not recorded.
	Store archive.Store

	// Logger receives request and lifecycle logs. Optional.
	Logger *log.Logger
}

// Server is the TowerBlocks HTTP API.
type Server struct {
	addr    string
	runner  *engine.Runner
	store   archive.Store
	logger  *log.Logger
	handler http.Handler
}

// New builds a server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("server: runner is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	s := &Server{
		addr:   cfg.Addr,
		runner: cfg.Runner,
		store:  cfg.Store,
		logger: cfg.Logger,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler, so tests can drive the server through
// httptest without a listener.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/best/{rows}x{cols}/{table}", s.handleBest)
	})
	return r
}

// Run serves until ctx is cancelled or the listener fails. On cancellation
// the server drains in-flight requests for up to shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
