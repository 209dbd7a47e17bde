package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/internal/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API server.

Endpoints:
  POST /api/v1/evaluate                 decide feasibility of a layout
  POST /api/v1/optimize                 search a board for its best layout
  GET  /api/v1/best/{rows}x{cols}/{table}  best archived run for a board
  GET  /healthz                         liveness probe

The server shares the CLI's cache and archive configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") && c.Config.Server.Addr != "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}

// runServe wires the runner and archive into the HTTP server and blocks
// until the context is cancelled or the listener fails.
func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	store, err := c.newStore(ctx)
	if err != nil {
		c.Logger.Warn("archive unavailable, /best disabled", "err", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	srv, err := server.New(server.Config{
		Addr:   addr,
		Runner: runner,
		Store:  store,
		Logger: c.Logger,
	})
	if err != nil {
		return err
	}

	printInfo("Listening on %s", addr)
	return srv.Run(ctx)
}
