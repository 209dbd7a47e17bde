// Package cli implements the towerblocks command-line interface.
//
// The CLI wraps the engine behind a handful of commands:
//   - solve: search for the best-scoring reachable layout on a board
//   - check: decide whether a given layout is buildable and show its plan
//   - replay: step through a build plan interactively
//   - render: export boards and support structures as SVG, PNG, PDF or DOT
//   - serve: run the HTTP API
//   - cache: manage the local result cache
//
// All commands support --verbose (-v) for debug-level logging and --config
// for a TOML settings file. Loggers are passed through context.Context so
// library packages never log globally.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/archive"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/buildinfo"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/cache"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine"
)

// appName is the application name used for directories and display.
const appName = "towerblocks"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered. Persistent flags handle logging verbosity and the config
// file; the loaded config is available to every command through c.Config.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          appName,
		Short:        "Towerblocks finds the best buildable tower layouts",
		Long:         `Towerblocks searches for grid layouts of blue, red, green and yellow towers that maximize score while remaining buildable under the tier support rules.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/towerblocks/config.toml)")

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.replayCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates an engine runner with the configured cache backend.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*engine.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return engine.NewRunner(store, nil, c.Logger), nil
}

// newCache selects the cache backend. A failed redis connection falls back
// to the local file cache with a warning instead of aborting the command.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache == CacheOff {
		return cache.NewNullCache(), nil
	}

	if c.Config.Cache == CacheRedis {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if err == nil {
			return rc, nil
		}
		c.Logger.Warn("redis cache unavailable, using file cache", "addr", c.Config.Redis.Addr, "err", err)
	}

	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newStore opens the configured run archive. It returns nil when archiving
// is disabled.
func (c *CLI) newStore(ctx context.Context) (archive.Store, error) {
	switch c.Config.Archive {
	case ArchiveOff:
		return nil, nil
	case ArchiveMongo:
		return archive.NewMongoStore(ctx, archive.MongoConfig{
			URI:        c.Config.Mongo.URI,
			Database:   c.Config.Mongo.Database,
			Collection: c.Config.Mongo.Collection,
		})
	default:
		return archive.NewFileStore(c.Config.ArchiveDir)
	}
}

// cacheDir returns the cache directory using the XDG convention
// (~/.cache/towerblocks/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// parseDims parses a board size argument of the form "ROWSxCOLS", for
// example "4x5". Both dimensions must be positive integers.
func parseDims(s string) (rows, cols int, err error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid board size %q (want ROWSxCOLS, e.g. 4x5)", s)
	}
	rows, err = strconv.Atoi(parts[0])
	if err == nil {
		cols, err = strconv.Atoi(parts[1])
	}
	if err != nil || rows < 1 || cols < 1 {
		return 0, 0, fmt.Errorf("invalid board size %q (want ROWSxCOLS, e.g. 4x5)", s)
	}
	return rows, cols, nil
}
