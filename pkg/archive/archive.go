// Package archive persists optimization run reports.
//
// This package defines the Store interface for run archival, with
// implementations for different backends:
//   - memory: In-memory storage for development/testing
//   - file: File-based storage for CLI applications
//   - mongo: MongoDB-backed storage for production deployments
//
// # Architecture
//
// Every optimize run can be archived as a [report.Report] keyed by its run
// ID. The Store interface supports:
//   - Put/Get/Delete by run ID
//   - Best lookup per board size and score table
//   - Listing recent runs
//
// Reports read back from a backend are replay-verified before they are
// returned, so a corrupted or hand-edited archive entry can never smuggle
// in an unbuildable configuration.
//
// # Usage
//
// Create a store:
//
//	// Development
//	store := archive.NewMemoryStore()
//
//	// CLI
//	store, err := archive.NewFileStore("") // Uses ~/.config/towerblocks/archive/
//
//	// Production
//	store, err := archive.NewMongoStore(ctx, archive.MongoConfig{
//	    URI: "mongodb://localhost:27017",
//	})
//
// Archive and query runs:
//
//	if err := store.Put(ctx, rep); err != nil {
//	    return err
//	}
//	best, err := store.Best(ctx, 5, 5, table.Key())
//	if err != nil {
//	    return err
//	}
//	if best == nil {
//	    // No archived run for this board yet
//	}
package archive

import (
	"context"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
)

// Store is the interface for run archive backends.
type Store interface {
	// Put archives a run report. Archiving the same run ID twice
	// overwrites the earlier entry.
	Put(ctx context.Context, rep *report.Report) error

	// Get retrieves a report by run ID.
	// Returns nil, nil if the run doesn't exist.
	Get(ctx context.Context, runID string) (*report.Report, error)

	// Best returns the highest-scoring archived report for a board size
	// and score table key, preferring proven-optimal entries and then
	// recency on ties. Returns nil, nil if nothing is archived.
	Best(ctx context.Context, rows, cols int, tableKey string) (*report.Report, error)

	// List returns archived reports, newest first, at most limit entries.
	// A non-positive limit returns everything.
	List(ctx context.Context, limit int) ([]*report.Report, error)

	// Delete removes a run. Deleting a missing run is not an error.
	Delete(ctx context.Context, runID string) error

	// Close releases backend resources.
	Close() error
}

// better orders two verified reports for Best: score first, proven
// optimality second, recency last.
func better(a, b *report.Report) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Optimal != b.Optimal {
		return a.Optimal
	}
	return a.CreatedAt.After(b.CreatedAt)
}
