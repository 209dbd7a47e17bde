// Package cache stores expensive results between runs: feasibility
// evaluations of individual configurations and the best known report per
// board size and score table.
//
// Backends share one byte-oriented interface:
//   - file: sharded JSON files under a cache directory, for CLI usage
//   - memory: process-local map, for tests and the embedded server
//   - redis: shared cache for multi-process deployments
//   - null: disabled caching
//
// Callers serialize their own values; keys come from a [Keyer] so every
// component agrees on the namespace layout.
//
// # Usage
//
//	c, err := cache.NewFileCache(dir)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.BestKnownKey(5, 5, table.Key())
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"fmt"
	"time"
)

// Key namespaces. They double as the keyType tag on cache hooks.
const (
	// KeyTypeEvaluation marks cached feasibility evaluations.
	KeyTypeEvaluation = "evaluation"

	// KeyTypeBestKnown marks cached best-known optimization reports.
	KeyTypeBestKnown = "best-known"
)

// Recommended TTLs per key type.
const (
	// TTLEvaluation bounds how long feasibility evaluations live. They are
	// pure functions of the board, so the TTL only caps cache growth.
	TTLEvaluation = 30 * 24 * time.Hour

	// TTLBestKnown never expires: best-known results only ever improve,
	// and a stale entry is still a valid lower bound.
	TTLBestKnown time.Duration = 0
)

// Cache is a byte-oriented store with optional expiry.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys for the engine's two cacheable artifacts.
type Keyer interface {
	// EvaluationKey identifies the feasibility evaluation of one target
	// configuration on a rows x cols board.
	EvaluationKey(rows, cols int, layout string) string

	// BestKnownKey identifies the best known result for a board size and
	// score table.
	BestKnownKey(rows, cols int, tableKey string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// EvaluationKey hashes the layout so large boards still produce
// fixed-length keys.
func (k *DefaultKeyer) EvaluationKey(rows, cols int, layout string) string {
	return hashKey(fmt.Sprintf("eval:%dx%d", rows, cols), layout)
}

// BestKnownKey stays readable: the table key is already canonical.
func (k *DefaultKeyer) BestKnownKey(rows, cols int, tableKey string) string {
	return fmt.Sprintf("best:%dx%d:%s", rows, cols, tableKey)
}

// ScopedKeyer prefixes every key of an inner keyer, isolating namespaces
// when several projects share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with a prefix. A nil inner falls back to the
// default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// EvaluationKey returns the prefixed evaluation key.
func (k *ScopedKeyer) EvaluationKey(rows, cols int, layout string) string {
	return k.prefix + k.inner.EvaluationKey(rows, cols, layout)
}

// BestKnownKey returns the prefixed best-known key.
func (k *ScopedKeyer) BestKnownKey(rows, cols int, tableKey string) string {
	return k.prefix + k.inner.BestKnownKey(rows, cols, tableKey)
}
