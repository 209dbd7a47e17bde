package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
)

// FileStore is a file-based run archive for CLI use.
// Reports are stored as JSON files in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based archive.
// If baseDir is empty, defaults to ~/.config/towerblocks/archive/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "get home dir")
		}
		baseDir = filepath.Join(home, ".config", "towerblocks", "archive")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create archive dir %s", baseDir)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) runPath(runID string) string {
	return filepath.Join(s.baseDir, runID+".json")
}

func (s *FileStore) Put(ctx context.Context, rep *report.Report) error {
	if err := rep.Verify(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := rep.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(s.runPath(rep.RunID), buf.Bytes(), 0600); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "write run %s", rep.RunID)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, runID string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.runPath(runID))
}

func (s *FileStore) Best(ctx context.Context, rows, cols int, tableKey string) (*report.Report, error) {
	reps, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	var best *report.Report
	for _, rep := range reps {
		if rep.Rows != rows || rep.Cols != cols || rep.TableKey != tableKey {
			continue
		}
		if best == nil || better(rep, best) {
			best = rep
		}
	}
	return best, nil
}

// List scans the archive directory. Entries that no longer decode or
// verify are skipped rather than failing the whole listing.
func (s *FileStore) List(ctx context.Context, limit int) ([]*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read archive dir")
	}

	var reps []*report.Report
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		rep, err := s.read(filepath.Join(s.baseDir, entry.Name()))
		if err != nil || rep == nil {
			continue
		}
		reps = append(reps, rep)
	}

	sort.Slice(reps, func(i, j int) bool {
		return reps[i].CreatedAt.After(reps[j].CreatedAt)
	})
	if limit > 0 && len(reps) > limit {
		reps = reps[:limit]
	}
	return reps, nil
}

func (s *FileStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.runPath(runID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeStore, err, "remove run %s", runID)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for archived runs.
func (s *FileStore) Path() string {
	return s.baseDir
}

// read loads and verifies one archived report. Missing files read as
// nil, nil.
func (s *FileStore) read(path string) (*report.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read run file")
	}

	rep, err := report.Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := rep.Verify(); err != nil {
		return nil, err
	}
	return rep, nil
}

var _ Store = (*FileStore)(nil)
