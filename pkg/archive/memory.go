package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
)

// MemoryStore keeps archived runs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*report.Report
}

// NewMemoryStore creates an empty in-memory archive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*report.Report)}
}

func (s *MemoryStore) Put(ctx context.Context, rep *report.Report) error {
	if err := rep.Verify(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rep.RunID] = rep
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, runID string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[runID], nil
}

func (s *MemoryStore) Best(ctx context.Context, rows, cols int, tableKey string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *report.Report
	for _, rep := range s.runs {
		if rep.Rows != rows || rep.Cols != cols || rep.TableKey != tableKey {
			continue
		}
		if best == nil || better(rep, best) {
			best = rep
		}
	}
	return best, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reps := make([]*report.Report, 0, len(s.runs))
	for _, rep := range s.runs {
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

func (s *MemoryStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// Close drops all archived runs.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make(map[string]*report.Report)
	return nil
}

var _ Store = (*MemoryStore)(nil)
