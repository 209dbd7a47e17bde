package search

import (
	"context"
	"time"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability"
)

// Trivial returns the all-Blue floor without searching. Every board
// accepts it, so it doubles as the baseline the other optimizers improve
// on and as the answer of last resort when no budget is available.
type Trivial struct{}

func (Trivial) Optimize(ctx context.Context, p Problem) (*Result, error) {
	if err := p.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := floorResult(p)
	res.BudgetUsed = time.Since(start)
	observability.Search().OnComplete(ctx, "trivial", 0, res.Score, false, res.BudgetUsed)
	return res, nil
}
