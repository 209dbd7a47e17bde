package cli

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// heartbeatInterval is how often a long search logs that it is still
// running.
const heartbeatInterval = 10 * time.Second

// searchProgress logs search events with throttling: the first incumbent,
// every improvement, and a periodic heartbeat while nothing improves.
// Annealing restarts report from multiple goroutines, hence the mutex.
type searchProgress struct {
	logger *log.Logger

	mu       sync.Mutex
	started  time.Time
	lastLog  time.Time
	lastBest int
	seen     bool
}

func newSearchProgress(l *log.Logger) *searchProgress {
	now := time.Now()
	return &searchProgress{logger: l, started: now, lastLog: now}
}

// OnTrial emits a heartbeat when no improvement has been logged for a
// while.
func (p *searchProgress) OnTrial(ctx context.Context, optimizer string, trial, score int, feasible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.lastLog) < heartbeatInterval {
		return
	}
	p.lastLog = time.Now()
	elapsed := time.Since(p.started).Truncate(time.Second)
	p.logger.Infof("Searching... %v elapsed, %d trials, best %d", elapsed, trial, p.lastBest)
}

// OnImprove logs each new incumbent.
func (p *searchProgress) OnImprove(ctx context.Context, optimizer string, trial, score int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seen {
		p.logger.Infof("Initial: score %d (trial %d)", score, trial)
		p.seen = true
	} else if score > p.lastBest {
		p.logger.Infof("Improved: score %d (+%d)", score, score-p.lastBest)
	}
	if score > p.lastBest {
		p.lastBest = score
	}
	p.lastLog = time.Now()
}

// OnComplete reports the final tally at debug level; the command prints
// the user-facing result itself.
func (p *searchProgress) OnComplete(ctx context.Context, optimizer string, trials, best int, optimal bool, duration time.Duration) {
	p.logger.Debugf("%s finished: %d trials, best %d, optimal=%v (%s)",
		optimizer, trials, best, optimal, duration.Round(time.Millisecond))
}
