package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/contribuart/log"
	"github.com/justapithecus/contribuart/types"
)

// TransactionalPolicy holds the branch where it is until the whole paint
// succeeded, then publishes the final head with a single ref update.
//
// A cancelled or failed paint never moves the branch; its commits stay
// unreferenced.
type TransactionalPolicy struct {
	pub    Publisher
	logger *log.Logger

	mu      sync.Mutex // guards pending
	pending int64      // cells completed since the last publish
	stats   statsRecorder
}

// NewTransactionalPolicy creates a transactional policy. logger may be nil.
func NewTransactionalPolicy(pub Publisher, logger *log.Logger) *TransactionalPolicy {
	return &TransactionalPolicy{pub: pub, logger: logger}
}

// CellComplete records the cell without touching the branch.
func (p *TransactionalPolicy) CellComplete(_ context.Context, _ types.ChainState) error {
	p.stats.incCells()
	p.mu.Lock()
	p.pending++
	p.mu.Unlock()
	return nil
}

// Finish publishes state once if any cell was painted.
// On failure pending cells are preserved so Finish may be retried.
func (p *TransactionalPolicy) Finish(ctx context.Context, state types.ChainState) error {
	p.stats.incFinish()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == 0 {
		return nil
	}
	if err := publish(ctx, p.pub, &p.stats, p.logger, state); err != nil {
		return err
	}
	p.pending = 0
	return nil
}

// Stats returns policy statistics.
func (p *TransactionalPolicy) Stats() Stats {
	return p.stats.snapshot()
}

// Name returns types.ModeTransactional.
func (p *TransactionalPolicy) Name() types.PaintMode {
	return types.ModeTransactional
}
