package policy

import (
	"context"

	"github.com/justapithecus/contribuart/log"
	"github.com/justapithecus/contribuart/types"
)

// IncrementalPolicy publishes the chain head after every painted cell, so
// progress becomes visible on the branch as it happens.
//
// A failure between cells leaves the branch at the last completed cell.
// Commits of a partially painted cell stay unreferenced.
type IncrementalPolicy struct {
	pub    Publisher
	logger *log.Logger
	stats  statsRecorder
}

// NewIncrementalPolicy creates an incremental policy. logger may be nil.
func NewIncrementalPolicy(pub Publisher, logger *log.Logger) *IncrementalPolicy {
	return &IncrementalPolicy{pub: pub, logger: logger}
}

// CellComplete publishes state immediately.
func (p *IncrementalPolicy) CellComplete(ctx context.Context, state types.ChainState) error {
	p.stats.incCells()
	return publish(ctx, p.pub, &p.stats, p.logger, state)
}

// Finish is a no-op: every completed cell was already published.
func (p *IncrementalPolicy) Finish(_ context.Context, _ types.ChainState) error {
	p.stats.incFinish()
	return nil
}

// Stats returns policy statistics.
func (p *IncrementalPolicy) Stats() Stats {
	return p.stats.snapshot()
}

// Name returns types.ModeIncremental.
func (p *IncrementalPolicy) Name() types.PaintMode {
	return types.ModeIncremental
}
