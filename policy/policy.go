// Package policy defines how a paint advances its branch ref.
//
// A policy decides when the chain head built so far becomes visible on the
// branch:
//   - IncrementalPolicy publishes after every painted cell
//   - TransactionalPolicy publishes once, after every cell succeeded
//
// Neither policy creates commits; the orchestrator drives the chain builder
// and reports cell boundaries here.
package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/justapithecus/contribuart/log"
	"github.com/justapithecus/contribuart/types"
)

// Policy is the branch advancement contract.
type Policy interface {
	// CellComplete is called after every cell that needed at least one
	// commit, with the chain head after its last commit.
	CellComplete(ctx context.Context, state types.ChainState) error

	// Finish is called once after all cells succeeded. It is not called for
	// cancelled or failed paints.
	Finish(ctx context.Context, state types.ChainState) error

	// Stats returns a consistent snapshot of policy counters.
	Stats() Stats

	// Name returns the policy mode.
	Name() types.PaintMode
}

// Stats are policy observability counters.
type Stats struct {
	// CellsCompleted is the number of CellComplete calls.
	CellsCompleted int64
	// RefUpdates is the number of successful publishes.
	RefUpdates int64
	// Errors is the number of failed publishes.
	Errors int64
	// FinishCount is the number of Finish calls.
	FinishCount int64
	// Published is the last commit SHA made visible on the branch.
	Published string
}

// ErrUnknownMode is returned by New for an unsupported mode.
var ErrUnknownMode = errors.New("unknown paint mode")

// New returns the policy for mode publishing through pub.
func New(mode types.PaintMode, pub Publisher, logger *log.Logger) (Policy, error) {
	switch mode {
	case types.ModeIncremental:
		return NewIncrementalPolicy(pub, logger), nil
	case types.ModeTransactional:
		return NewTransactionalPolicy(pub, logger), nil
	default:
		return nil, ErrUnknownMode
	}
}

// statsRecorder is an internal helper for thread-safe stats management.
// Policies call explicit methods to record mutations.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func (r *statsRecorder) incCells() {
	r.mu.Lock()
	r.stats.CellsCompleted++
	r.mu.Unlock()
}

func (r *statsRecorder) incFinish() {
	r.mu.Lock()
	r.stats.FinishCount++
	r.mu.Unlock()
}

func (r *statsRecorder) published(sha string) {
	r.mu.Lock()
	r.stats.RefUpdates++
	r.stats.Published = sha
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// publish runs pub and records the outcome.
func publish(ctx context.Context, pub Publisher, stats *statsRecorder, logger *log.Logger, state types.ChainState) error {
	if err := pub.Publish(ctx, state); err != nil {
		stats.incErrors()
		if logger != nil {
			logger.Error("ref update failed", map[string]any{
				"ref":   state.BranchRef,
				"sha":   state.HeadCommitSHA,
				"error": err.Error(),
			})
		}
		return err
	}
	stats.published(state.HeadCommitSHA)
	if logger != nil {
		logger.Debug("ref updated", map[string]any{
			"ref": state.BranchRef,
			"sha": state.HeadCommitSHA,
		})
	}
	return nil
}
