package types

import (
	"errors"
	"fmt"
)

// PaintMode is the branch advancement mode of a paint.
type PaintMode string

const (
	// ModeTransactional advances the branch once, after every cell succeeded.
	ModeTransactional PaintMode = "transactional"
	// ModeIncremental advances the branch after every painted cell.
	ModeIncremental PaintMode = "incremental"
)

// PaintMeta identifies one paint run.
type PaintMeta struct {
	// RunID is the unique run identifier (UUID).
	RunID string
	Owner string
	Repo  string
	Mode  PaintMode
}

// Validate checks that the run identity is complete.
func (m *PaintMeta) Validate() error {
	if m.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	if m.Owner == "" || m.Repo == "" {
		return errors.New("owner and repo must be non-empty")
	}
	switch m.Mode {
	case ModeTransactional, ModeIncremental:
		return nil
	default:
		return fmt.Errorf("unknown paint mode %q", m.Mode)
	}
}

// OutcomeStatus is the terminal state of a paint.
type OutcomeStatus string

const (
	// OutcomeCompleted means every commit was created and the branch advanced.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeCancelled means the caller went away; partial work is kept.
	OutcomeCancelled OutcomeStatus = "cancelled"
	// OutcomeFailed means an unrecovered remote error stopped the paint.
	OutcomeFailed OutcomeStatus = "failed"
)

// PaintOutcome is the final outcome of a paint.
type PaintOutcome struct {
	Status OutcomeStatus
	// Message is the terminal event message sent to the client.
	Message string
	// Err is the underlying failure for OutcomeFailed.
	Err error
}
