package runtime

import (
	"fmt"

	"github.com/justapithecus/contribuart/types"
)

// State is the orchestrator lifecycle state.
type State string

// Orchestrator states. Completed, Cancelled and Failed are terminal.
const (
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateCompleted    State = "completed"
	StateCancelled    State = "cancelled"
	StateFailed       State = "failed"
)

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Progress messages sent to the client.
const (
	MessageCompleted = "Complete! Your graph has been painted."
	MessageCancelled = "Cancelled by user"
)

// Exit codes for CLI paints.
const (
	ExitCodeCompleted    = 0
	ExitCodeFailed       = 1
	ExitCodeCancelled    = 2
	ExitCodeInvalidInput = 3
)

// SkipMessage reports a cell that already meets its target.
func SkipMessage(date string, existing, target int) string {
	return fmt.Sprintf("Skipped %s (already at %d commits, target: %d)", date, existing, target)
}

// PaintedMessage reports commit seq of count for date.
func PaintedMessage(date string, seq, count int) string {
	return fmt.Sprintf("Painted %s (%d/%d)", date, seq, count)
}

// ErrorMessage is the terminal message for a failed paint.
func ErrorMessage(err error) string {
	return types.ErrorMarker + " " + err.Error()
}

// stateFor maps a terminal outcome to its orchestrator state.
func stateFor(status types.OutcomeStatus) State {
	switch status {
	case types.OutcomeCompleted:
		return StateCompleted
	case types.OutcomeCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}

// ExitCode maps an outcome to a CLI exit code.
func ExitCode(outcome *types.PaintOutcome) int {
	if outcome == nil {
		return ExitCodeFailed
	}
	switch outcome.Status {
	case types.OutcomeCompleted:
		return ExitCodeCompleted
	case types.OutcomeCancelled:
		return ExitCodeCancelled
	default:
		return ExitCodeFailed
	}
}
