// Package adapter defines the notification boundary for finished paints.
//
// Adapters publish a paint completion event to a downstream system after
// every terminal state. Publishing is best effort: a failed notification
// never changes a paint's outcome.
package adapter

import (
	"context"
	"time"
)

// EventTypePaintCompleted is the event_type of every PaintCompletedEvent.
const EventTypePaintCompleted = "paint_completed"

// PaintCompletedEvent is the payload published when a paint ends.
type PaintCompletedEvent struct {
	EventType  string `json:"event_type"` // always "paint_completed"
	RunID      string `json:"run_id"`
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Mode       string `json:"mode"`    // incremental or transactional
	Outcome    string `json:"outcome"` // completed, cancelled, failed
	Message    string `json:"message"`
	Progress   int    `json:"progress"`
	Total      int    `json:"total"`
	Branch     string `json:"branch,omitempty"`
	HeadSHA    string `json:"head_sha,omitempty"`
	Timestamp  string `json:"timestamp"` // RFC 3339
	DurationMs int64  `json:"duration_ms"`
}

// Stamp sets EventType and Timestamp.
func (e *PaintCompletedEvent) Stamp(at time.Time) {
	e.EventType = EventTypePaintCompleted
	e.Timestamp = at.UTC().Format(time.RFC3339)
}

// Adapter publishes paint completion events to a downstream system.
type Adapter interface {
	// Publish sends the event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *PaintCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
