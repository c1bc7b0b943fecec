package runtime

import (
	"errors"
	"sync"

	"github.com/justapithecus/contribuart/types"
)

// ProgressSink receives progress events synchronously and in order.
// Transport adapters (SSE, msgpack frames, WebSocket) implement it.
// A Send error means the consumer is gone and the paint should stop.
type ProgressSink interface {
	Send(event types.ProgressEvent) error
}

// ErrSinkClosed is returned by RecordingSink after its failure point.
var ErrSinkClosed = errors.New("progress sink closed")

// RecordingSink keeps every event in memory. Used by tests and dry runs.
type RecordingSink struct {
	mu     sync.Mutex
	events []types.ProgressEvent

	// FailAfter, if > 0, makes Send fail once that many events were accepted.
	FailAfter int
	// OnSend, if set, is called with each accepted event.
	OnSend func(event types.ProgressEvent)
}

// Send records the event.
func (s *RecordingSink) Send(event types.ProgressEvent) error {
	s.mu.Lock()
	if s.FailAfter > 0 && len(s.events) >= s.FailAfter {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.events = append(s.events, event)
	s.mu.Unlock()

	if s.OnSend != nil {
		s.OnSend(event)
	}
	return nil
}

// Events returns a copy of the recorded events.
func (s *RecordingSink) Events() []types.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ProgressEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Last returns the most recent event.
func (s *RecordingSink) Last() (types.ProgressEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return types.ProgressEvent{}, false
	}
	return s.events[len(s.events)-1], true
}
