// Package stream carries paint progress events to clients.
//
// Writers implement the orchestrator's progress sink contract for one
// transport each: server-sent events, length-prefixed msgpack frames and
// WebSocket text messages. Readers decode the same transports on the client
// side and report a stream that ends before its terminal event as
// ErrTruncated.
package stream

import (
	"errors"
	"io"

	"github.com/justapithecus/contribuart/types"
)

// Content types negotiated by the paint endpoint.
const (
	ContentTypeSSE     = "text/event-stream"
	ContentTypeMsgpack = "application/x-msgpack"
)

// ErrTruncated is returned when a stream ends without a done event.
var ErrTruncated = errors.New("progress stream ended before the terminal event")

// EventReader yields progress events in order. Next returns io.EOF after the
// terminal event has been read.
type EventReader interface {
	Next() (types.ProgressEvent, error)
}

// Drain reads events until the terminal one, calling fn for each, and
// returns the terminal event.
func Drain(r EventReader, fn func(types.ProgressEvent)) (types.ProgressEvent, error) {
	for {
		event, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return types.ProgressEvent{}, ErrTruncated
			}
			return types.ProgressEvent{}, err
		}
		if fn != nil {
			fn(event)
		}
		if event.Done {
			return event, nil
		}
	}
}
