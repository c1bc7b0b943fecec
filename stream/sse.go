package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/justapithecus/contribuart/iox"
	"github.com/justapithecus/contribuart/types"
)

// SetSSEHeaders prepares a response for server-sent events.
func SetSSEHeaders(h http.Header) {
	h.Set("Content-Type", ContentTypeSSE)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// SSEWriter writes each event as one `data: {json}` message and flushes.
type SSEWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSSEWriter creates an SSEWriter over w. If w can flush (an
// http.ResponseWriter usually can), every event is flushed immediately.
func NewSSEWriter(w io.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

// Send writes event. A write error means the client went away.
func (s *SSEWriter) Send(event types.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if _, err := iox.Flush(s.w); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}
	return nil
}

// SSEReader decodes a server-sent event stream of progress events.
// Multi-line data fields are joined with newlines; comments and other
// fields are ignored.
type SSEReader struct {
	r    *bufio.Reader
	done bool
}

// NewSSEReader creates an SSEReader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{r: bufio.NewReader(r)}
}

// Next returns the next event. After the terminal event it returns io.EOF;
// if the stream ends first it returns ErrTruncated.
func (s *SSEReader) Next() (types.ProgressEvent, error) {
	if s.done {
		return types.ProgressEvent{}, io.EOF
	}

	var data []byte
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return types.ProgressEvent{}, fmt.Errorf("read event stream: %w", err)
		}
		eof := errors.Is(err, io.EOF)
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			if data != nil {
				return s.decode(data)
			}
		case line[0] == ':':
		case bytes.HasPrefix(line, []byte("data:")):
			value := bytes.TrimPrefix(line[len("data:"):], []byte(" "))
			if data != nil {
				data = append(data, '\n')
			}
			data = append(data, value...)
		}

		if eof {
			if data != nil {
				return s.decode(data)
			}
			return types.ProgressEvent{}, ErrTruncated
		}
	}
}

func (s *SSEReader) decode(data []byte) (types.ProgressEvent, error) {
	var event types.ProgressEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return types.ProgressEvent{}, fmt.Errorf("decode event: %w", err)
	}
	s.done = event.Done
	return event, nil
}
