package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/justapithecus/contribuart/types"
)

// wsWriteWait bounds a single WebSocket write.
const wsWriteWait = 10 * time.Second

// WSSink sends each event as one JSON text message.
type WSSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSink creates a sink over an upgraded connection.
func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

// Send writes event as a text message.
func (s *WSSink) Send(event types.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close sends a normal closure and closes the connection.
func (s *WSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}

// WatchClose reads from conn until it fails, then calls onClose. Reading is
// required for the connection to process close frames from the peer.
// Messages received after the request are discarded.
func WatchClose(conn *websocket.Conn, onClose func()) {
	go func() {
		defer onClose()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// WSReader decodes JSON progress messages from a WebSocket connection.
type WSReader struct {
	conn *websocket.Conn
	done bool
}

// NewWSReader creates a WSReader over a dialed connection.
func NewWSReader(conn *websocket.Conn) *WSReader {
	return &WSReader{conn: conn}
}

// Next returns the next event. After the terminal event it returns io.EOF;
// a connection closed before it returns ErrTruncated.
func (r *WSReader) Next() (types.ProgressEvent, error) {
	if r.done {
		return types.ProgressEvent{}, io.EOF
	}
	for {
		msgType, data, err := r.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return types.ProgressEvent{}, ErrTruncated
			}
			return types.ProgressEvent{}, fmt.Errorf("read event: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var event types.ProgressEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return types.ProgressEvent{}, fmt.Errorf("decode event: %w", err)
		}
		r.done = event.Done
		return event, nil
	}
}
