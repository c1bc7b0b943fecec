package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/contribuart/iox"
	"github.com/justapithecus/contribuart/types"
)

// Frame size constants.
const (
	// LengthPrefixSize is the size of the big-endian length prefix in bytes.
	LengthPrefixSize = 4
	// MaxFrameSize is the maximum frame size (1 MiB), including the prefix.
	MaxFrameSize = 1024 * 1024
	// MaxPayloadSize is the maximum msgpack payload size.
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the stream cannot continue after this error.
// Partial and oversized frames are fatal.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if err is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// EncodeFrame prefixes payload with its big-endian length.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}

// FrameWriter writes progress events as length-prefixed msgpack frames.
type FrameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFrameWriter creates a FrameWriter over w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// Send writes one frame and flushes w if it can.
func (f *FrameWriter) Send(event types.ProgressEvent) error {
	payload, err := msgpack.Marshal(&event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if _, err := iox.Flush(f.w); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}

// FrameReader decodes length-prefixed msgpack progress frames.
type FrameReader struct {
	reader io.Reader
	done   bool
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{reader: r}
}

// ReadFrame reads a single frame and returns its raw msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly on a frame boundary
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(f.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(f.reader, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// Next reads and decodes the next event. After the terminal event it returns
// io.EOF; a clean end of stream before it returns ErrTruncated.
func (f *FrameReader) Next() (types.ProgressEvent, error) {
	if f.done {
		return types.ProgressEvent{}, io.EOF
	}
	payload, err := f.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return types.ProgressEvent{}, ErrTruncated
		}
		return types.ProgressEvent{}, err
	}
	event, err := DecodeEvent(payload)
	if err != nil {
		return types.ProgressEvent{}, err
	}
	f.done = event.Done
	return event, nil
}

// DecodeEvent decodes a msgpack payload as a ProgressEvent.
func DecodeEvent(payload []byte) (types.ProgressEvent, error) {
	var event types.ProgressEvent
	if err := msgpack.Unmarshal(payload, &event); err != nil {
		return types.ProgressEvent{}, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode progress event",
			Err:  err,
		}
	}
	return event, nil
}
