// Package iox provides I/O helpers for resource cleanup and streaming.
package iox

import "io"

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(adapter))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// Flush pushes buffered bytes in w to the peer if w supports flushing
// (http.Flusher or bufio.Writer). It reports whether a flush happened and
// returns the flush error, if any.
func Flush(w io.Writer) (bool, error) {
	switch f := w.(type) {
	case interface{ Flush() error }:
		return true, f.Flush()
	case interface{ Flush() }:
		f.Flush()
		return true, nil
	default:
		return false, nil
	}
}
