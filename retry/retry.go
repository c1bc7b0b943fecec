// Package retry runs remote operations with retries on transient failures.
//
// A failure is transient when it looks like a network problem (connection
// reset, timeout, DNS failure, transport failure) or carries a server-side
// HTTP status (>= 500). Everything else fails on the first attempt.
// Backoff is linear: the wait after attempt n is BaseDelay * n.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// Defaults for Config.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	HTTPStatus() int
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number to get the backoff.
	BaseDelay time.Duration
	// Sleep overrides the wait primitive (for tests). Nil uses a timer.
	Sleep SleepFunc
	// OnRetry, if set, is called before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Retryable overrides the default classification.
	Retryable func(err error) bool
}

// DefaultConfig returns 3 attempts with a 1s base delay.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	if c.Sleep == nil {
		c.Sleep = sleep
	}
	if c.Retryable == nil {
		c.Retryable = IsRetryable
	}
	return c
}

// Do invokes op until it succeeds, fails with a non-retryable error, or
// MaxAttempts is exhausted. The last error is returned unchanged so callers
// can inspect it with errors.Is/As.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.Retryable(err) || attempt == cfg.MaxAttempts {
			return zero, lastErr
		}

		delay := cfg.BaseDelay * time.Duration(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}
		if err := cfg.Sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry: canceled during backoff: %w", err)
		}
	}
	return zero, lastErr
}

// transientMarkers are message fragments of network failures that reach us
// without a typed error (e.g. wrapped by an upstream client as text).
var transientMarkers = []string{
	"ECONNRESET",
	"ETIMEDOUT",
	"ENOTFOUND",
	"fetch failed",
	"connection reset",
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus() >= 500
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Transport failures from net/http surface as *url.Error. Only those
	// from the connection itself are transient; TLS and URL errors are not.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var opErr *net.OpError
		if urlErr.Timeout() || errors.As(urlErr.Err, &opErr) ||
			errors.Is(urlErr.Err, io.ErrUnexpectedEOF) || errors.Is(urlErr.Err, io.EOF) {
			return true
		}
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
