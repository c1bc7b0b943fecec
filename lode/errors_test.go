package lode

import (
	"errors"
	"testing"
)

func TestWrapWriteError_Classification(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"open /data/x: permission denied", ErrPermissionDenied},
		{"open /data/x: no such file or directory", ErrNotFound},
		{"write: no space left on device", ErrDiskFull},
		{"context deadline exceeded", ErrTimeout},
		{"SlowDown: please reduce your request rate", ErrThrottled},
		{"NoCredentialProviders: no valid providers in chain", ErrAuth},
		{"AccessDenied: Access Denied", ErrAccessDenied},
		{"dial tcp 10.0.0.1:443: connection refused", ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := WrapWriteError(errors.New(tt.msg), "o/r/run/commit")
			if !errors.Is(err, tt.want) {
				t.Errorf("WrapWriteError(%q) is not %v: %v", tt.msg, tt.want, err)
			}
			var se *StorageError
			if !errors.As(err, &se) || se.Op != "write" {
				t.Errorf("expected StorageError with op write, got %v", err)
			}
		})
	}
}

func TestWrap_NilAndUnclassified(t *testing.T) {
	if WrapReadError(nil, "x") != nil {
		t.Error("nil error should stay nil")
	}
	inner := errors.New("something odd")
	err := WrapInitError(inner, Dataset)
	if !errors.Is(err, inner) {
		t.Error("underlying error lost")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNetwork) {
		t.Errorf("unclassified error matched a sentinel: %v", err)
	}
}
