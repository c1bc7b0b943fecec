// Package types defines core domain types for contribuart.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-day layout used for cells (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Intensity bounds for a contribution graph cell.
const (
	MinIntensity = 0
	MaxIntensity = 4
)

// ErrInvalidRequest classifies paint request validation failures.
// Use errors.Is(err, ErrInvalidRequest) to map to a client error.
var ErrInvalidRequest = errors.New("invalid paint request")

// PaintCell is one day the caller wants painted.
type PaintCell struct {
	// Date is the calendar day in YYYY-MM-DD form.
	Date string `json:"date" yaml:"date" msgpack:"date"`
	// Intensity is the desired graph level, 0-4.
	Intensity int `json:"intensity" yaml:"intensity" msgpack:"intensity"`
	// ExistingCount is the commit count already on that day, as seen by the
	// caller in a prior calendar read. It is not re-verified.
	ExistingCount int `json:"existingCount" yaml:"existing_count" msgpack:"existing_count"`
}

// Day parses Date into a UTC midnight time.
func (c PaintCell) Day() (time.Time, error) {
	return time.ParseInLocation(DateLayout, c.Date, time.UTC)
}

// CompactDate returns the date without separators (YYYYMMDD).
func (c PaintCell) CompactDate() string {
	out := make([]byte, 0, len(c.Date))
	for i := 0; i < len(c.Date); i++ {
		if c.Date[i] != '-' {
			out = append(out, c.Date[i])
		}
	}
	return string(out)
}

// PaintRequest is a request to paint cells onto a repository's default branch.
type PaintRequest struct {
	Owner string      `json:"owner" msgpack:"owner"`
	Repo  string      `json:"repo" msgpack:"repo"`
	Cells []PaintCell `json:"cells" msgpack:"cells"`
	// Incremental advances the branch after every painted cell instead of
	// once at the end.
	Incremental bool `json:"incremental,omitempty" msgpack:"incremental"`
}

// Mode returns the branch advancement mode selected by the request.
func (r *PaintRequest) Mode() PaintMode {
	if r.Incremental {
		return ModeIncremental
	}
	return ModeTransactional
}

// Validate checks the request shape:
//   - owner and repo must be non-empty
//   - cells must be non-empty
//   - every cell date must be YYYY-MM-DD
//   - existing counts must be >= 0
//
// Intensities outside 0-4 are accepted and paint nothing.
func (r *PaintRequest) Validate() error {
	if r.Owner == "" || r.Repo == "" || len(r.Cells) == 0 {
		return fmt.Errorf("%w: missing required fields", ErrInvalidRequest)
	}
	for i, cell := range r.Cells {
		if _, err := cell.Day(); err != nil {
			return fmt.Errorf("%w: cell %d: invalid date %q", ErrInvalidRequest, i, cell.Date)
		}
		if cell.ExistingCount < 0 {
			return fmt.Errorf("%w: cell %d: existingCount must be >= 0, got %d", ErrInvalidRequest, i, cell.ExistingCount)
		}
	}
	return nil
}
