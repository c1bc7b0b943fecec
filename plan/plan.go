// Package plan computes how many commits each painted day needs.
//
// GitHub colors the contribution graph by quartiles of the user's own
// maximum daily count, so fixed targets can only approximate a level.
// The targets below are high enough to push a typical graph into the
// requested quartile. Commits are only ever added: a day already at or
// above its target, or a request for level 0, needs nothing.
package plan

import (
	"errors"

	"github.com/justapithecus/contribuart/types"
)

// ErrNothingToPaint is returned when every cell is already at or above its
// target and no commit would be created.
var ErrNothingToPaint = errors.New("no commits needed - all selected cells are already at or above target levels")

var targets = [...]int{
	0: 0,
	1: 1,
	2: 5,
	3: 10,
	4: 15,
}

// TargetCommits maps an intensity level to the absolute commit count that
// day should reach. Levels outside 0-4 map to 0.
func TargetCommits(intensity int) int {
	if intensity < types.MinIntensity || intensity > types.MaxIntensity {
		return 0
	}
	return targets[intensity]
}

// CommitsNeeded returns how many commits must be added to a day that already
// has existing commits so that it reaches the target for intensity.
// Never negative. Intensity 0 is a no-op, never a deletion.
func CommitsNeeded(intensity, existing int) int {
	if intensity == 0 {
		return 0
	}
	return max(0, TargetCommits(intensity)-existing)
}

// Entry is one cell with its computed delta.
type Entry struct {
	Cell   types.PaintCell `json:"cell"`
	Target int             `json:"target"`
	Needed int             `json:"needed"`
}

// Plan is the per-cell work for one paint request, in caller order.
type Plan struct {
	Entries []Entry `json:"entries"`
	// Total is the number of commits the paint will create.
	Total int `json:"total"`
}

// Build computes the plan for cells, preserving their order.
// Cell order is the caller's priority and is never re-sorted.
func Build(cells []types.PaintCell) *Plan {
	p := &Plan{Entries: make([]Entry, 0, len(cells))}
	for _, c := range cells {
		needed := CommitsNeeded(c.Intensity, c.ExistingCount)
		p.Entries = append(p.Entries, Entry{
			Cell:   c,
			Target: TargetCommits(c.Intensity),
			Needed: needed,
		})
		p.Total += needed
	}
	return p
}

// Empty reports whether the plan creates no commits.
func (p *Plan) Empty() bool {
	return p.Total == 0
}

// PaintedCells returns the number of cells that need at least one commit.
func (p *Plan) PaintedCells() int {
	n := 0
	for _, e := range p.Entries {
		if e.Needed > 0 {
			n++
		}
	}
	return n
}

// ForRequest validates req and builds its plan.
// Returns an error wrapping types.ErrInvalidRequest for malformed requests
// and ErrNothingToPaint when the plan is empty.
func ForRequest(req *types.PaintRequest) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := Build(req.Cells)
	if p.Empty() {
		return nil, ErrNothingToPaint
	}
	return p, nil
}
