// Package sequence pairs a motor pattern table with step bookkeeping, without
// any pin output. It is the pure sequencing half of a stepper: useful for
// simulation, previews, or feeding patterns to an output stage the caller owns.
package sequence

import (
	"golang.org/x/exp/constraints"

	"github.com/cjeanneret/plotter/internal/logic/cycle"
)

// Sequencer is the step bookkeeping shared by trackers of any pattern type.
type Sequencer interface {
	CurrentStep() int
	SetCurrentStep(step int)
	TargetStep() int
	SetTargetStep(step int)
	TargetDifference() int
	Step()
}

// Tracker walks a pattern table one entry per step, keeping the table
// position and the step counter in lockstep.
type Tracker[T any] struct {
	current int
	target  int
	cursor  *cycle.Cursor[T]
}

var _ Sequencer = (*Tracker[int])(nil)

// NewTracker creates a tracker at step 0 on the first pattern.
func NewTracker[T any](patterns []T) (*Tracker[T], error) {
	c, err := cycle.New(patterns)
	if err != nil {
		return nil, err
	}
	return &Tracker[T]{cursor: c}, nil
}

// NewTrackerAt creates a tracker at step 0 on pattern start.
func NewTrackerAt[T any](patterns []T, start int) (*Tracker[T], error) {
	c, err := cycle.NewAt(patterns, start)
	if err != nil {
		return nil, err
	}
	return &Tracker[T]{cursor: c}, nil
}

// CurrentStep returns the step counter.
func (t *Tracker[T]) CurrentStep() int { return t.current }

// SetCurrentStep relocates the step counter without walking the table.
func (t *Tracker[T]) SetCurrentStep(step int) { t.current = step }

// TargetStep returns the step the tracker moves toward.
func (t *Tracker[T]) TargetStep() int { return t.target }

// SetTargetStep sets the step the tracker moves toward.
func (t *Tracker[T]) SetTargetStep(step int) { t.target = step }

// TargetDifference returns target minus current.
func (t *Tracker[T]) TargetDifference() int { return t.target - t.current }

// Pattern returns the table entry at the current position.
func (t *Tracker[T]) Pattern() T { return t.cursor.Current() }

// Index returns the position in the pattern table.
func (t *Tracker[T]) Index() int { return t.cursor.Index() }

// Step moves one entry toward the target, or does nothing at the target.
func (t *Tracker[T]) Step() {
	dir := sign(t.TargetDifference())
	if dir == 0 {
		return
	}
	t.cursor.AdvanceBy(dir)
	t.current += dir
}

func sign[N constraints.Signed](v N) N {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
