// Package coil drives the coils of a unipolar or bipolar stepper motor
// directly from GPIO pins by walking an ordered table of coil patterns.
package coil

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/plotter/internal/debug"
	"github.com/cjeanneret/plotter/internal/hw/gpio"
	"github.com/cjeanneret/plotter/internal/logic/cycle"
)

var (
	// ErrNoWriter is returned by New when no pin writer is given.
	ErrNoWriter = errors.New("coil: nil pin writer")
	// ErrNoPatterns is returned by New for an empty sequence.
	ErrNoPatterns = errors.New("coil: at least one pattern is required")
	// ErrNoPins is returned by New when no coil pin is configured.
	ErrNoPins = errors.New("coil: at least one pin is required")
	// ErrWidthMismatch is returned when a pattern and the pin list differ in length.
	ErrWidthMismatch = errors.New("coil: pattern width does not match pin count")
	// ErrInvalidState is returned for a state index outside the sequence.
	ErrInvalidState = errors.New("coil: invalid state index")
)

// Config holds the wiring and sequence of a coil table.
type Config struct {
	Pins       []int     // GPIO pin per coil, in pattern order
	Patterns   []Pattern // ordered sequence walked by Forward/Backward
	StartState int       // index of the initial pattern
}

// Table owns the pattern sequence of one motor and the index of the pattern
// currently applied. Structure is fixed at construction; only the index moves.
type Table struct {
	w        gpio.PinWriter
	pins     []int
	patterns []Pattern
	state    cycle.Counter
}

// New validates cfg and builds a table. No pin is written until Enable,
// Forward, Backward or SetState is called.
func New(w gpio.PinWriter, cfg Config) (*Table, error) {
	if w == nil {
		return nil, ErrNoWriter
	}
	if len(cfg.Patterns) == 0 {
		return nil, ErrNoPatterns
	}
	if len(cfg.Pins) == 0 {
		return nil, ErrNoPins
	}
	patterns := make([]Pattern, len(cfg.Patterns))
	for i, p := range cfg.Patterns {
		if len(p) != len(cfg.Pins) {
			return nil, fmt.Errorf("%w: pattern %d has %d coils, %d pins configured",
				ErrWidthMismatch, i, len(p), len(cfg.Pins))
		}
		patterns[i] = append(Pattern(nil), p...)
	}
	state, err := cycle.NewCounter(len(patterns), cfg.StartState)
	if err != nil {
		return nil, fmt.Errorf("%w: start state %d: %v", ErrInvalidState, cfg.StartState, err)
	}

	return &Table{
		w:        w,
		pins:     append([]int(nil), cfg.Pins...),
		patterns: patterns,
		state:    state,
	}, nil
}

// State returns the index of the current pattern.
func (t *Table) State() int {
	return t.state.Index()
}

// Len returns the number of patterns in the sequence.
func (t *Table) Len() int {
	return len(t.patterns)
}

// Width returns the number of coils (and pins).
func (t *Table) Width() int {
	return len(t.pins)
}

// Pins returns a copy of the configured pins.
func (t *Table) Pins() []int {
	return append([]int(nil), t.pins...)
}

// Pattern returns a copy of pattern i.
func (t *Table) Pattern(i int) Pattern {
	return append(Pattern(nil), t.patterns[i]...)
}

// Enable applies the current pattern, energizing the motor if it was
// disabled.
func (t *Table) Enable() error {
	p := t.patterns[t.state.Index()]
	debug.Coil(t.state.Index(), p)
	return t.apply(p)
}

// Disable writes LOW to every coil. The motor stops holding and may slip.
// The current state index is kept so Enable resumes where it was.
func (t *Table) Disable() error {
	debug.Trace("coil: disable pins %v", t.pins)
	return t.apply(make(Pattern, len(t.pins)))
}

// Forward moves to the next pattern (wrapping to the first) and applies it.
// If a pin write fails the index stays on the previous pattern.
func (t *Table) Forward() error {
	t.state.Advance()
	if err := t.Enable(); err != nil {
		t.state.Retreat()
		return err
	}
	return nil
}

// Backward moves to the previous pattern (wrapping to the last) and applies it.
// If a pin write fails the index stays on the previous pattern.
func (t *Table) Backward() error {
	t.state.Retreat()
	if err := t.Enable(); err != nil {
		t.state.Advance()
		return err
	}
	return nil
}

// SetState jumps to pattern i and applies it. An index outside the sequence
// returns ErrInvalidState and writes nothing. A failed write keeps the
// previous index.
func (t *Table) SetState(i int) error {
	prev := t.state.Index()
	if err := t.state.Set(i); err != nil {
		return fmt.Errorf("%w: %d (have %d patterns)", ErrInvalidState, i, len(t.patterns))
	}
	if err := t.Enable(); err != nil {
		_ = t.state.Set(prev)
		return err
	}
	return nil
}

// apply writes each coil level in pin order. The first failed write aborts
// the rest.
func (t *Table) apply(p Pattern) error {
	for i, pin := range t.pins {
		if err := t.w.WritePin(pin, p[i]); err != nil {
			return fmt.Errorf("coil: write pin %d: %w", pin, err)
		}
	}
	return nil
}
