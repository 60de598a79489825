package stepper

import (
	"errors"
	"fmt"
	"math"

	"github.com/cjeanneret/plotter/internal/debug"
	"github.com/cjeanneret/plotter/internal/hw/coil"
	"github.com/cjeanneret/plotter/internal/logic/units"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrNilDriver is returned by NewStepper when the driver is missing.
	ErrNilDriver = errors.New("stepper: nil coil driver")
	// ErrResolution is returned for a steps-per-millimetre value that is not usable.
	ErrResolution = errors.New("stepper: steps per millimetre must be a positive finite number")
)

// Driver performs single coil transitions for one motor.
// *coil.Table and *StepDir implement it.
type Driver interface {
	Enable() error
	Disable() error
	Forward() error
	Backward() error
}

// Stepper tracks the logical position of one motor and moves it one step per
// Tick toward its target. It owns its driver: nothing else should call the
// driver's Forward/Backward, or the step counter drifts from the coils.
//
// A Stepper is not safe for concurrent use.
type Stepper struct {
	driver     Driver
	stepsPerMM float64
	current    int
	target     int
	homing     bool
}

// NewStepper creates a stepper at step 0 with target 0. A nil *coil.Table or
// *StepDir is rejected like a nil interface; typed nils of other Driver
// implementations are not detected.
func NewStepper(d Driver, stepsPerMM float64) (*Stepper, error) {
	if isNilDriver(d) {
		return nil, ErrNilDriver
	}
	if stepsPerMM <= 0 || math.IsNaN(stepsPerMM) || math.IsInf(stepsPerMM, 0) {
		return nil, fmt.Errorf("%w, got %g", ErrResolution, stepsPerMM)
	}
	return &Stepper{driver: d, stepsPerMM: stepsPerMM}, nil
}

func isNilDriver(d Driver) bool {
	switch v := d.(type) {
	case nil:
		return true
	case *coil.Table:
		return v == nil
	case *StepDir:
		return v == nil
	}
	return false
}

// SetTarget sets the absolute step the motor moves toward on later ticks.
func (s *Stepper) SetTarget(step int) {
	s.target = step
}

// SetTargetDistance sets the target as a travel distance from step 0.
func (s *Stepper) SetTargetDistance(d physic.Distance) {
	step := units.Steps(d, s.stepsPerMM)
	debug.Verbose("Stepper: target %v -> step %d", d, step)
	s.SetTarget(step)
}

// Teleport relocates the logical position without moving the motor, e.g.
// to recalibrate after homing reached the limit. The target is unchanged.
func (s *Stepper) Teleport(step int) {
	s.current = step
}

// TeleportDistance relocates the logical position to a travel distance.
func (s *Stepper) TeleportDistance(d physic.Distance) {
	s.Teleport(units.Steps(d, s.stepsPerMM))
}

// Home puts the stepper in homing mode: every Tick steps backward, whatever
// the target, until Stop is called. Home is always the backward direction of
// the coil sequence; wire the motor so that backward runs toward the endstop.
func (s *Stepper) Home() {
	s.homing = true
}

// Stop leaves homing mode and holds the current position.
func (s *Stepper) Stop() {
	s.homing = false
	s.target = s.current
}

// Tick makes at most one coil transition toward the target (or backward when
// homing). On a driver error the position is left unchanged.
func (s *Stepper) Tick() error {
	switch {
	case s.homing || s.target < s.current:
		if err := s.driver.Backward(); err != nil {
			return fmt.Errorf("step backward from %d: %w", s.current, err)
		}
		s.current--
		debug.Tick("backward", s.current, s.target)
	case s.target > s.current:
		if err := s.driver.Forward(); err != nil {
			return fmt.Errorf("step forward from %d: %w", s.current, err)
		}
		s.current++
		debug.Tick("forward", s.current, s.target)
	}
	return nil
}

// Enable energizes the motor at its current coil state.
func (s *Stepper) Enable() error {
	return s.driver.Enable()
}

// Disable de-energizes the motor. Position tracking is kept, but the shaft
// may slip while disabled.
func (s *Stepper) Disable() error {
	return s.driver.Disable()
}

// CurrentStep returns the logical position in steps.
func (s *Stepper) CurrentStep() int {
	return s.current
}

// TargetStep returns the step the motor is moving toward.
func (s *Stepper) TargetStep() int {
	return s.target
}

// Homing reports whether homing mode is active.
func (s *Stepper) Homing() bool {
	return s.homing
}

// Idle reports whether the next Tick would do nothing.
func (s *Stepper) Idle() bool {
	return !s.homing && s.current == s.target
}

// StepsPerMM returns the step resolution.
func (s *Stepper) StepsPerMM() float64 {
	return s.stepsPerMM
}

// Position returns the logical position as a travel distance.
func (s *Stepper) Position() physic.Distance {
	return units.Distance(s.current, s.stepsPerMM)
}
