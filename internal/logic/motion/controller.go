package motion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/cjeanneret/plotter/internal/debug"
	"github.com/cjeanneret/plotter/internal/hw/gpio"
	"github.com/cjeanneret/plotter/internal/hw/stepper"
	"github.com/cjeanneret/plotter/internal/logic/units"
)

var (
	// ErrUnknownAxis is returned when no axis is registered under a name.
	ErrUnknownAxis = errors.New("motion: unknown axis")
	// ErrDuplicateAxis is returned by AddAxis for a name already taken.
	ErrDuplicateAxis = errors.New("motion: duplicate axis")
	// ErrNoEndstop is returned by Home for an axis without a readable endstop.
	ErrNoEndstop = errors.New("motion: axis has no endstop")
	// ErrEndstopTimeout is returned by Home when the endstop never triggers.
	ErrEndstopTimeout = errors.New("motion: endstop not reached before timeout")
	// ErrInvalidInterval is returned for a tick interval that is not positive.
	ErrInvalidInterval = errors.New("motion: tick interval must be > 0")
)

// PinReader samples an input pin. gpio.Driver implements it.
type PinReader interface {
	ReadPin(pin int) (gpio.Level, error)
}

type axis struct {
	name    string
	stepper *stepper.Stepper
	endstop int
}

// AxisStatus is a snapshot of one axis.
type AxisStatus struct {
	Name       string  `json:"name"`
	Current    int     `json:"current"`
	Target     int     `json:"target"`
	Homing     bool    `json:"homing"`
	PositionMM float64 `json:"position_mm"`
}

// Controller owns the steppers of a machine and ticks them at a fixed
// cadence. It is the scheduler sitting on top of the steppers: steppers only
// decide which way to step, the controller decides when. All methods are
// safe for concurrent use (the web handlers call them from request
// goroutines); every stepper access happens under one lock.
type Controller struct {
	mu    sync.Mutex
	pins  PinReader
	axes  map[string]*axis
	order []string
}

// NewController creates an empty controller. pins is used to read endstops
// and may be nil if no axis has one.
func NewController(pins PinReader) *Controller {
	return &Controller{
		pins: pins,
		axes: make(map[string]*axis),
	}
}

// AddAxis registers a stepper under name. endstopPin is the homing limit
// switch (reads HIGH when hit), 0 for none.
func (c *Controller) AddAxis(name string, s *stepper.Stepper, endstopPin int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.axes[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAxis, name)
	}
	c.axes[name] = &axis{name: name, stepper: s, endstop: endstopPin}
	c.order = append(c.order, name)
	return nil
}

// Axes returns the axis names in registration order.
func (c *Controller) Axes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

func (c *Controller) axis(name string) (*axis, error) {
	a, ok := c.axes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAxis, name)
	}
	return a, nil
}

// SetTarget sets the absolute target step of an axis.
func (c *Controller) SetTarget(name string, step int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(name)
	if err != nil {
		return err
	}
	debug.Move(name, a.stepper.CurrentStep(), step)
	a.stepper.SetTarget(step)
	return nil
}

// SetTargetDistance sets the target of an axis as a distance from its origin.
func (c *Controller) SetTargetDistance(name string, d physic.Distance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(name)
	if err != nil {
		return err
	}
	a.stepper.SetTargetDistance(d)
	debug.Move(name, a.stepper.CurrentStep(), a.stepper.TargetStep())
	return nil
}

// Teleport redefines the current step of an axis without moving it.
func (c *Controller) Teleport(name string, step int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(name)
	if err != nil {
		return err
	}
	a.stepper.Teleport(step)
	return nil
}

// Stop halts one axis at its current step.
func (c *Controller) Stop(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(name)
	if err != nil {
		return err
	}
	a.stepper.Stop()
	return nil
}

// StopAll halts every axis at its current step.
func (c *Controller) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.order {
		c.axes[name].stepper.Stop()
	}
	debug.Live("All axes stopped")
}

// TickAll ticks every axis once, in registration order. It reports whether
// any axis still has work left afterwards.
func (c *Controller) TickAll() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickLocked()
}

func (c *Controller) tickLocked() (bool, error) {
	busy := false
	for _, name := range c.order {
		s := c.axes[name].stepper
		if s.Idle() {
			continue
		}
		if err := s.Tick(); err != nil {
			return false, fmt.Errorf("axis %s: %w", name, err)
		}
		if !s.Idle() {
			busy = true
		}
	}
	return busy, nil
}

// Run ticks all axes every interval until they are all idle or ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		busy, err := c.TickAll()
		if err != nil {
			return err
		}
		if !busy {
			debug.Live("Move complete")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Home drives an axis backward until its endstop reads HIGH, then stops it
// and redefines that position as step 0. If the endstop is not reached
// within timeout the axis is stopped and ErrEndstopTimeout returned.
func (c *Controller) Home(ctx context.Context, name string, interval, timeout time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	c.mu.Lock()
	a, err := c.axis(name)
	if err == nil && (a.endstop <= 0 || c.pins == nil) {
		err = fmt.Errorf("%w: %s", ErrNoEndstop, name)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	debug.Live("Homing axis %s (endstop pin %d)", name, a.endstop)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		hit, err := c.homeStep(a)
		if err != nil {
			return err
		}
		if hit {
			debug.Live("Axis %s homed", name)
			return nil
		}
		select {
		case <-ctx.Done():
			c.mu.Lock()
			a.stepper.Stop()
			c.mu.Unlock()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s after %v", ErrEndstopTimeout, name, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// homeStep checks the endstop and, if not hit, makes one homing step.
func (c *Controller) homeStep(a *axis) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	level, err := c.pins.ReadPin(a.endstop)
	if err != nil {
		a.stepper.Stop()
		return false, fmt.Errorf("axis %s: read endstop: %w", a.name, err)
	}
	if level == gpio.High {
		a.stepper.Stop()
		a.stepper.Teleport(0)
		a.stepper.SetTarget(0)
		return true, nil
	}
	a.stepper.Home()
	if err := a.stepper.Tick(); err != nil {
		a.stepper.Stop()
		return false, fmt.Errorf("axis %s: %w", a.name, err)
	}
	return false, nil
}

// EnableMotors energizes every axis.
func (c *Controller) EnableMotors() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.order {
		if err := c.axes[name].stepper.Enable(); err != nil {
			return fmt.Errorf("enable %s: %w", name, err)
		}
	}
	return nil
}

// DisableMotors de-energizes every axis.
func (c *Controller) DisableMotors() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, name := range c.order {
		if err := c.axes[name].stepper.Disable(); err != nil {
			errs = append(errs, fmt.Errorf("disable %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Status returns a snapshot of every axis in registration order.
func (c *Controller) Status() []AxisStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AxisStatus, 0, len(c.order))
	for _, name := range c.order {
		s := c.axes[name].stepper
		out = append(out, AxisStatus{
			Name:       name,
			Current:    s.CurrentStep(),
			Target:     s.TargetStep(),
			Homing:     s.Homing(),
			PositionMM: units.Millimetres(s.Position()),
		})
	}
	return out
}
