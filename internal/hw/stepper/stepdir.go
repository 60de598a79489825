package stepper

import (
	"time"

	"github.com/cjeanneret/plotter/internal/debug"
	"github.com/cjeanneret/plotter/internal/hw/gpio"
)

// StepDirConfig holds the wiring of an A4988-style STEP/DIR driver board.
type StepDirConfig struct {
	StepPin    int
	DirPin     int
	EnablePin  int           // ENABLE pin (BCM). 0 = not used. Active LOW (LOW=enabled).
	PulseWidth time.Duration // STEP high time. 0 = back-to-back writes, which a Pi is slow enough for.
}

// StepDir is a Driver for motors behind a driver board that sequences the
// coils itself. Each Forward/Backward sets DIR and emits one STEP pulse.
type StepDir struct {
	gpio gpio.Driver
	cfg  StepDirConfig
	dir  gpio.Level
	set  bool // dir has been written at least once
}

// NewStepDir configures the pins as outputs. The board starts disabled
// when it has an ENABLE pin; call Enable before moving.
func NewStepDir(g gpio.Driver, cfg StepDirConfig) (*StepDir, error) {
	pins := []int{cfg.StepPin, cfg.DirPin}
	if cfg.EnablePin > 0 {
		pins = append(pins, cfg.EnablePin)
	}
	for _, pin := range pins {
		if err := g.SetupPin(pin, gpio.Output); err != nil {
			return nil, err
		}
	}
	if err := g.WritePin(cfg.StepPin, gpio.Low); err != nil {
		return nil, err
	}

	s := &StepDir{gpio: g, cfg: cfg}
	if err := s.Disable(); err != nil {
		return nil, err
	}
	return s, nil
}

// Forward emits one step with DIR high.
func (s *StepDir) Forward() error {
	return s.step(gpio.High)
}

// Backward emits one step with DIR low.
func (s *StepDir) Backward() error {
	return s.step(gpio.Low)
}

func (s *StepDir) step(dir gpio.Level) error {
	if !s.set || s.dir != dir {
		debug.Trace("StepDir: DIR pin %d -> %v", s.cfg.DirPin, dir)
		if err := s.gpio.WritePin(s.cfg.DirPin, dir); err != nil {
			return err
		}
		s.dir, s.set = dir, true
	}
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		return err
	}
	if s.cfg.PulseWidth > 0 {
		time.Sleep(s.cfg.PulseWidth)
	}
	return s.gpio.WritePin(s.cfg.StepPin, gpio.Low)
}

// Enable turns on the driver board (ENABLE=LOW). The motor holds position.
func (s *StepDir) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the driver board (ENABLE=HIGH). The motor freewheels.
func (s *StepDir) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}
