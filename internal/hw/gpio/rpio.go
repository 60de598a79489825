package gpio

import (
	"fmt"

	"github.com/cjeanneret/plotter/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver drives Raspberry Pi pins through go-rpio.
type RPiDriver struct {
	pins  map[int]rpio.Pin
	modes map[int]PinMode
}

// NewRPiRealDriver memory-maps the GPIO block.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	return &RPiDriver{
		pins:  make(map[int]rpio.Pin),
		modes: make(map[int]PinMode),
	}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
		p.PullDown()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	r.pins[pin] = p
	r.modes[pin] = mode
	return nil
}

// WritePin drives pin to level, switching it to output first if needed.
func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	if r.modes[pin] != Output || !r.known(pin) {
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
	}
	p := r.pins[pin]
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// ReadPin samples pin, configuring it as a pulled-down input on first use.
func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	if !r.known(pin) {
		if err := r.SetupPin(pin, Input); err != nil {
			return Low, err
		}
	}
	level := Level(r.pins[pin].Read() == rpio.High)
	debug.GPIO("ReadPin", pin, level)
	return level, nil
}

func (r *RPiDriver) known(pin int) bool {
	_, ok := r.pins[pin]
	return ok
}

// Close de-energizes every output (so no coil is left powered) and returns
// all pins to input before unmapping.
func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")

	for pin, p := range r.pins {
		if r.modes[pin] == Output {
			p.Low()
		}
		p.Input()
	}
	return rpio.Close()
}
