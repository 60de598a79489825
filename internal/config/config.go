package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/plotter/internal/hw/coil"
)

// Driver types a motor can use.
const (
	DriverCoil    = "coil"    // coils wired to GPIO, sequenced in software
	DriverStepDir = "stepdir" // A4988-style board, STEP/DIR/ENABLE pins
)

// SequenceCustom selects the patterns listed under states.
const SequenceCustom = "custom"

// MotorConfig describes one motor and how it is wired.
type MotorConfig struct {
	Name       string  `yaml:"name"`
	Driver     string  `yaml:"driver"`       // "coil" (default) or "stepdir"
	StepsPerMM float64 `yaml:"steps_per_mm"` // step resolution
	EndstopPin int     `yaml:"endstop_pin"`  // homing limit switch (BCM), reads HIGH when hit. 0 = none.

	// coil driver
	Pins       []int    `yaml:"pins"`        // one GPIO per coil, pattern order
	Sequence   string   `yaml:"sequence"`    // wave | full_step | half_step | custom
	States     []string `yaml:"states"`      // custom patterns, e.g. "1100"
	StartState int      `yaml:"start_state"` // initial pattern index

	// stepdir driver
	StepPin   int `yaml:"step_pin"`
	DirPin    int `yaml:"dir_pin"`
	EnablePin int `yaml:"enable_pin"` // 0 = not used. Active LOW.
}

// Patterns resolves the coil sequence of a coil-driven motor.
func (m *MotorConfig) Patterns() ([]coil.Pattern, error) {
	if m.Sequence == SequenceCustom {
		return coil.ParsePatterns(m.States)
	}
	return coil.Preset(m.Sequence)
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	TickIntervalMs int  `yaml:"tick_interval_ms"` // delay between two ticks of the motion loop
	HomeTimeoutMs  int  `yaml:"home_timeout_ms"`  // give up homing after this long
	DebugLevel     int  `yaml:"debug_level"`      // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO       bool `yaml:"mock_gpio"`        // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Motors   []MotorConfig  `yaml:"motors"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath only accepts a .yaml file whose parent directory is
// named configs, after cleaning the path.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q: must have .yaml extension", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("config path %q: %w", path, err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q: must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the validated configuration.
func Load(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, validates it and fills defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if len(cfg.Motors) == 0 {
		return nil, fmt.Errorf("at least one motor is required")
	}
	seen := make(map[string]bool)
	owner := make(map[int]string) // pin -> motor name
	for i := range cfg.Motors {
		m := &cfg.Motors[i]
		if m.Name == "" {
			return nil, fmt.Errorf("motors[%d]: name is required", i)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("motors[%d]: duplicate name %q", i, m.Name)
		}
		seen[m.Name] = true
		if err := validateMotor(m); err != nil {
			return nil, fmt.Errorf("motor %q: %w", m.Name, err)
		}
		for _, pin := range m.usedPins() {
			if prev, ok := owner[pin]; ok {
				if prev == m.Name {
					return nil, fmt.Errorf("motor %q: pin %d is wired twice", m.Name, pin)
				}
				return nil, fmt.Errorf("motor %q: pin %d already used by motor %q", m.Name, pin, prev)
			}
			owner[pin] = m.Name
		}
	}

	if cfg.Defaults.TickIntervalMs <= 0 {
		cfg.Defaults.TickIntervalMs = 2 // reasonable default
	}
	if cfg.Defaults.HomeTimeoutMs <= 0 {
		cfg.Defaults.HomeTimeoutMs = 30000 // 30s to reach the endstop
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

func validateMotor(m *MotorConfig) error {
	if m.StepsPerMM <= 0 || math.IsNaN(m.StepsPerMM) || math.IsInf(m.StepsPerMM, 0) {
		return fmt.Errorf("steps_per_mm must be > 0, got %g", m.StepsPerMM)
	}
	if m.Driver == "" {
		m.Driver = DriverCoil
	}

	switch m.Driver {
	case DriverCoil:
		if len(m.Pins) == 0 {
			return fmt.Errorf("pins are required for the coil driver")
		}
		if m.Sequence == "" {
			m.Sequence = "full_step"
		}
		patterns, err := m.Patterns()
		if err != nil {
			return err
		}
		if len(patterns) == 0 {
			return fmt.Errorf("sequence %q has no states", m.Sequence)
		}
		for i, p := range patterns {
			if len(p) != len(m.Pins) {
				return fmt.Errorf("state %d (%s) has %d coils, %d pins configured", i, p, len(p), len(m.Pins))
			}
		}
		if m.StartState < 0 || m.StartState >= len(patterns) {
			return fmt.Errorf("start_state %d out of range [0, %d)", m.StartState, len(patterns))
		}
	case DriverStepDir:
		if m.StepPin <= 0 || m.DirPin <= 0 {
			return fmt.Errorf("step_pin and dir_pin are required for the stepdir driver")
		}
		if m.StepPin == m.DirPin {
			return fmt.Errorf("step_pin and dir_pin must differ")
		}
	default:
		return fmt.Errorf("unknown driver %q", m.Driver)
	}
	return nil
}

// usedPins lists every GPIO the motor's driver and endstop claim.
func (m *MotorConfig) usedPins() []int {
	var pins []int
	switch m.Driver {
	case DriverCoil:
		pins = append(pins, m.Pins...)
	case DriverStepDir:
		pins = append(pins, m.StepPin, m.DirPin)
		if m.EnablePin > 0 {
			pins = append(pins, m.EnablePin)
		}
	}
	if m.EndstopPin > 0 {
		pins = append(pins, m.EndstopPin)
	}
	return pins
}

// Motor returns the motor named name.
func (c *Config) Motor(name string) (*MotorConfig, bool) {
	for i := range c.Motors {
		if c.Motors[i].Name == name {
			return &c.Motors[i], true
		}
	}
	return nil, false
}

// TickInterval returns the duration between two motion ticks.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Defaults.TickIntervalMs) * time.Millisecond
}

// HomeTimeout returns how long homing may run before giving up.
func (c *Config) HomeTimeout() time.Duration {
	return time.Duration(c.Defaults.HomeTimeoutMs) * time.Millisecond
}
