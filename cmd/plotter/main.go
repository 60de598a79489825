package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"periph.io/x/conn/v3/physic"

	"github.com/cjeanneret/plotter/internal/config"
	"github.com/cjeanneret/plotter/internal/debug"
	"github.com/cjeanneret/plotter/internal/hw/coil"
	"github.com/cjeanneret/plotter/internal/hw/gpio"
	"github.com/cjeanneret/plotter/internal/hw/stepper"
	"github.com/cjeanneret/plotter/internal/logic/motion"
	"github.com/cjeanneret/plotter/internal/logic/sequence"
	"github.com/cjeanneret/plotter/internal/logic/units"
	"github.com/cjeanneret/plotter/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	axisName := flag.String("axis", "", "axis to home, move or preview")
	target := flag.String("target", "", "absolute target of -axis as a distance, e.g. 12.5mm")
	home := flag.Bool("home", false, "home -axis against its endstop (before moving to -target, if given)")
	preview := flag.Bool("preview", false, "print the coil patterns a move of -axis to -target outputs, without touching GPIO")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	job := cliJob{Axis: *axisName, Target: *target, Home: *home, Preview: *preview}
	if err := job.validate(cfg); err != nil {
		log.Fatalf("invalid arguments: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Tick interval", cfg.TickInterval())

	if job.Preview {
		m, _ := cfg.Motor(job.Axis)
		d, _ := units.ParseDistance(job.Target)
		if err := printPreview(os.Stdout, m, d); err != nil {
			log.Fatalf("preview failed: %v", err)
		}
		return
	}

	if err := runHardware(ctx, cfg, webPort.port(), job); err != nil {
		log.Fatalf("%v", err)
	}
}

// runHardware owns the GPIO driver and the motors for the lifetime of the
// web server or the one-shot job; both are released before it returns.
func runHardware(ctx context.Context, cfg *config.Config, port int, job cliJob) error {
	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO failed: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize stepper motors
	ctrl, err := buildController(gpioDriver, cfg)
	if err != nil {
		return fmt.Errorf("init motors failed: %w", err)
	}
	if err := ctrl.EnableMotors(); err != nil {
		return fmt.Errorf("enable motors failed: %w", err)
	}
	defer func() {
		if err := ctrl.DisableMotors(); err != nil {
			log.Printf("disabling motors failed: %v", err)
		}
	}()

	if port > 0 {
		webAddr := fmt.Sprintf(":%d", port)
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		srv := web.NewServer(webAddr, broadcaster, ctrl, web.Timing{
			TickInterval: cfg.TickInterval(),
			HomeTimeout:  cfg.HomeTimeout(),
		})
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	}

	return job.run(ctx, ctrl, cfg)
}

// buildController wires every configured motor to its driver and registers
// it as an axis.
func buildController(g gpio.Driver, cfg *config.Config) (*motion.Controller, error) {
	debug.Section("Motors")
	ctrl := motion.NewController(g)
	for i := range cfg.Motors {
		m := &cfg.Motors[i]
		drv, err := newMotorDriver(g, m)
		if err != nil {
			return nil, fmt.Errorf("motor %s: %w", m.Name, err)
		}
		if m.EndstopPin > 0 {
			if err := g.SetupPin(m.EndstopPin, gpio.Input); err != nil {
				return nil, fmt.Errorf("motor %s: endstop: %w", m.Name, err)
			}
		}
		s, err := stepper.NewStepper(drv, m.StepsPerMM)
		if err != nil {
			return nil, fmt.Errorf("motor %s: %w", m.Name, err)
		}
		if err := ctrl.AddAxis(m.Name, s, m.EndstopPin); err != nil {
			return nil, err
		}
		debug.Motor(m.Name, m.Driver, m.StepsPerMM)
	}
	return ctrl, nil
}

// newMotorDriver selects a stepper driver based on configuration.
func newMotorDriver(g gpio.Driver, m *config.MotorConfig) (stepper.Driver, error) {
	switch m.Driver {
	case config.DriverCoil:
		patterns, err := m.Patterns()
		if err != nil {
			return nil, err
		}
		for _, pin := range m.Pins {
			if err := g.SetupPin(pin, gpio.Output); err != nil {
				return nil, err
			}
		}
		return coil.New(g, coil.Config{Pins: m.Pins, Patterns: patterns, StartState: m.StartState})
	case config.DriverStepDir:
		return stepper.NewStepDir(g, stepper.StepDirConfig{
			StepPin:   m.StepPin,
			DirPin:    m.DirPin,
			EnablePin: m.EnablePin,
		})
	default:
		return nil, fmt.Errorf("unsupported driver type: %s", m.Driver)
	}
}

// cliJob is the one-shot work requested on the command line.
type cliJob struct {
	Axis    string
	Target  string
	Home    bool
	Preview bool
}

// validate checks the job against the configured motors.
func (j cliJob) validate(cfg *config.Config) error {
	if j.Axis == "" {
		if j.Target != "" || j.Home || j.Preview {
			return errors.New("-axis is required with -target, -home or -preview")
		}
		return nil
	}
	m, ok := cfg.Motor(j.Axis)
	if !ok {
		return fmt.Errorf("unknown axis %q", j.Axis)
	}
	if j.Target != "" {
		if _, err := units.ParseDistance(j.Target); err != nil {
			return err
		}
	}
	if j.Preview {
		if j.Target == "" {
			return errors.New("-preview needs -target")
		}
		if j.Home {
			return errors.New("-preview and -home are exclusive")
		}
		if m.Driver != config.DriverCoil {
			return fmt.Errorf("-preview needs a %s motor, %s uses %s", config.DriverCoil, j.Axis, m.Driver)
		}
		return nil
	}
	if j.Target == "" && !j.Home {
		return errors.New("-axis needs -target or -home")
	}
	return nil
}

// run homes and/or moves one axis and blocks until it is done.
func (j cliJob) run(ctx context.Context, ctrl *motion.Controller, cfg *config.Config) error {
	if j.Axis == "" {
		debug.Info("Nothing to do: use -axis with -target or -home, or -web")
		return nil
	}
	if j.Home {
		debug.Section("Homing")
		if err := ctrl.Home(ctx, j.Axis, cfg.TickInterval(), cfg.HomeTimeout()); err != nil {
			return fmt.Errorf("home %s: %w", j.Axis, err)
		}
	}
	if j.Target != "" {
		d, err := units.ParseDistance(j.Target)
		if err != nil {
			return err
		}
		debug.Section("Moving")
		if err := ctrl.SetTargetDistance(j.Axis, d); err != nil {
			return err
		}
		if err := ctrl.Run(ctx, cfg.TickInterval()); err != nil {
			ctrl.StopAll()
			return fmt.Errorf("move %s: %w", j.Axis, err)
		}
	}
	for _, st := range ctrl.Status() {
		debug.Info("%s at step %d (%.3f mm)", st.Name, st.Current, st.PositionMM)
	}
	return nil
}

// printPreview writes the pattern output for each step of a move of m from
// step 0 to d, starting on the motor's configured start state.
func printPreview(w io.Writer, m *config.MotorConfig, d physic.Distance) error {
	patterns, err := m.Patterns()
	if err != nil {
		return err
	}
	tr, err := sequence.NewTrackerAt(patterns, m.StartState)
	if err != nil {
		return err
	}
	tr.SetTargetStep(units.Steps(d, m.StepsPerMM))

	fmt.Fprintf(w, "%s: %s = %d steps, pins %v\n", m.Name, d, tr.TargetStep(), m.Pins)
	fmt.Fprintf(w, "%8d  [%d] %s\n", tr.CurrentStep(), tr.Index(), tr.Pattern())
	for tr.TargetDifference() != 0 {
		tr.Step()
		fmt.Fprintf(w, "%8d  [%d] %s\n", tr.CurrentStep(), tr.Index(), tr.Pattern())
	}
	return nil
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
