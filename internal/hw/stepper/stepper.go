package stepper

import (
	"context"
	"time"

	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/hw/gpio"
)

// Config holds the hardware configuration for a wheel stepper motor.
type Config struct {
	Name          string // "left" or "right", for logs
	StepPin       int
	DirPin        int
	EnablePin     int // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	StepsPerRev   int
	Microstepping int
	Inverted      bool          // mirror-mounted wheel: forward is DIR LOW
	StepDelay     time.Duration // default delay per half-cycle of STEP pulse
}

// Stepper drives one wheel through an A4988-style STEP/DIR driver.
type Stepper struct {
	gpio  gpio.Driver
	cfg   Config
	delay time.Duration
}

// NewStepper creates a new stepper motor controller.
// cfg.StepDelay: if 0, defaults to 1ms.
func NewStepper(g gpio.Driver, cfg Config) *Stepper {
	_ = g.SetupPin(cfg.StepPin, gpio.Output)
	_ = g.SetupPin(cfg.DirPin, gpio.Output)

	delay := cfg.StepDelay
	if delay <= 0 {
		delay = 1 * time.Millisecond
	}

	s := &Stepper{
		gpio:  g,
		cfg:   cfg,
		delay: delay,
	}

	// A4988 ENABLE: active LOW. LOW = enabled, HIGH = disabled.
	if cfg.EnablePin > 0 {
		_ = g.SetupPin(cfg.EnablePin, gpio.Output)
		_ = g.WritePin(cfg.EnablePin, gpio.Low)
	}

	return s
}

// MicrostepsPerRev returns the number of STEP pulses for one wheel revolution.
func (s *Stepper) MicrostepsPerRev() int {
	m := s.cfg.Microstepping
	if m <= 0 {
		m = 1
	}
	return s.cfg.StepsPerRev * m
}

// Run moves the wheel by steps (positive = forward) using halfCycle as the
// STEP pulse half-period; halfCycle <= 0 uses the configured step delay.
// It stops early, without error, when ctx is done.
func (s *Stepper) Run(ctx context.Context, steps int, halfCycle time.Duration) error {
	if steps == 0 {
		return nil
	}
	if halfCycle <= 0 {
		halfCycle = s.delay
	}

	forward := steps > 0
	if !forward {
		steps = -steps
	}
	dirLevel := gpio.Level(forward != s.cfg.Inverted)

	direction := "forward"
	if !forward {
		direction = "backward"
	}
	debug.Trace("Stepper %s: %d steps (%s) half-cycle %v", s.cfg.Name, steps, direction, halfCycle)

	if err := s.gpio.WritePin(s.cfg.DirPin, dirLevel); err != nil {
		return err
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := s.stepPulse(halfCycle); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stepper) stepPulse(halfCycle time.Duration) error {
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		return err
	}
	time.Sleep(halfCycle)
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.Low); err != nil {
		return err
	}
	time.Sleep(halfCycle)
	return nil
}

// Enable turns on the motor driver (A4988 ENABLE=LOW). The wheel holds position.
func (s *Stepper) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the motor driver (A4988 ENABLE=HIGH). The wheel freewheels.
func (s *Stepper) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}
