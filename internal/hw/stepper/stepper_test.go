package stepper

import (
	"context"
	"testing"
	"time"

	"github.com/cjeanneret/BallChaser/internal/hw/gpio"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls []gpioCall
}

type gpioCall struct {
	op    string // "setup", "write"
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) {
	return gpio.Low, nil
}

func (d *recordingDriver) Close() error {
	return nil
}

func (d *recordingDriver) writeCallsForPin(pin int) []gpioCall {
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" && c.pin == pin {
			result = append(result, c)
		}
	}
	return result
}

func (d *recordingDriver) pulses(pin int) int {
	n := 0
	for _, c := range d.writeCallsForPin(pin) {
		if c.level == gpio.High {
			n++
		}
	}
	return n
}

func wheelConfig() Config {
	return Config{
		Name:          "left",
		StepPin:       17,
		DirPin:        27,
		EnablePin:     5,
		StepsPerRev:   200,
		Microstepping: 16,
		StepDelay:     1 * time.Microsecond,
	}
}

func TestStepper_EnabledOnCreate(t *testing.T) {
	drv := &recordingDriver{}
	NewStepper(drv, wheelConfig())

	enable := drv.writeCallsForPin(5)
	if len(enable) != 1 || enable[0].level != gpio.Low {
		t.Errorf("enable pin writes = %v, want a single LOW", enable)
	}
}

func TestStepper_RunDirection(t *testing.T) {
	cases := []struct {
		name     string
		steps    int
		inverted bool
		wantDir  gpio.Level
		pulses   int
	}{
		{"forward", 10, false, gpio.High, 10},
		{"backward", -5, false, gpio.Low, 5},
		{"forward_inverted", 3, true, gpio.Low, 3},
		{"backward_inverted", -4, true, gpio.High, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drv := &recordingDriver{}
			cfg := wheelConfig()
			cfg.Inverted = tc.inverted
			s := NewStepper(drv, cfg)
			drv.calls = nil

			if err := s.Run(context.Background(), tc.steps, 0); err != nil {
				t.Fatalf("Run: %v", err)
			}
			dir := drv.writeCallsForPin(cfg.DirPin)
			if len(dir) != 1 || dir[0].level != tc.wantDir {
				t.Errorf("dir writes = %v, want one %v", dir, tc.wantDir)
			}
			if got := drv.pulses(cfg.StepPin); got != tc.pulses {
				t.Errorf("pulses = %d, want %d", got, tc.pulses)
			}
		})
	}
}

func TestStepper_RunZero(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, wheelConfig())
	drv.calls = nil

	if err := s.Run(context.Background(), 0, 0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("zero steps should produce no GPIO calls, got %d", len(drv.calls))
	}
}

func TestStepper_RunStopsOnCancel(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, wheelConfig())
	drv.calls = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, 1000, time.Microsecond); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := drv.pulses(17); got != 0 {
		t.Errorf("cancelled run produced %d pulses, want 0", got)
	}
}

func TestStepper_StepPulsePattern(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, wheelConfig())
	drv.calls = nil

	if err := s.Run(context.Background(), 1, time.Microsecond); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stepCalls := drv.writeCallsForPin(17)
	if len(stepCalls) != 2 {
		t.Fatalf("single step should produce 2 writes on step pin, got %d", len(stepCalls))
	}
	if stepCalls[0].level != gpio.High || stepCalls[1].level != gpio.Low {
		t.Errorf("pulse = %v, want HIGH then LOW", stepCalls)
	}
}

func TestStepper_EnableDisable(t *testing.T) {
	drv := &recordingDriver{}
	s := NewStepper(drv, wheelConfig())
	drv.calls = nil

	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	calls := drv.writeCallsForPin(5)
	if len(calls) != 2 || calls[0].level != gpio.High || calls[1].level != gpio.Low {
		t.Errorf("enable pin writes = %v, want HIGH then LOW", calls)
	}
}

func TestStepper_EnableDisable_NoEnablePin(t *testing.T) {
	drv := &recordingDriver{}
	cfg := wheelConfig()
	cfg.EnablePin = 0
	s := NewStepper(drv, cfg)
	drv.calls = nil

	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("with EnablePin=0, Enable/Disable should produce no GPIO calls, got %d", len(drv.calls))
	}
}

func TestStepper_Defaults(t *testing.T) {
	drv := &recordingDriver{}
	cfg := wheelConfig()
	cfg.StepDelay = 0
	cfg.Microstepping = 0
	s := NewStepper(drv, cfg)
	if s.delay != 1*time.Millisecond {
		t.Errorf("default delay = %v, want 1ms", s.delay)
	}
	if got := s.MicrostepsPerRev(); got != 200 {
		t.Errorf("MicrostepsPerRev = %d, want 200", got)
	}
}

func TestStepper_MicrostepsPerRev(t *testing.T) {
	s := NewStepper(&recordingDriver{}, wheelConfig())
	if got := s.MicrostepsPerRev(); got != 3200 {
		t.Errorf("MicrostepsPerRev = %d, want 3200", got)
	}
}
