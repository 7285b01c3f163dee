package drive

import (
	"context"

	"github.com/cjeanneret/BallChaser/internal/config"
	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/hw/gpio"
	"github.com/cjeanneret/BallChaser/internal/hw/stepper"
	"github.com/cjeanneret/BallChaser/internal/logic/motion"
	"github.com/cjeanneret/BallChaser/internal/logic/steering"
)

// StepperBase executes commands on the local stepper-wheel base.
type StepperBase struct {
	ctrl *motion.Controller
}

// NewStepperBase creates a base driving ctrl.
func NewStepperBase(ctrl *motion.Controller) *StepperBase {
	return &StepperBase{ctrl: ctrl}
}

// NewStepperBaseFromConfig builds both wheel steppers and the differential
// controller described by cfg.Drive on g.
func NewStepperBaseFromConfig(g gpio.Driver, cfg *config.Config) *StepperBase {
	d := cfg.Drive
	wheel := func(name string, w config.WheelConfig) *stepper.Stepper {
		debug.PrintStruct(name+" wheel config", w)
		return stepper.NewStepper(g, stepper.Config{
			Name:          name,
			StepPin:       w.StepPin,
			DirPin:        w.DirPin,
			EnablePin:     w.EnablePin,
			StepsPerRev:   w.StepsPerRev,
			Microstepping: w.Microstepping,
			Inverted:      w.Inverted,
		})
	}
	ctrl := motion.NewController(wheel("left", d.LeftWheel), wheel("right", d.RightWheel), motion.Geometry{
		WheelDiameterMm:  d.WheelDiameterMm,
		TrackWidthMm:     d.TrackWidthMm,
		MaxWheelSpeedMmS: d.MaxWheelSpeedMmS,
		CommandPeriod:    cfg.CommandPeriod(),
	})
	return NewStepperBase(ctrl)
}

// Drive runs the clamped command for one command period.
func (b *StepperBase) Drive(ctx context.Context, cmd steering.Command) error {
	cmd = Clamp(cmd)
	return b.ctrl.Drive(ctx, cmd.LinearX, cmd.AngularZ)
}

// Start powers both wheel drivers.
func (b *StepperBase) Start() error {
	return b.ctrl.EnableMotors()
}

// Stop releases the wheels.
func (b *StepperBase) Stop() error {
	return b.ctrl.DisableMotors()
}
