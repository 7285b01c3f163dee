package motion

import (
	"context"
	"math"
	"time"

	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/hw/stepper"
	"golang.org/x/sync/errgroup"
)

// Geometry describes the differential-drive base.
type Geometry struct {
	WheelDiameterMm  float64
	TrackWidthMm     float64       // distance between the wheel contact points
	MaxWheelSpeedMmS float64       // wheel surface speed for linear_x = 1.0
	CommandPeriod    time.Duration // how long one command drives the wheels
}

// Controller orchestrates the two wheel steppers of a differential base.
// It sits between the velocity commands and the low-level GPIO.
type Controller struct {
	left  *stepper.Stepper
	right *stepper.Stepper
	geom  Geometry
}

func NewController(left, right *stepper.Stepper, geom Geometry) *Controller {
	return &Controller{
		left:  left,
		right: right,
		geom:  geom,
	}
}

// WheelSpeeds converts a (linear, angular) command into wheel surface
// speeds in mm/s. Positive angular turns left, so the right wheel is faster.
// Each wheel is clamped to the maximum wheel speed.
func (c *Controller) WheelSpeeds(linearX, angularZ float64) (left, right float64) {
	v := linearX * c.geom.MaxWheelSpeedMmS
	turn := angularZ * c.geom.TrackWidthMm / 2
	return c.clamp(v - turn), c.clamp(v + turn)
}

func (c *Controller) clamp(speed float64) float64 {
	limit := c.geom.MaxWheelSpeedMmS
	return math.Max(-limit, math.Min(limit, speed))
}

// StepsFor returns the signed number of steps a wheel takes at speed
// (mm/s) during one command period.
func (c *Controller) StepsFor(s *stepper.Stepper, speed float64) int {
	circumference := math.Pi * c.geom.WheelDiameterMm
	if circumference <= 0 {
		return 0
	}
	distance := speed * c.geom.CommandPeriod.Seconds()
	return int(math.Round(distance / circumference * float64(s.MicrostepsPerRev())))
}

// Drive runs both wheels concurrently for one command period.
func (c *Controller) Drive(ctx context.Context, linearX, angularZ float64) error {
	leftSpeed, rightSpeed := c.WheelSpeeds(linearX, angularZ)
	leftSteps := c.StepsFor(c.left, leftSpeed)
	rightSteps := c.StepsFor(c.right, rightSpeed)
	debug.Verbose("Wheels: left %.1f mm/s (%d steps), right %.1f mm/s (%d steps)",
		leftSpeed, leftSteps, rightSpeed, rightSteps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.left.Run(ctx, leftSteps, c.halfCycle(leftSteps))
	})
	g.Go(func() error {
		return c.right.Run(ctx, rightSteps, c.halfCycle(rightSteps))
	})
	return g.Wait()
}

// halfCycle spreads steps evenly across the command period.
func (c *Controller) halfCycle(steps int) time.Duration {
	if steps < 0 {
		steps = -steps
	}
	if steps == 0 {
		return 0
	}
	return c.geom.CommandPeriod / time.Duration(2*steps)
}

// EnableMotors powers both wheel drivers.
func (c *Controller) EnableMotors() error {
	if err := c.left.Enable(); err != nil {
		return err
	}
	return c.right.Enable()
}

// DisableMotors releases both wheels (freewheel).
func (c *Controller) DisableMotors() error {
	if err := c.left.Disable(); err != nil {
		return err
	}
	return c.right.Disable()
}
