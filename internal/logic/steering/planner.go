// Package steering turns region counts into a velocity command.
//
// Forward speed ramps down linearly as the ball fills the forward region: few
// forward pixels means the ball is far away, many means it is close. Once the
// forward count reaches a quarter of the scanned band the robot stops
// advancing. When nothing is ahead, the robot turns in place toward the side
// with more detections.
package steering

import "github.com/cjeanneret/BallChaser/internal/logic/vision"

// Command is the (forward, angular) pair sent to the drive.
// Negative AngularZ turns right.
type Command struct {
	LinearX  float64 `json:"linear_x"`
	AngularZ float64 `json:"angular_z"`
}

// Stop is the hold-position command.
var Stop = Command{}

// Config holds the planner constants.
type Config struct {
	SaturationDivisor  int     `json:"saturation_divisor"`  // band capacity / divisor = forward count at which forward speed hits 0
	ForwardDenominator float64 `json:"forward_denominator"` // scales the forward ramp; 2 caps speed below 0.5
	TurnRate           float64 `json:"turn_rate"`           // angular speed magnitude when searching sideways
}

// DefaultConfig returns the stock planner constants.
func DefaultConfig() Config {
	return Config{
		SaturationDivisor:  4,
		ForwardDenominator: 2,
		TurnRate:           0.1,
	}
}

// MaxForward returns the forward count at which forward velocity saturates to zero.
func (c Config) MaxForward(bandRows, width int) int {
	if c.SaturationDivisor <= 0 {
		return 0
	}
	return (bandRows * width) / c.SaturationDivisor
}

// Plan computes the velocity command for one frame's region counts.
// bandRows and width describe the scanned band.
func Plan(counts vision.RegionCounts, bandRows, width int, cfg Config) Command {
	var cmd Command

	maxForward := cfg.MaxForward(bandRows, width)
	if counts.Forward > 0 && counts.Forward < maxForward {
		cmd.LinearX = float64(maxForward-counts.Forward) / (cfg.ForwardDenominator * float64(maxForward))
	}

	if counts.Forward == 0 && (counts.Right != 0 || counts.Left != 0) {
		if counts.Right > counts.Left {
			cmd.AngularZ = -cfg.TurnRate
		} else {
			cmd.AngularZ = cfg.TurnRate
		}
	}

	return cmd
}
