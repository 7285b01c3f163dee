// Package drive delivers velocity commands to the robot base.
//
// A Commander is a request/response round-trip: Drive returns once the base
// has accepted the command, or an error when delivery failed. Callers own the
// Commander for the lifetime of the process and share it across frames.
package drive

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/cjeanneret/BallChaser/internal/logic/steering"
)

// ErrDeliveryFailed marks a command the base did not accept.
var ErrDeliveryFailed = errors.New("command delivery failed")

// Commander accepts velocity commands.
type Commander interface {
	Drive(ctx context.Context, cmd steering.Command) error
}

// CommanderFunc adapts a function to the Commander interface.
type CommanderFunc func(ctx context.Context, cmd steering.Command) error

// Drive calls f.
func (f CommanderFunc) Drive(ctx context.Context, cmd steering.Command) error {
	return f(ctx, cmd)
}

// Serialize returns a Commander that runs at most one Drive call on c at a time.
func Serialize(c Commander) Commander {
	return &serialCommander{next: c}
}

type serialCommander struct {
	mu   sync.Mutex
	next Commander
}

func (s *serialCommander) Drive(ctx context.Context, cmd steering.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Drive(ctx, cmd)
}

// Limits bound what the base will execute.
const (
	MaxLinearX  = 1.0
	MaxAngularZ = 1.0
)

// Clamp bounds a command to linear_x in [0, 1] and |angular_z| <= 1.
// NaN becomes 0.
func Clamp(cmd steering.Command) steering.Command {
	return steering.Command{
		LinearX:  clamp(cmd.LinearX, 0, MaxLinearX),
		AngularZ: clamp(cmd.AngularZ, -MaxAngularZ, MaxAngularZ),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
