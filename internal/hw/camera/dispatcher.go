package camera

import (
	"context"
	"sync/atomic"

	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/logic/vision"
)

// DefaultQueueSize is the number of frames buffered ahead of the handler.
const DefaultQueueSize = 10

// HandlerFunc processes one frame.
type HandlerFunc func(ctx context.Context, f vision.Frame) error

// Dispatcher sits between a Source and the frame handler. Frames are
// handled one at a time, in arrival order. When the handler falls behind
// the oldest queued frame is dropped.
type Dispatcher struct {
	queue   chan vision.Frame
	handler HandlerFunc
	dropped atomic.Int64
	handled atomic.Int64
}

// NewDispatcher creates a dispatcher with a queue of size frames.
func NewDispatcher(size int, handler HandlerFunc) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		queue:   make(chan vision.Frame, size),
		handler: handler,
	}
}

// Push enqueues a frame without blocking.
func (d *Dispatcher) Push(f vision.Frame) {
	for {
		select {
		case d.queue <- f:
			return
		default:
		}
		select {
		case <-d.queue:
			d.dropped.Add(1)
			debug.Trace("frame queue full, dropped oldest frame")
		default:
		}
	}
}

// Close tells Run to return once the queued frames are handled.
// Push must not be called after Close.
func (d *Dispatcher) Close() {
	close(d.queue)
}

// Run handles queued frames until ctx is done or the dispatcher is closed
// and drained. Handler errors abort only the frame that caused them.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-d.queue:
			if !ok {
				return nil
			}
			if err := d.handler(ctx, f); err != nil {
				debug.Warn("frame dropped: %v", err)
			}
			d.handled.Add(1)
		}
	}
}

// Dropped returns how many frames were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Handled returns how many frames reached the handler.
func (d *Dispatcher) Handled() int64 {
	return d.handled.Load()
}

// Pending returns the number of queued frames.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}
