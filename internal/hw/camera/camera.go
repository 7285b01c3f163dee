package camera

import (
	"context"

	"github.com/cjeanneret/BallChaser/internal/logic/vision"
)

// Source is the high-level interface for anything that produces frames
// (image replay, network camera, test fixture, ...).
type Source interface {
	// Run calls emit once per frame until ctx is done or the source is
	// exhausted. Emitted frames belong to the receiver; the source must not
	// reuse their pixel buffers.
	Run(ctx context.Context, emit func(vision.Frame)) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, emit func(vision.Frame)) error

// Run calls f.
func (f SourceFunc) Run(ctx context.Context, emit func(vision.Frame)) error {
	return f(ctx, emit)
}
