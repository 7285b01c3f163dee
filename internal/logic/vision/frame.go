package vision

import (
	"errors"
	"fmt"
)

// ErrInvalidFrame is returned for frames whose dimensions and buffer disagree.
var ErrInvalidFrame = errors.New("invalid frame")

// BytesPerPixel is the number of samples per pixel in an rgb8 frame.
const BytesPerPixel = 3

// Frame is one camera image: row-major RGB byte triples.
// A Frame is never mutated once handed to the scanner.
type Frame struct {
	Width  int
	Height int
	Pixels []byte // len == 3 * Width * Height
}

// Validate checks that the pixel buffer matches the declared dimensions.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidFrame, f.Width, f.Height)
	}
	// Bound each dimension by division first; the byte count must not overflow.
	pixels := len(f.Pixels) / BytesPerPixel
	if f.Width > pixels || f.Height > pixels/f.Width {
		return fmt.Errorf("%w: %dx%d does not fit in %d bytes", ErrInvalidFrame, f.Width, f.Height, len(f.Pixels))
	}
	want := BytesPerPixel * f.Width * f.Height
	if len(f.Pixels) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrInvalidFrame, f.Width, f.Height, want, len(f.Pixels))
	}
	return nil
}

// Band returns the half-open row interval [top, bottom) scanned for a frame
// of the given height, clipped to the frame.
func Band(height, bandRows int) (top, bottom int) {
	top = height/2 - bandRows/2
	bottom = top + bandRows
	if top < 0 {
		top = 0
	}
	if bottom > height {
		bottom = height
	}
	if bottom < top {
		bottom = top
	}
	return top, bottom
}
