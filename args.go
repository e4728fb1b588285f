package fractals

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds is returned when a chunk reaches past the image or one of
	// the buffers handed to it.
	ErrOutOfBounds = errors.New("chunk out of bounds")
	// ErrDegenerateViewport is returned for images with a zero width or height.
	ErrDegenerateViewport = errors.New("degenerate viewport")
	// ErrInvalidViewport is returned when the viewport corners do not span a
	// rectangle with End.Real to the right of Start.Real.
	ErrInvalidViewport = errors.New("invalid viewport")
)

// RenderArgs describes one render: the viewport on the complex plane and the
// image it is mapped onto. It is passed by value and never mutated.
type RenderArgs struct {
	Start Complex
	End   Complex

	Width         uint32
	Height        uint32
	MaxIterations uint32
}

func (a RenderArgs) String() string {
	return fmt.Sprintf("start: %s end: %s size: %d x %d, maxIterations: %d", a.Start, a.End, a.Width, a.Height, a.MaxIterations)
}

// PixelCount returns the number of pixels in the image.
func (a RenderArgs) PixelCount() int {
	return int(a.Width) * int(a.Height)
}

// Validate checks that args describe a drawable image over a proper
// viewport.
func (a RenderArgs) Validate() error {
	if a.Width == 0 || a.Height == 0 {
		return fmt.Errorf("%w: image size %d x %d", ErrDegenerateViewport, a.Width, a.Height)
	}
	if !(a.End.Real > a.Start.Real) {
		return fmt.Errorf("%w: end real %v must be greater than start real %v", ErrInvalidViewport, a.End.Real, a.Start.Real)
	}
	if a.End.Imag == a.Start.Imag || math.IsNaN(a.End.Imag) || math.IsNaN(a.Start.Imag) {
		return fmt.Errorf("%w: imaginary bounds %v and %v span nothing", ErrInvalidViewport, a.Start.Imag, a.End.Imag)
	}
	return nil
}

// AreaRatio is the width/height ratio of the viewport on the plane.
func (a RenderArgs) AreaRatio() float64 {
	return (a.End.Real - a.Start.Real) / math.Abs(a.End.Imag-a.Start.Imag)
}

// CanvasRatio is the width/height ratio of the image.
func (a RenderArgs) CanvasRatio() float64 {
	return float64(a.Width) / float64(a.Height)
}

// KeepRatio returns a copy of args with the height adjusted so that pixels
// stay square on the plane.
func (a RenderArgs) KeepRatio() RenderArgs {
	ratio := a.AreaRatio()
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return a
	}

	height := math.Round(float64(a.Width) / ratio)
	height = clamp(height, 1, math.MaxUint32)
	a.Height = uint32(height)
	return a
}
