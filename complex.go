package fractals

import (
	"fmt"
	"math"
)

// Complex is a point on the complex plane.
type Complex struct {
	Real float64
	Imag float64
}

func (c Complex) String() string {
	return fmt.Sprintf("%v + %vi", c.Real, c.Imag)
}

// Pixel is a position in the image, with Y growing downwards.
type Pixel struct {
	X uint32
	Y uint32
}

func (p Pixel) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// IndexToPixel converts a row-major pixel index into a pixel. index must be
// smaller than width*height.
func IndexToPixel(index int, width uint32) Pixel {
	w := int(width)
	return Pixel{
		X: uint32(index % w),
		Y: uint32(index / w),
	}
}

// PixelToComplex maps a pixel onto the viewport of args. Row 0 maps to
// args.End.Imag because screen rows grow downwards while the imaginary axis
// grows upwards.
func PixelToComplex(p Pixel, args RenderArgs) Complex {
	real := args.Start.Real + (float64(p.X)/float64(args.Width))*(args.End.Real-args.Start.Real)
	imag := args.End.Imag + (float64(p.Y)/float64(args.Height))*(args.Start.Imag-args.End.Imag)
	return Complex{Real: real, Imag: imag}
}

// ComplexToPixel is the inverse of PixelToComplex, rounding down onto the
// pixel grid. Points outside of the viewport produce coordinates outside of
// the image and ok is false.
func ComplexToPixel(c Complex, args RenderArgs) (Pixel, bool) {
	fx := math.Floor((c.Real - args.Start.Real) / (args.End.Real - args.Start.Real) * float64(args.Width))
	fy := math.Floor((args.End.Imag - c.Imag) / (args.End.Imag - args.Start.Imag) * float64(args.Height))

	if math.IsNaN(fx) || math.IsNaN(fy) ||
		fx < 0 || fy < 0 ||
		fx >= float64(args.Width) || fy >= float64(args.Height) {
		return Pixel{}, false
	}

	return Pixel{X: uint32(fx), Y: uint32(fy)}, true
}
