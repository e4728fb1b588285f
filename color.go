package fractals

import (
	"image/color"
	"math"
)

var memberColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// ColorFor maps an escape count onto the render gradient. Points that never
// escaped are drawn white.
func ColorFor(iterations uint32, escaped bool, maxIterations uint32) color.RGBA {
	if !escaped {
		return memberColor
	}

	t := intensity(iterations, maxIterations)
	return color.RGBA{
		R: t / 2,
		G: 0,
		B: t / 3,
		A: 255,
	}
}

// intensity scales log2(n*1.2) against log2(maxIterations) into 0..255.
func intensity(iterations, maxIterations uint32) uint8 {
	v := math.Log2(float64(iterations)*1.2) / math.Log2(float64(maxIterations)) * 255
	if math.IsNaN(v) {
		return 0
	}
	return uint8(clamp(v, 0, 255))
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func drawColor(img []byte, offset int, clr color.RGBA) {
	img[offset] = clr.R
	img[offset+1] = clr.G
	img[offset+2] = clr.B
	img[offset+3] = clr.A
}
