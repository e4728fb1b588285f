package fractals

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Scale resamples img to the given width, keeping its aspect ratio.
func Scale(img image.Image, width int) *image.RGBA {
	bounds := img.Bounds()
	if width <= 0 || bounds.Empty() {
		return image.NewRGBA(image.Rectangle{})
	}

	height := int(math.Round(float64(width) * float64(bounds.Dy()) / float64(bounds.Dx())))
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}
