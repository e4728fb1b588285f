package fractals

// CheckInMandelbrot iterates z = z*z + c from z = 0 with c = real + imag*i.
// It returns the iteration at which |z| exceeded 2, or escaped == false when
// the point stayed bounded for maxIterations steps and is considered part of
// the set. A cap of zero reports every point as a member.
func CheckInMandelbrot(real, imag float64, maxIterations uint32) (iterations uint32, escaped bool) {
	var x, y, x2, y2 float64

	for x2+y2 <= 4 && iterations < maxIterations {
		y = (x+x)*y + imag
		x = x2 - y2 + real
		x2 = x * x
		y2 = y * y
		iterations++
	}

	if iterations >= maxIterations {
		return 0, false
	}
	return iterations, true
}

// Evaluate runs the escape test for a single point.
func Evaluate(real, imag float64, maxIterations uint32) (uint32, bool) {
	return CheckInMandelbrot(real, imag, maxIterations)
}
