package fractals

import "testing"

const testMaxIterations = 100000

func TestCheckInMandelbrot_Members(t *testing.T) {
	for _, c := range []Complex{{0, 0}, {0, -1}, {-1, 0}, {-0.5, 0.25}} {
		if n, escaped := CheckInMandelbrot(c.Real, c.Imag, testMaxIterations); escaped {
			t.Errorf("%s escaped after %d iterations, want member", c, n)
		}
	}
}

func TestCheckInMandelbrot_Escapes(t *testing.T) {
	for _, c := range []Complex{{-2.1, 0}, {0.26, 0}, {1, 1}} {
		n, escaped := CheckInMandelbrot(c.Real, c.Imag, testMaxIterations)
		if !escaped {
			t.Errorf("%s did not escape, want escape", c)
			continue
		}
		if n >= testMaxIterations {
			t.Errorf("%s escaped at %d, want fewer than %d", c, n, testMaxIterations)
		}
	}
}

func TestCheckInMandelbrot_ExactCounts(t *testing.T) {
	tests := []struct {
		c       Complex
		max     uint32
		want    uint32
		escaped bool
	}{
		// |z1| = 2.1 is already past the bailout
		{Complex{-2.1, 0}, 100, 1, true},
		// |z1|^2 = 4 sits on the bailout and keeps iterating
		{Complex{2, 0}, 100, 2, true},
		// escaping on the last allowed step counts as a member
		{Complex{-2.1, 0}, 1, 0, false},
		{Complex{-2, -1.5}, 100, 1, true},
	}

	for _, tt := range tests {
		n, escaped := CheckInMandelbrot(tt.c.Real, tt.c.Imag, tt.max)
		if n != tt.want || escaped != tt.escaped {
			t.Errorf("CheckInMandelbrot(%s, %d) = %d, %v, want %d, %v", tt.c, tt.max, n, escaped, tt.want, tt.escaped)
		}
	}
}

func TestCheckInMandelbrot_ZeroCap(t *testing.T) {
	for _, c := range []Complex{{0, 0}, {-2.1, 0}, {100, -100}} {
		if n, escaped := Evaluate(c.Real, c.Imag, 0); escaped || n != 0 {
			t.Errorf("Evaluate(%s, 0) = %d, %v, want member", c, n, escaped)
		}
	}
}
