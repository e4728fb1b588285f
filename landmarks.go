package fractals

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Landmark is a well known region of the Mandelbrot set.
type Landmark struct {
	Name  string
	Start Complex
	End   Complex
}

// Landmarks are exposed to configuration files as the `landmarks` variable.
// Start holds the lower imaginary bound so that the top image row shows the
// upper edge of the region.
var Landmarks = []Landmark{
	// the whole set
	{Name: "overview", Start: Complex{-2, -1.5}, End: Complex{1, 1.5}},
	// dense filaments and repeating curls
	{Name: "seahorse_valley", Start: Complex{-0.8, 0.05}, End: Complex{-0.7, 0.15}},
	// large bulb with trunk-like tendrils
	{Name: "elephant_valley", Start: Complex{-1.85, -0.10}, End: Complex{-1.75, -0.02}},
	{Name: "spiral_minibrot", Start: Complex{-0.7435, 0.1310}, End: Complex{-0.7420, 0.1325}},
	{Name: "triple_spiral", Start: Complex{-0.7480, 0.0950}, End: Complex{-0.7450, 0.0980}},
	{Name: "valley_of_the_dragon", Start: Complex{-0.7400, 0.1800}, End: Complex{-0.7350, 0.1850}},
	// self-similar copy inside a spiral arm
	{Name: "minibrot_in_mini_spiral", Start: Complex{-1.7390, -0.0235}, End: Complex{-1.7375, -0.0220}},
}

func complexToCty(c Complex) cty.Value {
	return cty.TupleVal([]cty.Value{
		cty.NumberFloatVal(c.Real),
		cty.NumberFloatVal(c.Imag),
	})
}

func landmarksValue() cty.Value {
	values := make(map[string]cty.Value, len(Landmarks))
	for _, l := range Landmarks {
		values[l.Name] = cty.ObjectVal(map[string]cty.Value{
			"start": complexToCty(l.Start),
			"end":   complexToCty(l.End),
		})
	}
	return cty.ObjectVal(values)
}

// LandmarkNames returns the names of all landmarks in sorted order.
func LandmarkNames() []string {
	names := make([]string, 0, len(Landmarks))
	for _, l := range Landmarks {
		names = append(names, l.Name)
	}
	sort.Strings(names)
	return names
}
