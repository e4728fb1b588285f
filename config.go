package fractals

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

const (
	DefaultListen     = ":8080"
	DefaultBackground = "#3a3a6e"
)

type Config struct {
	Concurrency int                  `hcl:"concurrency,optional"`
	Outputs     []*OutputConfigBlock `hcl:"output,block"`
	Views       []*ViewConfigBlock   `hcl:"view,block"`
	Server      *ServerConfigBlock   `hcl:"server,block"`
}

type OutputConfigBlock struct {
	Name          string `hcl:"name,label"`
	Path          string `hcl:"path"`
	IncludeStatic bool   `hcl:"include_static,optional"`
}

type ViewConfigBlock struct {
	Name          string    `hcl:"name,label"`
	Output        string    `hcl:"output,optional"`
	Start         []float64 `hcl:"start"`
	End           []float64 `hcl:"end"`
	Width         int       `hcl:"width"`
	Height        int       `hcl:"height,optional"`
	MaxIterations int       `hcl:"max_iterations"`
	Normalize     string    `hcl:"normalize,optional"`
	BatchPixels   int       `hcl:"batch_pixels,optional"`
	KeepRatio     bool      `hcl:"keep_ratio,optional"`
	Thumbnail     int       `hcl:"thumbnail,optional"`
}

type ServerConfigBlock struct {
	Listen     string `hcl:"listen,optional"`
	Background string `hcl:"background,optional"`
}

func newHCLEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"landmarks": landmarksValue(),
		},
		Functions: map[string]function.Function{
			"min": stdlib.MinFunc,
			"max": stdlib.MaxFunc,
			"abs": stdlib.AbsoluteFunc,
		},
	}
}

// LoadConfig decodes and validates the HCL configuration file at path.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	evalCtx := newHCLEvalContext()
	err := hclsimple.DecodeFile(path, evalCtx, &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseConfig decodes configuration source; filename is used for
// diagnostics and must end in .hcl.
func ParseConfig(filename string, src []byte) (*Config, error) {
	var cfg Config
	evalCtx := newHCLEvalContext()
	err := hclsimple.Decode(filename, src, evalCtx, &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	outputs := map[string]struct{}{}
	for _, output := range c.Outputs {
		if _, ok := outputs[output.Name]; ok {
			return fmt.Errorf("output %q is defined more than once", output.Name)
		}
		outputs[output.Name] = struct{}{}
	}

	views := map[string]struct{}{}
	for _, view := range c.Views {
		if _, ok := views[view.Name]; ok {
			return fmt.Errorf("view %q is defined more than once", view.Name)
		}
		views[view.Name] = struct{}{}

		if view.Output != "" {
			if _, ok := outputs[view.Output]; !ok {
				return fmt.Errorf("view %q: unknown output %q", view.Name, view.Output)
			}
		}

		if _, err := view.Args(); err != nil {
			return fmt.Errorf("view %q: %w", view.Name, err)
		}
		if _, err := ParseNormalization(view.Normalize); err != nil {
			return fmt.Errorf("view %q: %w", view.Name, err)
		}
		if view.BatchPixels < 0 || view.Thumbnail < 0 {
			return fmt.Errorf("view %q: batch_pixels and thumbnail must not be negative", view.Name)
		}
	}

	if c.Server != nil && c.Server.Background != "" {
		if _, err := ParseColor(c.Server.Background); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	return nil
}

// View returns the view with the given name, or nil.
func (c *Config) View(name string) *ViewConfigBlock {
	for _, view := range c.Views {
		if view.Name == name {
			return view
		}
	}
	return nil
}

func (c *Config) Listen() string {
	if c.Server == nil || c.Server.Listen == "" {
		return DefaultListen
	}
	return c.Server.Listen
}

// Background returns the colour drawn before any chunk has been rendered.
func (c *Config) Background() color.Color {
	hex := DefaultBackground
	if c.Server != nil && c.Server.Background != "" {
		hex = c.Server.Background
	}
	clr, err := ParseColor(hex)
	if err != nil {
		return gamut.Hex(DefaultBackground)
	}
	return clr
}

func complexFromList(name string, v []float64) (Complex, error) {
	if len(v) != 2 {
		return Complex{}, fmt.Errorf("%s must be [real, imag], got %d values", name, len(v))
	}
	return Complex{Real: v[0], Imag: v[1]}, nil
}

// Args converts the view into render arguments. A missing height, or
// keep_ratio, derives the height from the viewport's aspect ratio.
func (v *ViewConfigBlock) Args() (RenderArgs, error) {
	start, err := complexFromList("start", v.Start)
	if err != nil {
		return RenderArgs{}, err
	}
	end, err := complexFromList("end", v.End)
	if err != nil {
		return RenderArgs{}, err
	}

	if v.Width <= 0 || v.Height < 0 || v.MaxIterations < 0 {
		return RenderArgs{}, fmt.Errorf("%w: width %d height %d max_iterations %d", ErrDegenerateViewport, v.Width, v.Height, v.MaxIterations)
	}
	if uint64(v.Width) > math.MaxUint32 || uint64(v.Height) > math.MaxUint32 || uint64(v.MaxIterations) > math.MaxUint32 {
		return RenderArgs{}, fmt.Errorf("%w: width %d height %d max_iterations %d must fit in 32 bits", ErrDegenerateViewport, v.Width, v.Height, v.MaxIterations)
	}

	args := RenderArgs{
		Start:         start,
		End:           end,
		Width:         uint32(v.Width),
		Height:        uint32(v.Height),
		MaxIterations: uint32(v.MaxIterations),
	}
	if v.KeepRatio || v.Height == 0 {
		args = args.KeepRatio()
	}

	return args, args.Validate()
}

// RenderOpts builds renderer options for the view.
func (v *ViewConfigBlock) RenderOpts(cfg *Config) RenderOpts {
	normalize, _ := ParseNormalization(v.Normalize)
	return RenderOpts{
		Concurrency: cfg.Concurrency,
		BatchSize:   v.BatchPixels,
		Normalize:   normalize,
		Background:  cfg.Background(),
	}
}

// ParseColor parses a hex colour such as "#3a3a6e".
func ParseColor(hex string) (color.Color, error) {
	clr, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return clr, nil
}

// HexColor formats clr as a "#rrggbb" string.
func HexColor(clr color.Color) string {
	c, _ := colorful.MakeColor(clr)
	return c.Hex()
}

// AccentColor returns the colour used to highlight content drawn on top of
// background.
func AccentColor(background color.Color) color.Color {
	return gamut.Complementary(background)
}
