package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"

	"github.com/b1naryth1ef/fractals"
	"github.com/b1naryth1ef/fractals/build"
	"github.com/b1naryth1ef/fractals/serve"
	"github.com/urfave/cli/v2"
)

func main() {
	configFlag := &cli.PathFlag{
		Name:  "config",
		Usage: "path to the configuration file",
		Value: "config.hcl",
	}

	app := &cli.App{
		Name:        "fractals",
		Description: "chunked mandelbrot renderer",
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "render every configured view into its output",
				Action: commandBuild,
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "clean",
						Usage: "force a clean build ignoring previously rendered views",
						Value: false,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "serve configured views over http and stream renders over websockets",
				Action: commandServe,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "listen",
						Usage: "address to listen on, overrides the server block",
					},
				},
			},
			{
				Name:      "eval",
				Usage:     "run the escape test for a single point",
				ArgsUsage: "<real> <imag>",
				Action:    commandEval,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  "max-iterations",
						Usage: "iteration cap for the escape test",
						Value: 1000,
					},
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func commandBuild(ctx *cli.Context) error {
	config, err := fractals.LoadConfig(ctx.Path("config"))
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
	defer stop()

	return build.Build(sigCtx, config, build.BuildOpts{
		ForceClean: ctx.Bool("clean"),
	})
}

func commandServe(ctx *cli.Context) error {
	config, err := fractals.LoadConfig(ctx.Path("config"))
	if err != nil {
		return err
	}

	listen := config.Listen()
	if ctx.IsSet("listen") {
		listen = ctx.String("listen")
	}

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
	defer stop()

	return serve.NewServer(config).ListenAndServe(sigCtx, listen)
}

func commandEval(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.Exit("eval expects <real> <imag>", 2)
	}

	real, err := strconv.ParseFloat(ctx.Args().Get(0), 64)
	if err != nil {
		return fmt.Errorf("invalid real part: %w", err)
	}
	imag, err := strconv.ParseFloat(ctx.Args().Get(1), 64)
	if err != nil {
		return fmt.Errorf("invalid imaginary part: %w", err)
	}

	maxIterations := ctx.Uint("max-iterations")
	if uint64(maxIterations) > math.MaxUint32 {
		return fmt.Errorf("max-iterations %d does not fit in 32 bits", maxIterations)
	}
	c := fractals.Complex{Real: real, Imag: imag}

	n, escaped := fractals.Evaluate(c.Real, c.Imag, uint32(maxIterations))
	if !escaped {
		fmt.Fprintf(ctx.App.Writer, "%s is in the set (no escape within %d iterations)\n", c, maxIterations)
		return nil
	}

	fmt.Fprintf(ctx.App.Writer, "%s escaped after %d iterations\n", c, n)
	return nil
}
