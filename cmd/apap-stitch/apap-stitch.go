package main

import(
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abworrall/apap-stitch/pkg/pano"
)

func main() {
	app := &cli.App{
		Name:      "apap-stitch",
		Usage:     "stitch overlapping photos into a panorama with as-projective-as-possible warps",
		ArgsUsage: "[config.yaml] matches.yaml images-or-dirs...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "v", Usage: "how verbose to get (>0 also writes debug images)"},
			&cli.StringFlag{Name: "o", Value: "panorama.png", Usage: "name of output PNG"},
			&cli.StringFlag{Name: "blend", Usage: "how to blend overlaps: " + pano.ListBlendModes()},
			&cli.IntFlag{Name: "meshcols", Usage: "mesh cells across"},
			&cli.IntFlag{Name: "meshrows", Usage: "mesh cells down"},
			&cli.Float64Flag{Name: "sigma", Usage: "bandwidth of the location weights, in pixels"},
			&cli.Float64Flag{Name: "gamma", Usage: "floor on the location weights"},
			&cli.Int64Flag{Name: "seed", Usage: "RANSAC random seed"},
			&cli.IntFlag{Name: "maxcanvas", Usage: "refuse canvases with more pixels than this"},
			&cli.IntFlag{Name: "maximage", Usage: "shrink inputs to at most this many pixels (0 disables)"},
			&cli.IntFlag{Name: "workers", Usage: "goroutines per parallel stage (0 for one per CPU)"},
			&cli.StringFlag{Name: "debugdir", Usage: "where to write debug images"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "apap-stitch: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbosity int) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbosity > 0 {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Int("v"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	if c.NArg() == 0 {
		return cli.ShowAppHelp(c)
	}

	in := pano.NewInputs(logger)
	if err := in.LoadFilesAndDirs(c.Args().Slice()...); err != nil {
		return err
	}

	// Override the config file with command line args, if given
	cfg := &in.Config
	if c.IsSet("v")        { cfg.Verbosity = c.Int("v") }
	if c.IsSet("blend")    { cfg.Blend = c.String("blend") }
	if c.IsSet("meshcols") { cfg.MeshCols = c.Int("meshcols") }
	if c.IsSet("meshrows") { cfg.MeshRows = c.Int("meshrows") }
	if c.IsSet("sigma")    { cfg.Sigma = c.Float64("sigma") }
	if c.IsSet("gamma")    { cfg.Gamma = c.Float64("gamma") }
	if c.IsSet("seed")     { cfg.RansacSeed = c.Int64("seed") }
	if c.IsSet("maxcanvas"){ cfg.MaxCanvasPixels = c.Int("maxcanvas") }
	if c.IsSet("workers")  { cfg.Workers = c.Int("workers") }
	if c.IsSet("debugdir") { cfg.DebugDir = c.String("debugdir") }
	if c.IsSet("maximage") {
		// Layers were shrunk as they loaded; redo them at the new size
		cfg.MaxImagePixels = c.Int("maximage")
		if err := reloadLayers(in); err != nil {
			return err
		}
	}

	if cfg.Verbosity > 0 {
		logger.Infof("Final configuration:-\n\n%s", cfg.AsYaml())
	}

	if in.Matches == nil {
		return errors.New("no matches .yaml given (feature matching is not built in)")
	}
	in.Matches.UseLayers(in.Layers)

	s := pano.NewStitcher(in.Config, in.Matches, logger)
	out, err := s.Stitch(context.Background(), pano.LayerImages(in.Layers))
	if err != nil {
		return err
	}
	for _, st := range s.Stats {
		logger.Info(st.String())
	}

	if err := pano.WritePNG(out, c.String("o")); err != nil {
		return err
	}
	logger.Infof("Panorama written to '%s'", c.String("o"))
	return nil
}

func reloadLayers(in *pano.Inputs) error {
	for i, l := range in.Layers {
		reloaded, err := pano.LoadLayer(l.LoadFilename, in.Config.MaxImagePixels)
		if err != nil {
			return err
		}
		in.Layers[i] = reloaded
	}
	return nil
}
