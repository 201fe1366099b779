package pano

import(
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/apap-stitch/pkg/apap"
)

type Config struct {
	Verbosity        int

	MeshCols         int
	MeshRows         int
	Sigma            float64   // Bandwidth of the location weights, in pixels
	Gamma            float64   // Floor of the location weights

	RansacIterations int
	RansacThreshold  float64   // pixels
	RansacSeed       int64

	MaxCanvasPixels  int       // Refuse to build a bigger canvas than this
	MaxImagePixels   int       // Inputs bigger than this are scaled down as they are loaded; 0 to disable

	Blend            string    // "max" or "feather"
	Workers          int       // 0 means GOMAXPROCS
	DebugDir         string    // Where debug images go, if Verbosity > 0
}

func NewConfig() Config {
	return Config{
		MeshCols:         apap.DefaultMeshCols,
		MeshRows:         apap.DefaultMeshRows,
		Sigma:            apap.DefaultSigma,
		Gamma:            apap.DefaultGamma,
		RansacIterations: apap.DefaultRansacIterations,
		RansacThreshold:  apap.DefaultRansacThreshold,
		RansacSeed:       1,
		MaxCanvasPixels:  5000 * 5000,
		MaxImagePixels:   700 * 700,
		Blend:            BlendMax.String(),
		DebugDir:         ".",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, errors.Wrap(err, "config yaml")
	}
	return c, c.Validate()
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "# can't marshal config yaml: " + err.Error()
	}
	return string(b)
}

func (c Config)Validate() error {
	switch {
	case c.MeshCols <= 0 || c.MeshRows <= 0:
		return errors.Errorf("mesh must have at least one cell, not %dx%d", c.MeshCols, c.MeshRows)
	case c.Sigma <= 0:
		return errors.Errorf("sigma must be positive, not %g", c.Sigma)
	case c.Gamma <= 0 || c.Gamma > 1:
		return errors.Errorf("gamma must be in (0,1], not %g", c.Gamma)
	case c.RansacIterations <= 0:
		return errors.Errorf("need some RANSAC iterations, not %d", c.RansacIterations)
	case c.RansacThreshold <= 0:
		return errors.Errorf("RANSAC threshold must be positive, not %g", c.RansacThreshold)
	case c.MaxCanvasPixels <= 0:
		return errors.Errorf("max canvas pixels must be positive, not %d", c.MaxCanvasPixels)
	case c.MaxImagePixels < 0:
		return errors.Errorf("max image pixels can't be negative")
	}
	_, err := c.GetBlender()
	return err
}

func (c Config)GetBlender() (Blender, error) {
	mode, err := ParseBlendMode(c.Blend)
	if err != nil {
		return nil, err
	}
	return mode.Blender(c.workers()), nil
}

func (c Config)workers() int {
	if c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}

func (c Config)apapParams() apap.Params {
	return apap.Params{Sigma: c.Sigma, Gamma: c.Gamma, Workers: c.workers()}
}

func (c Config)ransacParams() apap.RansacParams {
	return apap.RansacParams{Iterations: c.RansacIterations, Threshold: c.RansacThreshold, Seed: c.RansacSeed}
}
