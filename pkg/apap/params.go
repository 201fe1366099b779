package apap

import "runtime"

const(
	DefaultSigma    = 8.5
	DefaultGamma    = 0.1
	DefaultMeshCols = 100
	DefaultMeshRows = 100

	MinGlobalCorrespondences = 4
	MinLocalCorrespondences  = 8

	// |H[2][2]| below this means the local solve is unusable
	SingularEpsilon = 1e-8
)

// Params controls the locally weighted solve
type Params struct {
	Sigma   float64 // Gaussian bandwidth of the weights, in pixels
	Gamma   float64 // Floor on the weights, in (0,1]
	Workers int     // Goroutines used for the per-cell solves; <=0 means GOMAXPROCS
}

func DefaultParams() Params {
	return Params{
		Sigma:   DefaultSigma,
		Gamma:   DefaultGamma,
		Workers: runtime.GOMAXPROCS(0),
	}
}

func (p Params)workers() int {
	if p.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Workers
}
