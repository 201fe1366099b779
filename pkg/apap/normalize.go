package apap

import(
	"math"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

// Normalization is a similarity (or axis scaling) that maps a point set
// into a well conditioned frame, along with the mapped points.
type Normalization struct {
	T      emath.Mat3
	Points []r2.Point
}

func (n Normalization)apply(pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		v := n.T.Apply(emath.Vec3{p.X, p.Y, 1})
		out[i] = r2.Point{X: v[0], Y: v[1]}
	}
	return out
}

// Normalize moves the centroid to the origin and scales isotropically so
// the mean distance from the origin is sqrt(2).
func Normalize(pts []r2.Point) (Normalization, error) {
	if len(pts) == 0 {
		return Normalization{}, errors.Wrap(ErrDegenerateNormalization, "no points")
	}

	c := emath.Centroid(pts)
	meanDist := emath.MeanDistance(pts, c)
	if !(meanDist > 1e-12) || math.IsInf(meanDist, 0) {
		return Normalization{}, errors.Wrapf(ErrDegenerateNormalization, "mean distance %g", meanDist)
	}

	s := math.Sqrt2 / meanDist
	n := Normalization{T: emath.Mat3{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	}}
	n.Points = n.apply(pts)
	return n, nil
}

// Condition scales each axis independently, so that both have zero mean
// and a sample standard deviation of sqrt(2). An axis with no spread at
// all is left unscaled.
func Condition(pts []r2.Point) (Normalization, error) {
	if len(pts) < 2 {
		return Normalization{}, errors.Wrapf(ErrDegenerateNormalization, "%d points", len(pts))
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}

	mx, sx, err := meanAndStd(xs)
	if err != nil {
		return Normalization{}, err
	}
	my, sy, err := meanAndStd(ys)
	if err != nil {
		return Normalization{}, err
	}

	nx, ny := math.Sqrt2/sx, math.Sqrt2/sy
	n := Normalization{T: emath.Mat3{
		nx, 0, -nx * mx,
		0, ny, -ny * my,
		0, 0, 1,
	}}
	if !n.T.IsFinite() {
		return Normalization{}, errors.Wrapf(ErrDegenerateNormalization, "conditioner not finite: std=(%g,%g)", sx, sy)
	}
	n.Points = n.apply(pts)
	return n, nil
}

func meanAndStd(vals []float64) (float64, float64, error) {
	mean, err := stats.Mean(vals)
	if err != nil {
		return 0, 0, errors.Wrap(ErrDegenerateNormalization, err.Error())
	}
	std, err := stats.StandardDeviationSample(vals)
	if err != nil {
		return 0, 0, errors.Wrap(ErrDegenerateNormalization, err.Error())
	}
	if std == 0 {
		std = 1
	}
	return mean, std, nil
}
