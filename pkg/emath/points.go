package emath

import(
	"math"

	"github.com/golang/geo/r2"
)

func Centroid(pts []r2.Point) r2.Point {
	c := r2.Point{}
	if len(pts) == 0 {
		return c
	}
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Mul(1.0 / float64(len(pts)))
}

// MeanDistance is the average Euclidean distance of the points from c
func MeanDistance(pts []r2.Point, c r2.Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range pts {
		sum += p.Sub(c).Norm()
	}
	return sum / float64(len(pts))
}

func Dist2(a, b r2.Point) float64 {
	d := a.Sub(b)
	return d.X*d.X + d.Y*d.Y
}

func ProjectAll(m Mat3, pts []r2.Point) ([]r2.Point, bool) {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		q, ok := m.Project(p)
		if !ok {
			return nil, false
		}
		out[i] = q
	}
	return out, true
}

func IsFinitePoint(p r2.Point) bool {
	return !(math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0))
}
