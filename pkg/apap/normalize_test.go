package apap

import(
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"go.viam.com/test"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

var scatter = []r2.Point{
	{X: 12, Y: 400}, {X: 250, Y: 31}, {X: 610, Y: 90}, {X: 77, Y: 77},
	{X: 300, Y: 300}, {X: 5, Y: 190}, {X: 512, Y: 410}, {X: 420, Y: 12},
}

func TestNormalize(t *testing.T) {
	n, err := Normalize(scatter)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n.Points, test.ShouldHaveLength, len(scatter))

	c := emath.Centroid(n.Points)
	test.That(t, c.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, c.Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, emath.MeanDistance(n.Points, r2.Point{}), test.ShouldAlmostEqual, math.Sqrt2, 1e-9)

	// T really is what produced the points
	p, ok := n.T.Project(scatter[3])
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, n.Points[3].X, 1e-12)
	test.That(t, p.Y, test.ShouldAlmostEqual, n.Points[3].Y, 1e-12)
}

func TestNormalizeDegenerate(t *testing.T) {
	for _, tc := range []struct {
		name string
		pts  []r2.Point
	}{
		{"empty", nil},
		{"coincident", []r2.Point{{X: 3, Y: 4}, {X: 3, Y: 4}, {X: 3, Y: 4}}},
		{"not finite", []r2.Point{{X: math.Inf(1), Y: 0}, {X: 0, Y: 0}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.pts)
			test.That(t, errors.Is(err, ErrDegenerateNormalization), test.ShouldBeTrue)
		})
	}
}

func TestCondition(t *testing.T) {
	c, err := Condition(scatter)
	test.That(t, err, test.ShouldBeNil)

	xs, ys := []float64{}, []float64{}
	for _, p := range c.Points {
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}
	mx, _ := stats.Mean(xs)
	my, _ := stats.Mean(ys)
	sx, _ := stats.StandardDeviationSample(xs)
	sy, _ := stats.StandardDeviationSample(ys)
	test.That(t, mx, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, my, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, sx, test.ShouldAlmostEqual, math.Sqrt2, 1e-9)
	test.That(t, sy, test.ShouldAlmostEqual, math.Sqrt2, 1e-9)
}

func TestConditionFlatAxis(t *testing.T) {
	// All on a horizontal line: y has no spread, and is only shifted
	c, err := Condition([]r2.Point{{X: 0, Y: 5}, {X: 10, Y: 5}, {X: 20, Y: 5}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.T[4], test.ShouldAlmostEqual, math.Sqrt2)
	for _, p := range c.Points {
		test.That(t, p.Y, test.ShouldAlmostEqual, 0)
	}

	_, err = Condition([]r2.Point{{X: 1, Y: 1}})
	test.That(t, errors.Is(err, ErrDegenerateNormalization), test.ShouldBeTrue)
}
