package apap

import(
	"context"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

var hTrue = emath.Mat3{
	1.02, 0.01, -30,
	0.005, 0.98, 12,
	1e-5, 2e-5, 1,
}

// gridCorrespondences lays out cols x rows base points over w x h and maps
// them through h.
func gridCorrespondences(t *testing.T, h emath.Mat3, cols, rows int, w, ht float64) Correspondences {
	t.Helper()
	c := Correspondences{}
	for i:=0; i<rows; i++ {
		for j:=0; j<cols; j++ {
			// a little jitter keeps the points off a perfect lattice
			p := r2.Point{X: float64(j)*w/float64(cols-1) + float64(i%3), Y: float64(i)*ht/float64(rows-1) + float64(j%2)}
			q, ok := h.Project(p)
			test.That(t, ok, test.ShouldBeTrue)
			c.Src = append(c.Src, p)
			c.Dst = append(c.Dst, q)
		}
	}
	return c
}

func shouldMatchHomography(t *testing.T, got, want emath.Mat3, tol float64) {
	t.Helper()
	for i := range want {
		test.That(t, got[i], test.ShouldAlmostEqual, want[i], tol*math.Max(1, math.Abs(want[i])))
	}
}

func TestWeight(t *testing.T) {
	test.That(t, Weight(0, DefaultSigma, DefaultGamma), test.ShouldEqual, 1.0)
	test.That(t, Weight(1e6, DefaultSigma, DefaultGamma), test.ShouldEqual, DefaultGamma)

	prev := 1.0
	for d := 0.0; d < 50; d += 0.5 {
		w := Weight(d*d, DefaultSigma, DefaultGamma)
		test.That(t, w, test.ShouldBeLessThanOrEqualTo, prev)
		test.That(t, w, test.ShouldBeGreaterThanOrEqualTo, DefaultGamma)
		prev = w
	}
}

func TestBuildA(t *testing.T) {
	a := buildA([]r2.Point{{X: 2, Y: 3}}, []r2.Point{{X: 5, Y: 7}})
	r, c := a.Dims()
	test.That(t, r, test.ShouldEqual, 2)
	test.That(t, c, test.ShouldEqual, 9)
	test.That(t, a.RawRowView(0), test.ShouldResemble, []float64{2, 3, 1, 0, 0, 0, -10, -15, -5})
	test.That(t, a.RawRowView(1), test.ShouldResemble, []float64{0, 0, 0, 2, 3, 1, -14, -21, -7})
}

func TestSolverRecoversExactHomography(t *testing.T) {
	c := gridCorrespondences(t, hTrue, 4, 3, 400, 300)
	s, err := NewSolver(c)
	test.That(t, err, test.ShouldBeNil)

	grid := NewMeshGrid(5, 4, 400, 300, r2.Point{})
	p := DefaultParams()
	p.Workers = 3
	hs, err := LocalHomographies(context.Background(), s, grid, p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hs, test.ShouldHaveLength, grid.Len())

	for _, h := range hs {
		test.That(t, h[8], test.ShouldEqual, 1.0)
		shouldMatchHomography(t, h, hTrue, 1e-6)
	}
}

func TestSolverIdentity(t *testing.T) {
	c := gridCorrespondences(t, emath.Identity(), 3, 3, 200, 200)
	s, err := NewSolver(c)
	test.That(t, err, test.ShouldBeNil)

	for _, center := range []r2.Point{{X: 0, Y: 0}, {X: 100, Y: 100}, {X: -50, Y: 320}} {
		h, err := s.Solve(center, DefaultParams())
		test.That(t, err, test.ShouldBeNil)
		shouldMatchHomography(t, h, emath.Identity(), 1e-9)
	}
}

func TestSolverWeightsFavourNearbyPoints(t *testing.T) {
	// Left half of the points moved by one translation, right half by another.
	// A cell on the left should lean towards the left translation.
	c := Correspondences{}
	for i:=0; i<5; i++ {
		for j:=0; j<2; j++ {
			left := r2.Point{X: float64(j*10), Y: float64(i*20)}
			right := r2.Point{X: 300 + float64(j*10), Y: float64(i*20)}
			c.Src = append(c.Src, left, right)
			c.Dst = append(c.Dst, left.Add(r2.Point{X: 5}), right.Add(r2.Point{X: 40}))
		}
	}
	s, err := NewSolver(c)
	test.That(t, err, test.ShouldBeNil)

	p := DefaultParams()
	p.Gamma = 0.001
	h, err := s.Solve(r2.Point{X: 5, Y: 40}, p)
	test.That(t, err, test.ShouldBeNil)
	q, ok := h.Project(r2.Point{X: 5, Y: 40})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, q.X - 5, test.ShouldAlmostEqual, 5, 1)
}

func TestSolverErrors(t *testing.T) {
	t.Run("too few", func(t *testing.T) {
		c := gridCorrespondences(t, hTrue, 3, 3, 100, 100)
		c.Src, c.Dst = c.Src[:7], c.Dst[:7]
		_, err := NewSolver(c)
		test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)
	})

	t.Run("mismatched", func(t *testing.T) {
		c := gridCorrespondences(t, hTrue, 3, 3, 100, 100)
		c.Dst = c.Dst[1:]
		_, err := NewSolver(c)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("degenerate", func(t *testing.T) {
		c := Correspondences{}
		for i:=0; i<8; i++ {
			c.Src = append(c.Src, r2.Point{X: 1, Y: 1})
			c.Dst = append(c.Dst, r2.Point{X: float64(i), Y: 2})
		}
		_, err := NewSolver(c)
		test.That(t, errors.Is(err, ErrDegenerateNormalization), test.ShouldBeTrue)
	})

	t.Run("singular", func(t *testing.T) {
		// Everything in dst is pushed to infinity, so H[2][2] vanishes
		s, err := NewSolver(gridCorrespondences(t, hTrue, 3, 3, 100, 100))
		test.That(t, err, test.ShouldBeNil)
		s.dstTInv = emath.Mat3{1, 0, 0,   0, 1, 0,   0, 0, 0}
		s.srcT = emath.Mat3{1, 0, 0,   0, 1, 0,   0, 0, 0}

		hs, err := LocalHomographies(context.Background(), s, NewMeshGrid(2, 2, 10, 10, r2.Point{}), DefaultParams())
		test.That(t, hs, test.ShouldBeNil)
		test.That(t, errors.Is(err, ErrSingularHomography), test.ShouldBeTrue)
	})

	t.Run("cancelled", func(t *testing.T) {
		s, err := NewSolver(gridCorrespondences(t, hTrue, 3, 3, 100, 100))
		test.That(t, err, test.ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = LocalHomographies(ctx, s, NewMeshGrid(2, 2, 10, 10, r2.Point{}), DefaultParams())
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	})
}
