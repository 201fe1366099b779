package apap

import(
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

// Correspondences are matched point pairs, in pixels. Src[i] is a point
// in the base (canvas) frame, Dst[i] the same scene point in the image
// being added.
type Correspondences struct {
	Src []r2.Point
	Dst []r2.Point
}

func (c Correspondences)Len() int { return len(c.Src) }

func (c Correspondences)Validate(min int) error {
	if len(c.Src) != len(c.Dst) {
		return errors.Errorf("correspondences: %d src points but %d dst", len(c.Src), len(c.Dst))
	}
	if len(c.Src) < min {
		return errors.Wrapf(ErrInsufficientCorrespondences, "have %d, need %d", len(c.Src), min)
	}
	return nil
}

// Subset returns the pairs at the given indices
func (c Correspondences)Subset(idx []int) Correspondences {
	out := Correspondences{Src: make([]r2.Point, len(idx)), Dst: make([]r2.Point, len(idx))}
	for i, j := range idx {
		out.Src[i], out.Dst[i] = c.Src[j], c.Dst[j]
	}
	return out
}

// Swap reverses the direction of the correspondences
func (c Correspondences)Swap() Correspondences {
	return Correspondences{Src: c.Dst, Dst: c.Src}
}

// Weight is the influence of a correspondence at squared distance dist2
// from a cell center: a Gaussian in the distance, floored at gamma.
func Weight(dist2, sigma, gamma float64) float64 {
	return math.Max(gamma, math.Exp(-dist2/(sigma*sigma)))
}

// A Solver holds the conditioned DLT system for a set of
// correspondences, ready to be solved with any set of per-pair weights.
// It is read only once built, so one Solver can serve many goroutines.
type Solver struct {
	src      []r2.Point  // pixel coords, for the weights
	a        *mat.Dense  // 2n x 9
	srcT     emath.Mat3  // C_src * N_src
	dstTInv  emath.Mat3  // inv(N_dst) * inv(C_dst)
}

// NewSolver builds the solver used for the local (per-cell) homographies,
// which needs at least 8 correspondences.
func NewSolver(c Correspondences) (*Solver, error) {
	return newSolver(c, MinLocalCorrespondences)
}

func newSolver(c Correspondences, min int) (*Solver, error) {
	if err := c.Validate(min); err != nil {
		return nil, err
	}

	srcT, srcPts, err := normalizeAndCondition(c.Src)
	if err != nil {
		return nil, errors.Wrap(err, "src points")
	}
	dstT, dstPts, err := normalizeAndCondition(c.Dst)
	if err != nil {
		return nil, errors.Wrap(err, "dst points")
	}
	dstTInv, err := dstT.Inverse()
	if err != nil {
		return nil, errors.Wrap(ErrDegenerateNormalization, err.Error())
	}

	return &Solver{
		src:     c.Src,
		a:       buildA(srcPts, dstPts),
		srcT:    srcT,
		dstTInv: dstTInv,
	}, nil
}

func normalizeAndCondition(pts []r2.Point) (emath.Mat3, []r2.Point, error) {
	n, err := Normalize(pts)
	if err != nil {
		return emath.Mat3{}, nil, err
	}
	c, err := Condition(n.Points)
	if err != nil {
		return emath.Mat3{}, nil, err
	}
	return c.T.Mult(n.T), c.Points, nil
}

// buildA lays out the DLT system, two rows per pair, such that A.h = 0
// for the row-major h of the homography taking src to dst.
func buildA(src, dst []r2.Point) *mat.Dense {
	a := mat.NewDense(2*len(src), 9, nil)
	for k := range src {
		x, y := src[k].X, src[k].Y
		xp, yp := dst[k].X, dst[k].Y
		a.SetRow(2*k,   []float64{x, y, 1, 0, 0, 0, -x*xp, -y*xp, -xp})
		a.SetRow(2*k+1, []float64{0, 0, 0, x, y, 1, -x*yp, -y*yp, -yp})
	}
	return a
}

func (s *Solver)Len() int { return len(s.src) }

// Weights computes the per-pair weights for a cell centered at center
func (s *Solver)Weights(center r2.Point, p Params) []float64 {
	w := make([]float64, len(s.src))
	for k, pt := range s.src {
		w[k] = Weight(emath.Dist2(center, pt), p.Sigma, p.Gamma)
	}
	return w
}

// Solve returns the homography fitted around center, mapping base frame
// points to the image being added. H[2][2] is 1.
func (s *Solver)Solve(center r2.Point, p Params) (emath.Mat3, error) {
	return s.SolveWeighted(s.Weights(center, p))
}

// SolveWeighted scales each pair's rows by its weight and takes the right
// singular vector of the smallest singular value as the solution.
func (s *Solver)SolveWeighted(weights []float64) (emath.Mat3, error) {
	if len(weights) != len(s.src) {
		return emath.Mat3{}, errors.Errorf("solve: %d weights for %d pairs", len(weights), len(s.src))
	}

	rows, cols := s.a.Dims()
	wa := mat.NewDense(rows, cols, nil)
	for r:=0; r<rows; r++ {
		w := weights[r/2]
		for c:=0; c<cols; c++ {
			wa.Set(r, c, w * s.a.At(r, c))
		}
	}

	// Full V, so there is a null vector even when there are fewer than 9 rows
	var svd mat.SVD
	if ok := svd.Factorize(wa, mat.SVDFullV); !ok {
		return emath.Mat3{}, errors.Wrap(ErrSingularHomography, "SVD failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	hc := emath.Mat3{}
	for i:=0; i<9; i++ {
		hc[i] = v.At(i, 8)
	}

	h := s.dstTInv.Mult(hc).Mult(s.srcT)
	hn, ok := h.Normalized(SingularEpsilon)
	if !ok || !hn.IsFinite() {
		return emath.Mat3{}, errors.Wrapf(ErrSingularHomography, "H[2][2]=%g", h[8])
	}
	return hn, nil
}

// LocalHomographies solves one homography per mesh cell, centered on the
// cell. The cells are independent, and are farmed out to a pool of
// goroutines. Every failed cell is reported, combined into one error.
func LocalHomographies(ctx context.Context, s *Solver, grid MeshGrid, p Params) ([]emath.Mat3, error) {
	n := grid.Len()
	hs := make([]emath.Mat3, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	jobsChan := make(chan int, n)

	// Kick off worker pool
	nWorkers := p.workers()
	for i:=0; i<nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobsChan {
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					continue
				}
				h, err := s.Solve(grid.Center(idx), p)
				if err != nil {
					errs[idx] = errors.Wrapf(err, "cell %d", idx)
					continue
				}
				hs[idx] = h
			}
		}()
	}

	// Feed in jobs
	for idx:=0; idx<n; idx++ {
		jobsChan<- idx
	}
	close(jobsChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	return hs, nil
}
