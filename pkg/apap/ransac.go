package apap

import(
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

const(
	DefaultRansacIterations = 500
	DefaultRansacThreshold  = 30.0 // pixels
)

type RansacParams struct {
	Iterations int
	Threshold  float64 // reprojection distance for an inlier, in pixels
	Seed       int64
}

func DefaultRansacParams() RansacParams {
	return RansacParams{
		Iterations: DefaultRansacIterations,
		Threshold:  DefaultRansacThreshold,
		Seed:       1,
	}
}

// FitHomography is the plain (unit weight) normalized DLT fit, mapping
// c.Src onto c.Dst. Needs at least 4 pairs.
func FitHomography(c Correspondences) (emath.Mat3, error) {
	s, err := newSolver(c, MinGlobalCorrespondences)
	if err != nil {
		return emath.Mat3{}, err
	}
	w := make([]float64, s.Len())
	for i := range w {
		w[i] = 1
	}
	return s.SolveWeighted(w)
}

// EstimateGlobal robustly fits the single homography that maps the image
// being added (c.Dst) into the base frame (c.Src). It returns the indices
// of the inlier pairs, which are all that should be used downstream.
func EstimateGlobal(c Correspondences, p RansacParams) (emath.Mat3, []int, error) {
	if err := c.Validate(MinGlobalCorrespondences); err != nil {
		return emath.Mat3{}, nil, err
	}

	rev := c.Swap()
	n := rev.Len()
	rnd := rand.New(rand.NewSource(p.Seed))

	bestInliers := []int{}
	var bestH emath.Mat3

	for iter:=0; iter<p.Iterations; iter++ {
		sample := rnd.Perm(n)[:MinGlobalCorrespondences]

		h, err := FitHomography(rev.Subset(sample))
		if err != nil {
			continue // degenerate sample
		}

		if inliers := findInliers(h, rev, p.Threshold); len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestH = h
		}
	}

	if len(bestInliers) < MinGlobalCorrespondences {
		return emath.Mat3{}, nil, errors.Wrapf(ErrInsufficientCorrespondences,
			"RANSAC found %d inliers from %d pairs", len(bestInliers), n)
	}

	// Recompute using all inliers
	final, err := FitHomography(rev.Subset(bestInliers))
	if err != nil {
		return bestH, bestInliers, nil
	}
	if inliers := findInliers(final, rev, p.Threshold); len(inliers) >= len(bestInliers) {
		return final, inliers, nil
	}
	return bestH, bestInliers, nil
}

// findInliers returns the pairs where h takes Src to within threshold of Dst
func findInliers(h emath.Mat3, c Correspondences, threshold float64) []int {
	var inliers []int
	for i := range c.Src {
		if ReprojectionError(h, c.Src[i], c.Dst[i]) < threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// ReprojectionError is the distance from h(from) to to, or +Inf if from
// can't be projected.
func ReprojectionError(h emath.Mat3, from, to r2.Point) float64 {
	q, ok := h.Project(from)
	if !ok || !emath.IsFinitePoint(q) {
		return math.Inf(1)
	}
	return q.Sub(to).Norm()
}
