package pano

import(
	"fmt"
	"image"
	"math"

	"github.com/codahale/hdrhistogram"

	"github.com/abworrall/apap-stitch/pkg/apap"
	"github.com/abworrall/apap-stitch/pkg/emath"
)

// Reprojection errors are histogrammed in hundredths of a pixel
const(
	statsUnitsPerPixel = 100
	statsMaxPixels     = 10000
)

// PairStats summarises how well one image fitted onto the canvas
type PairStats struct {
	Pair       int
	Matches    int
	Inliers    int
	Canvas     image.Point

	// Reprojection error of the inliers under the global homography, in pixels
	MeanError  float64
	P50Error   float64
	P95Error   float64
	MaxError   float64

	// Inliers whose error was unmeasurable or beyond the histogram's
	// range; these are counted at the ceiling (statsMaxPixels) if at all
	OffScale   int
}

func (s PairStats)String() string {
	return fmt.Sprintf("pair %d: %d/%d inliers, canvas %dx%d, reproj err mean %.2f p50 %.2f p95 %.2f max %.2f",
		s.Pair, s.Inliers, s.Matches, s.Canvas.X, s.Canvas.Y, s.MeanError, s.P50Error, s.P95Error, s.MaxError)
}

// ReprojectionStats measures how far the global homography (next to base)
// puts each inlier's Dst from its Src.
func ReprojectionStats(nextToBase emath.Mat3, c apap.Correspondences, inliers []int) PairStats {
	s := PairStats{Matches: c.Len(), Inliers: len(inliers)}

	hist := hdrhistogram.New(1, statsMaxPixels*statsUnitsPerPixel, 3)
	for _, i := range inliers {
		e := apap.ReprojectionError(nextToBase, c.Dst[i], c.Src[i])
		v := int64(e*statsUnitsPerPixel + 0.5)
		if math.IsNaN(e) || e > statsMaxPixels {
			v = statsMaxPixels * statsUnitsPerPixel
			s.OffScale++
		}
		if err := hist.RecordValue(v); err != nil {
			s.OffScale++
		}
	}
	if hist.TotalCount() == 0 {
		return s
	}

	s.MeanError = hist.Mean() / statsUnitsPerPixel
	s.P50Error  = float64(hist.ValueAtQuantile(50)) / statsUnitsPerPixel
	s.P95Error  = float64(hist.ValueAtQuantile(95)) / statsUnitsPerPixel
	s.MaxError  = float64(hist.Max()) / statsUnitsPerPixel
	return s
}
