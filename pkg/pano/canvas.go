package pano

import(
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

// CanvasPlan is the layout of the canvas that will hold the current base
// canvas plus the next image.
type CanvasPlan struct {
	Size   image.Point  // dimensions of the new canvas
	Offset r2.Point     // where the base frame's origin lands on the new canvas
	Bounds r2.Rect      // the union of both images, in the base frame
}

func (p CanvasPlan)String() string {
	return fmt.Sprintf("canvas[%dx%d, offset (%.1f,%.1f)]", p.Size.X, p.Size.Y, p.Offset.X, p.Offset.Y)
}

// Origin is where the base canvas gets copied to; the offset, rounded
func (p CanvasPlan)Origin() image.Point {
	return image.Pt(int(math.Round(p.Offset.X)), int(math.Round(p.Offset.Y)))
}

// A Canvas is the accumulated panorama, with the offset of its base
// frame.
type Canvas struct {
	*image.RGBA
	Offset image.Point
}

// PlanCanvas projects the corners of a next.X x next.Y image through
// nextToBase, and sizes a canvas big enough for that and the base.
// Nothing is allocated, so an oversized plan fails cheaply.
func PlanCanvas(base image.Rectangle, next image.Point, nextToBase emath.Mat3, maxPixels int) (CanvasPlan, error) {
	w, h := float64(next.X), float64(next.Y)
	corners := []r2.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}

	bounds := r2.RectFromPoints(r2.Point{}, r2.Point{X: float64(base.Dx()), Y: float64(base.Dy())})
	for _, c := range corners {
		p, ok := nextToBase.Project(c)
		if !ok || !emath.IsFinitePoint(p) {
			return CanvasPlan{}, errors.Wrapf(ErrSingularHomography, "corner %v projects to infinity", c)
		}
		bounds = bounds.AddPoint(p)
	}

	dx := math.Ceil(bounds.X.Hi - bounds.X.Lo)
	dy := math.Ceil(bounds.Y.Hi - bounds.Y.Lo)
	if dx * dy > float64(maxPixels) {
		return CanvasPlan{}, errors.Wrapf(ErrCanvasTooLarge, "%.0fx%.0f is over %d pixels", dx, dy, maxPixels)
	}

	return CanvasPlan{
		Size:   image.Pt(int(dx), int(dy)),
		Offset: r2.Point{X: math.Max(0, -bounds.X.Lo), Y: math.Max(0, -bounds.Y.Lo)},
		Bounds: bounds,
	}, nil
}

// Compose allocates the planned canvas, black, and copies the base into
// it at the plan's origin.
func Compose(base *image.RGBA, plan CanvasPlan) *Canvas {
	c := &Canvas{
		RGBA:   image.NewRGBA(image.Rectangle{Max: plan.Size}),
		Offset: plan.Origin(),
	}
	b := base.Bounds()
	draw.Draw(c.RGBA, b.Sub(b.Min).Add(c.Offset), base, b.Min, draw.Src)
	return c
}
