package apap

import(
	"context"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

// Maps holds, for every canvas pixel, where to sample the source image.
// Pixels that map to infinity hold NaN.
type Maps struct {
	MapX emath.FloatGrid
	MapY emath.FloatGrid
}

// sourceCoord maps canvas pixel (x,y) back into the source image, using
// the homography of the cell that holds it.
func sourceCoord(hs []emath.Mat3, grid MeshGrid, x, y int) (float64, float64) {
	h := hs[grid.CellAt(x, y)]
	ox := float64(x) - grid.Offset.X
	oy := float64(y) - grid.Offset.Y

	w := h[6]*ox + h[7]*oy + h[8]
	if math.Abs(w) < emath.EpsilonW {
		return math.NaN(), math.NaN()
	}
	return (h[0]*ox + h[1]*oy + h[2]) / w, (h[3]*ox + h[4]*oy + h[5]) / w
}

func checkWarpArgs(hs []emath.Mat3, grid MeshGrid) error {
	if err := grid.Validate(); err != nil {
		return err
	}
	if len(hs) != grid.Len() {
		return errors.Errorf("warp: %d homographies for %d cells", len(hs), grid.Len())
	}
	return nil
}

// BuildMaps computes the sampling maps without touching any pixels
func BuildMaps(hs []emath.Mat3, grid MeshGrid) (Maps, error) {
	if err := checkWarpArgs(hs, grid); err != nil {
		return Maps{}, err
	}
	m := Maps{MapX: emath.NewFloatGrid(grid.Width, grid.Height), MapY: emath.NewFloatGrid(grid.Width, grid.Height)}
	for y:=0; y<grid.Height; y++ {
		for x:=0; x<grid.Width; x++ {
			u, v := sourceCoord(hs, grid, x, y)
			m.MapX.Set(x, y, u)
			m.MapY.Set(x, y, v)
		}
	}
	return m, nil
}

// Warp renders src onto a grid.Width x grid.Height canvas, by inverse
// mapping each canvas pixel through its cell's homography and sampling
// bilinearly. Anything that samples outside src is black. Rows are
// rendered concurrently, each goroutine writing only its own rows.
func Warp(ctx context.Context, src *image.RGBA, hs []emath.Mat3, grid MeshGrid, workers int) (*image.RGBA, error) {
	if err := checkWarpArgs(hs, grid); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = DefaultParams().Workers
	}

	dst := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y:=0; y<grid.Height; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := dst.Pix[y*dst.Stride : y*dst.Stride + 4*grid.Width]
			for x:=0; x<grid.Width; x++ {
				u, v := sourceCoord(hs, grid, x, y)
				sampleBilinear(src, u, v, row[4*x:4*x+4])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dst, nil
}

// LocalField is a warp as Warp applies it: per cell homographies from
// the base frame into the source image, over a grid on the canvas.
type LocalField struct {
	Hs   []emath.Mat3
	Grid MeshGrid
}

// maxFieldSteps bounds the hops between cells in ToCanvas
const maxFieldSteps = 4

// ToCanvas finds where source image point p landed on the canvas, i.e.
// the canvas point whose cell homography takes it to p. guess picks the
// cell to start from; if the answer falls in another cell, that cell's
// homography is tried next. Near folds in the field, where this doesn't
// settle, the last estimate is returned.
func (f LocalField)ToCanvas(p, guess r2.Point) (r2.Point, bool) {
	if checkWarpArgs(f.Hs, f.Grid) != nil {
		return r2.Point{}, false
	}

	cell := f.Grid.CellAt(int(math.Floor(guess.X)), int(math.Floor(guess.Y)))
	var c r2.Point
	for step:=0; step<maxFieldSteps; step++ {
		inv, err := f.Hs[cell].Inverse()
		if err != nil {
			return r2.Point{}, false
		}
		q, ok := inv.Project(p)
		if !ok || !emath.IsFinitePoint(q) {
			return r2.Point{}, false
		}
		c = q.Add(f.Grid.Offset)

		next := f.Grid.CellAt(int(math.Floor(c.X)), int(math.Floor(c.Y)))
		if next == cell {
			break
		}
		cell = next
	}
	return c, true
}

// sampleBilinear writes the interpolated pixel at (u,v) into out, with
// everything beyond the edges of src taken as transparent black. So a
// point half a pixel past the last column gets half of that column;
// points a whole pixel or more outside (or NaN) leave out as zero.
func sampleBilinear(src *image.RGBA, u, v float64, out []uint8) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if !(u > -1 && v > -1 && u < float64(w) && v < float64(h)) {
		return
	}

	x0, y0 := int(math.Floor(u)), int(math.Floor(v))
	fx, fy := u - float64(x0), v - float64(y0)

	var acc [4]float64
	add := func(x, y int, wt float64) {
		if wt == 0 || x < 0 || y < 0 || x >= w || y >= h {
			return
		}
		p := src.PixOffset(b.Min.X+x, b.Min.Y+y)
		for c:=0; c<4; c++ {
			acc[c] += wt * float64(src.Pix[p+c])
		}
	}
	add(x0,   y0,   (1-fx) * (1-fy))
	add(x0+1, y0,   fx * (1-fy))
	add(x0,   y0+1, (1-fx) * fy)
	add(x0+1, y0+1, fx * fy)

	for c:=0; c<4; c++ {
		out[c] = uint8(math.Min(255, acc[c] + 0.5))
	}
}
