package apap

import(
	"context"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

func randomImage(w, h int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), 255})
		}
	}
	return img
}

func constantHomographies(g MeshGrid, h emath.Mat3) []emath.Mat3 {
	hs := make([]emath.Mat3, g.Len())
	for i := range hs {
		hs[i] = h
	}
	return hs
}

func TestWarpIdentity(t *testing.T) {
	src := randomImage(37, 23, 1)
	grid := NewMeshGrid(5, 4, 37, 23, r2.Point{})

	dst, err := Warp(context.Background(), src, constantHomographies(grid, emath.Identity()), grid, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.Bounds(), test.ShouldResemble, src.Bounds())
	test.That(t, dst.Pix, test.ShouldResemble, src.Pix)
}

func TestWarpOffsetAndTranslation(t *testing.T) {
	src := randomImage(10, 8, 2)

	for _, tc := range []struct {
		name   string
		h      emath.Mat3
		offset r2.Point
		dx, dy int // dst(x,y) == src(x-dx, y-dy)
	}{
		{"translated", emath.Translation(-2, 0), r2.Point{}, 2, 0},
		{"offset", emath.Identity(), r2.Point{X: 3, Y: 1}, 3, 1},
		{"both", emath.Translation(1, 0), r2.Point{X: 3, Y: 2}, 2, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			grid := NewMeshGrid(2, 2, 14, 12, tc.offset)
			dst, err := Warp(context.Background(), src, constantHomographies(grid, tc.h), grid, 2)
			test.That(t, err, test.ShouldBeNil)

			for y:=0; y<12; y++ {
				for x:=0; x<14; x++ {
					sx, sy := x - tc.dx, y - tc.dy
					want := color.RGBA{}
					if image.Pt(sx, sy).In(src.Bounds()) {
						want = src.RGBAAt(sx, sy)
					}
					test.That(t, dst.RGBAAt(x, y), test.ShouldResemble, want)
				}
			}
		})
	}
}

func TestWarpBilinear(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{0, 100, 200, 255})
	src.SetRGBA(1, 0, color.RGBA{100, 200, 0, 255})

	// Half a pixel to the right
	grid := NewMeshGrid(1, 1, 2, 1, r2.Point{})
	dst, err := Warp(context.Background(), src, constantHomographies(grid, emath.Translation(0.5, 0)), grid, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.RGBAAt(0, 0), test.ShouldResemble, color.RGBA{50, 150, 100, 255})

	// Half past the last column: that column, faded half way to black
	test.That(t, dst.RGBAAt(1, 0), test.ShouldResemble, color.RGBA{50, 100, 0, 128})
}

func TestWarpFractionalShiftKeepsEdges(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 1))
	for x:=0; x<3; x++ {
		src.SetRGBA(x, 0, color.RGBA{200, 200, 200, 255})
	}

	// dst x samples src x-0.25, so dst 0 is a quarter off the left edge
	// and dst 3 is three quarters off the right edge
	grid := NewMeshGrid(1, 1, 5, 1, r2.Point{})
	dst, err := Warp(context.Background(), src, constantHomographies(grid, emath.Translation(-0.25, 0)), grid, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dst.RGBAAt(0, 0), test.ShouldResemble, color.RGBA{150, 150, 150, 191})
	test.That(t, dst.RGBAAt(1, 0), test.ShouldResemble, color.RGBA{200, 200, 200, 255})
	test.That(t, dst.RGBAAt(3, 0), test.ShouldResemble, color.RGBA{50, 50, 50, 64})
	test.That(t, dst.RGBAAt(4, 0), test.ShouldResemble, color.RGBA{})
}

func TestBuildMaps(t *testing.T) {
	grid := NewMeshGrid(2, 1, 4, 2, r2.Point{X: 1})
	hs := []emath.Mat3{
		emath.Scaling(2, 2),
		{1, 0, 0,   0, 1, 0,   1, 0, 0}, // x=0 goes to infinity
	}
	m, err := BuildMaps(hs, grid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.MapX.Get(1, 1), test.ShouldEqual, 0.0)
	test.That(t, m.MapY.Get(1, 1), test.ShouldEqual, 2.0)
	test.That(t, m.MapX.Get(3, 0), test.ShouldEqual, 1.0)

	// Now canvas x=2 is base x=0, which cell 1 sends to infinity
	grid.Offset = r2.Point{X: 2}
	m, err = BuildMaps(hs, grid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.IsNaN(m.MapX.Get(2, 0)), test.ShouldBeTrue)

	_, err = BuildMaps(hs[:1], grid)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWarpCancelled(t *testing.T) {
	src := randomImage(5, 5, 3)
	grid := NewMeshGrid(1, 1, 5, 5, r2.Point{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst, err := Warp(ctx, src, constantHomographies(grid, emath.Identity()), grid, 1)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, dst, test.ShouldBeNil)
}

func TestLocalFieldToCanvas(t *testing.T) {
	// One homography: image x,y is canvas x-5,y-1 (offset 3,1, then -2)
	grid := NewMeshGrid(2, 2, 20, 10, r2.Point{X: 3, Y: 1})
	f := LocalField{Hs: constantHomographies(grid, emath.Translation(-2, 0)), Grid: grid}
	c, ok := f.ToCanvas(r2.Point{X: 5, Y: 4}, r2.Point{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.X, test.ShouldAlmostEqual, 10, 1e-9)
	test.That(t, c.Y, test.ShouldAlmostEqual, 5, 1e-9)

	// The right hand cell is shifted further; starting from a guess in the
	// left cell has to hop over to the right one
	grid = NewMeshGrid(2, 1, 20, 10, r2.Point{})
	f = LocalField{Hs: []emath.Mat3{emath.Translation(-2, 0), emath.Translation(-5, 0)}, Grid: grid}
	c, ok = f.ToCanvas(r2.Point{X: 12, Y: 3}, r2.Point{X: 4, Y: 3})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.X, test.ShouldAlmostEqual, 17, 1e-9)
	test.That(t, c.Y, test.ShouldAlmostEqual, 3, 1e-9)

	// Round trip through the warp's own mapping
	u, v := sourceCoord(f.Hs, grid, 17, 3)
	test.That(t, u, test.ShouldAlmostEqual, 12, 1e-9)
	test.That(t, v, test.ShouldAlmostEqual, 3, 1e-9)

	_, ok = LocalField{Hs: f.Hs[:1], Grid: grid}.ToCanvas(r2.Point{}, r2.Point{})
	test.That(t, ok, test.ShouldBeFalse)
}
