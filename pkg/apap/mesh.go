package apap

import(
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// MeshGrid partitions a Width x Height output canvas into Cols x Rows
// cells. Offset is where the base frame's origin sits on the canvas.
type MeshGrid struct {
	Cols, Rows    int
	Width, Height int
	Offset        r2.Point
}

func NewMeshGrid(cols, rows, width, height int, offset r2.Point) MeshGrid {
	return MeshGrid{Cols: cols, Rows: rows, Width: width, Height: height, Offset: offset}
}

func (g MeshGrid)String() string {
	return fmt.Sprintf("mesh[%dx%d cells over %dx%d, offset (%.1f,%.1f)]",
		g.Cols, g.Rows, g.Width, g.Height, g.Offset.X, g.Offset.Y)
}

func (g MeshGrid)Len() int { return g.Cols * g.Rows }

func (g MeshGrid)Step() (float64, float64) {
	return float64(g.Width) / float64(g.Cols), float64(g.Height) / float64(g.Rows)
}

// Center of cell idx (row major), in the base frame
func (g MeshGrid)Center(idx int) r2.Point {
	i, j := idx / g.Cols, idx % g.Cols
	sx, sy := g.Step()
	return r2.Point{
		X: float64(j)*sx + sx/2 - g.Offset.X,
		Y: float64(i)*sy + sy/2 - g.Offset.Y,
	}
}

// CellAt is the index of the cell holding canvas pixel (x,y). Pixels off
// the edge are clamped into the nearest cell.
func (g MeshGrid)CellAt(x, y int) int {
	sx, sy := g.Step()
	j := clampInt(int(math.Floor(float64(x)/sx)), 0, g.Cols-1)
	i := clampInt(int(math.Floor(float64(y)/sy)), 0, g.Rows-1)
	return i*g.Cols + j
}

func (g MeshGrid)Validate() error {
	if g.Cols <= 0 || g.Rows <= 0 {
		return errors.Errorf("mesh needs at least one cell, has %dx%d", g.Cols, g.Rows)
	}
	if g.Width <= 0 || g.Height <= 0 {
		return errors.Errorf("mesh over empty canvas %dx%d", g.Width, g.Height)
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo { return lo }
	if v > hi { return hi }
	return v
}
