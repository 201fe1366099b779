package pano

import(
	"fmt"
	"image"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/apap-stitch/pkg/apap"
	"github.com/abworrall/apap-stitch/pkg/emath"
)

// DrawMeshOverlay draws the mesh over a copy of img, each cell outlined
// in its own hue, plus the matched points (in canvas coords) as dots.
func DrawMeshOverlay(img image.Image, grid apap.MeshGrid, c apap.Correspondences) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(1)

	sx, sy := grid.Step()
	for idx:=0; idx<grid.Len(); idx++ {
		i, j := idx / grid.Cols, idx % grid.Cols
		hue := 360.0 * float64(idx) / float64(grid.Len())
		dc.SetColor(colorful.Hsv(hue, 0.8, 0.9))
		dc.DrawRectangle(float64(j)*sx, float64(i)*sy, sx, sy)
		dc.Stroke()
	}

	dc.SetRGB(1, 1, 0)
	for _, p := range c.Src {
		dc.DrawCircle(p.X + grid.Offset.X, p.Y + grid.Offset.Y, 3)
		dc.Fill()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString(grid.String(), 10, 20)
	return dc.Image()
}

// writeDebug dumps the mesh overlay and the warp's sampling maps for one
// pair. The .hdr keeps the raw (float) source coordinates.
func (s *Stitcher)writeDebug(pair int, warped *image.RGBA, grid apap.MeshGrid, hs []emath.Mat3, c apap.Correspondences) {
	name := func(suffix string) string {
		return filepath.Join(s.Config.DebugDir, fmt.Sprintf("pair-%02d-%s", pair, suffix))
	}

	if err := WritePNG(DrawMeshOverlay(warped, grid, c), name("mesh.png")); err != nil {
		s.logger.Warnf("debug mesh overlay: %v", err)
	}

	maps, err := apap.BuildMaps(hs, grid)
	if err != nil {
		s.logger.Warnf("debug maps: %v", err)
		return
	}
	s.logger.Debugw("warp maps", "pair", pair, "mapx", maps.MapX.Stats(), "mapy", maps.MapY.Stats())
	if err := maps.MapX.ToImg(fmt.Sprintf("pair %d: source x", pair), name("mapx.png")); err != nil {
		s.logger.Warnf("debug mapx: %v", err)
	}
	if err := maps.MapX.WriteHDR(name("mapx.hdr")); err != nil {
		s.logger.Warnf("debug mapx hdr: %v", err)
	}
	if err := maps.MapY.WriteHDR(name("mapy.hdr")); err != nil {
		s.logger.Warnf("debug mapy hdr: %v", err)
	}
}
