package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
)

// A FloatGrid is a grid of floats; used for blend weights, distance
// fields and the per-pixel sampling maps of a warp.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (fg *FloatGrid)Set(x, y int, v float64) { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Bounds() image.Rectangle { return image.Rect(0, 0, fg.Dx(), fg.Dy()) }

func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

func (g1 *FloatGrid)Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values:make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// MinMax ignores NaNs; an empty (or all NaN) grid gives 0,0
func (fg *FloatGrid)MinMax() (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range fg.values {
		if math.IsNaN(v) { continue }
		if v > max { max = v }
		if v < min { min = v }
	}
	if min > max {
		return 0, 0
	}
	return min, max
}

func (fg *FloatGrid)Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg *FloatGrid)ToImg(title, filename string) error {
	min, max := fg.MinMax()
	rng := max - min
	if rng == 0 {
		rng = 1
	}

	img := image.NewRGBA64(fg.Bounds())
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			gray := gammaExpand((fg.Get(x,y) - min) / rng)
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,0,0)
	dc.DrawString(title, 20, 20)
	return dc.SavePNG(filename)
}

// WriteHDR dumps the raw values as a gray RGBE file, so the full float
// range survives (unlike ToImg).
func (fg *FloatGrid)WriteHDR(filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return rgbe.Encode(writer, hdrGrid{fg})
	}
}

// hdrGrid implements hdr.Image
type hdrGrid struct {
	*FloatGrid
}

var _ hdr.Image = hdrGrid{}

func (g hdrGrid)ColorModel() color.Model       { return hdrcolor.RGBModel }
func (g hdrGrid)At(x, y int) color.Color       { return g.HDRAt(x, y) }
func (g hdrGrid)Size() int                     { return g.Dx() * g.Dy() }

func (g hdrGrid)HDRAt(x, y int) hdrcolor.Color {
	v := g.Get(x, y)
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	return hdrcolor.RGB{v, v, v}
}

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
func gammaExpand(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}
