package pano

// A few helper routines for golang's image libraries

import(
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
)

// ToRGBA returns img as an RGBA whose bounds start at the origin, copying
// only if it has to.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// ResizeToFit shrinks img, keeping its aspect ratio, so that it has no
// more than maxPixels pixels. It returns the scale factor applied.
func ResizeToFit(img image.Image, maxPixels int) (image.Image, float64) {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if maxPixels <= 0 || n <= maxPixels {
		return img, 1.0
	}

	ratio := math.Sqrt(float64(maxPixels) / float64(n))
	w := int(float64(b.Dx()) * ratio)
	h := int(float64(b.Dy()) * ratio)
	if w < 1 { w = 1 }
	if h < 1 { h = 1 }

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, ratio
}

// IsValid is the black-border test: a pixel with any non-zero colour
// channel holds image content.
func IsValid(img *image.RGBA, x, y int) bool {
	i := img.PixOffset(x, y)
	return img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0
}

// UncoveredFraction is the fraction of pixels with no image content
func UncoveredFraction(img *image.RGBA) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	n := 0
	for y:=b.Min.Y; y<b.Max.Y; y++ {
		for x:=b.Min.X; x<b.Max.X; x++ {
			if !IsValid(img, x, y) {
				n++
			}
		}
	}
	return float64(n) / float64(b.Dx()*b.Dy())
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}
