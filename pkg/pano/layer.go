package pano

import(
	"fmt"
	"image"
	"path/filepath"
)

// A Layer is one input photo, ready to be stitched
type Layer struct {
	LoadFilename       string
	LoadedImage        image.Image  // The image as decoded from the file
	Orientation        int          // EXIF orientation tag, 1 (or 0) if upright
	Scale              float64      // How much the image was shrunk to fit MaxImagePixels; 1 if not

	// _This_ image is upright and shrunk, and is what gets stitched
	image.Image
}

func (l Layer)String() string {
	b := l.Bounds()
	return fmt.Sprintf("%s: %dx%d, orientation %d, scale %.3f", l.Filename(), b.Dx(), b.Dy(), l.Orientation, l.Scale)
}

func (l Layer)Filename() string {
	return filepath.Base(l.LoadFilename)
}

func (l Layer)RGBA() *image.RGBA {
	return ToRGBA(l.Image)
}

func LayerImages(layers []Layer) []*image.RGBA {
	imgs := make([]*image.RGBA, len(layers))
	for i, l := range layers {
		imgs[i] = l.RGBA()
	}
	return imgs
}
