package pano

import(
	"context"
	"image"
	"math"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/abworrall/apap-stitch/pkg/emath"
)

type BlendMode int

const(
	BlendMax BlendMode = iota
	BlendFeather
)

func (m BlendMode)String() string {
	switch m {
	case BlendMax:     return "max"
	case BlendFeather: return "feather"
	default:           return "unknown"
	}
}

func ListBlendModes() string {
	return strings.Join([]string{BlendMax.String(), BlendFeather.String()}, ",")
}

// ParseBlendMode accepts the String() names; empty means max
func ParseBlendMode(s string) (BlendMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max":  return BlendMax, nil
	case "feather":  return BlendFeather, nil
	default:
		return BlendMax, errors.Errorf("no blend mode named '%s' (want one of %s)", s, ListBlendModes())
	}
}

// A Blender merges two same sized images into a new one
type Blender func(ctx context.Context, a, b *image.RGBA) (*image.RGBA, error)

// Blender returns the blend function for m. workers bounds the
// goroutines a feather blend uses; <=0 means GOMAXPROCS.
func (m BlendMode)Blender(workers int) Blender {
	if m == BlendFeather {
		return func(ctx context.Context, a, b *image.RGBA) (*image.RGBA, error) {
			return featherBlend(ctx, a, b, workers)
		}
	}
	return MaxBlend
}

func checkSameSize(a, b *image.RGBA) error {
	if a.Bounds().Size() != b.Bounds().Size() {
		return errors.Errorf("blend: sizes differ, %v vs %v", a.Bounds().Size(), b.Bounds().Size())
	}
	return nil
}

// MaxBlend takes the per channel maximum
func MaxBlend(ctx context.Context, a, b *image.RGBA) (*image.RGBA, error) {
	if err := checkSameSize(a, b); err != nil {
		return nil, err
	}
	a, b = ToRGBA(a), ToRGBA(b)

	out := image.NewRGBA(a.Bounds())
	for i := range out.Pix {
		if a.Pix[i] > b.Pix[i] {
			out.Pix[i] = a.Pix[i]
		} else {
			out.Pix[i] = b.Pix[i]
		}
	}
	return out, nil
}

// FeatherBlend weights each image by how far the pixel is from the edge
// of that image's content (non-black pixels), so seams fade across the
// overlap. Where only one image has content, it is copied unchanged.
func FeatherBlend(ctx context.Context, a, b *image.RGBA) (*image.RGBA, error) {
	return featherBlend(ctx, a, b, 0)
}

func featherBlend(ctx context.Context, a, b *image.RGBA, workers int) (*image.RGBA, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if err := checkSameSize(a, b); err != nil {
		return nil, err
	}
	a, b = ToRGBA(a), ToRGBA(b)
	w, h := a.Bounds().Dx(), a.Bounds().Dy()

	d1 := emath.DistanceTransform(w, h, func(x, y int) bool { return IsValid(a, x, y) })
	d2 := emath.DistanceTransform(w, h, func(x, y int) bool { return IsValid(b, x, y) })

	out := image.NewRGBA(a.Bounds())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y:=0; y<h; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x:=0; x<w; x++ {
				featherPixel(out, a, b, x, y, d1.Get(x, y), d2.Get(x, y))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func featherPixel(out, a, b *image.RGBA, x, y int, d1, d2 float64) {
	sum := d1 + d2
	if sum < 1e-5 {
		return // neither image has content here
	}
	alpha := d1 / sum
	beta := 1 - alpha

	i := out.PixOffset(x, y)
	switch {
	case d2 == 0:
		copy(out.Pix[i:i+4], a.Pix[i:i+4])
	case d1 == 0:
		copy(out.Pix[i:i+4], b.Pix[i:i+4])
	default:
		for c:=0; c<4; c++ {
			v := alpha*float64(a.Pix[i+c]) + beta*float64(b.Pix[i+c])
			out.Pix[i+c] = uint8(math.Min(255, v + 0.5))
		}
	}
}
