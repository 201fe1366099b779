package pano

import(
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/apap-stitch/pkg/apap"
	"github.com/abworrall/apap-stitch/pkg/emath"
)

// Pair is what a Matcher gets to look at when the image at Index is
// about to be stitched onto the canvas built from images [0,Index).
type Pair struct {
	Index        int
	Canvas       *image.RGBA
	Next         *image.RGBA

	// Maps pixels of the input image at Index-1 to roughly where they
	// ended up on Canvas, by the global homography. Useful for matchers
	// that only know about the input images.
	PrevToCanvas emath.Mat3

	// The local warp that put the image at Index-1 on Canvas; nil when
	// Index is 1, since image 0 is the canvas.
	PrevWarp     *apap.LocalField
}

// PrevPointToCanvas is where pixel q of the input image at Index-1 ended
// up on Canvas. It follows the local warp where there is one, starting
// from the global estimate.
func (p Pair)PrevPointToCanvas(q r2.Point) (r2.Point, bool) {
	guess, ok := p.PrevToCanvas.Project(q)
	if !ok || p.PrevWarp == nil {
		return guess, ok
	}
	return p.PrevWarp.ToCanvas(q, guess)
}

// A Matcher finds correspondences between the canvas (Src) and the next
// image (Dst). Feature detection lives behind this interface.
type Matcher interface {
	Match(ctx context.Context, p Pair) (apap.Correspondences, error)
}

type MatcherFunc func(ctx context.Context, p Pair) (apap.Correspondences, error)

func (f MatcherFunc)Match(ctx context.Context, p Pair) (apap.Correspondences, error) {
	return f(ctx, p)
}

// MatchTable is a Matcher driven by precomputed matches, one entry per
// consecutive pair of input images. Points are pixels in the input
// files, before any shrinking.
//
//   pairs:
//     - prev: [[10, 20], [30, 40], ...]   # in image 0
//       next: [[ 5, 21], [25, 41], ...]   # in image 1
//     - prev: ...                         # in image 1
//       next: ...                         # in image 2
type MatchTable struct {
	Pairs  []MatchPair `yaml:"pairs"`

	scales []float64
}

type MatchPair struct {
	Prev [][]float64 `yaml:"prev"`
	Next [][]float64 `yaml:"next"`
}

func newMatchTableFromYaml(b []byte) (*MatchTable, error) {
	mt := MatchTable{}
	if err := yaml.Unmarshal(b, &mt); err != nil {
		return nil, errors.Wrap(err, "match table yaml")
	}
	for i, p := range mt.Pairs {
		if len(p.Prev) != len(p.Next) {
			return nil, errors.Errorf("match table pair %d: %d prev points, %d next", i, len(p.Prev), len(p.Next))
		}
		for _, pt := range append(append([][]float64{}, p.Prev...), p.Next...) {
			if len(pt) != 2 {
				return nil, errors.Errorf("match table pair %d: point %v is not [x, y]", i, pt)
			}
		}
	}
	return &mt, nil
}

// UseLayers records how much each input was shrunk when loaded, so the
// table's points can be scaled to match.
func (mt *MatchTable)UseLayers(layers []Layer) {
	mt.scales = make([]float64, len(layers))
	for i, l := range layers {
		mt.scales[i] = l.Scale
	}
}

func (mt *MatchTable)scale(i int) float64 {
	if i < len(mt.scales) && mt.scales[i] > 0 {
		return mt.scales[i]
	}
	return 1
}

func (mt *MatchTable)Match(ctx context.Context, p Pair) (apap.Correspondences, error) {
	if p.Index < 1 || p.Index > len(mt.Pairs) {
		return apap.Correspondences{}, errors.Wrapf(ErrInsufficientCorrespondences, "no matches listed for pair %d", p.Index)
	}
	mp := mt.Pairs[p.Index-1]
	sPrev, sNext := mt.scale(p.Index-1), mt.scale(p.Index)

	c := apap.Correspondences{}
	for i := range mp.Prev {
		src, ok := p.PrevPointToCanvas(r2.Point{X: mp.Prev[i][0], Y: mp.Prev[i][1]}.Mul(sPrev))
		if !ok {
			continue
		}
		c.Src = append(c.Src, src)
		c.Dst = append(c.Dst, r2.Point{X: mp.Next[i][0], Y: mp.Next[i][1]}.Mul(sNext))
	}
	return c, nil
}
