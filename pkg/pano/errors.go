package pano

import(
	"fmt"

	"github.com/pkg/errors"

	"github.com/abworrall/apap-stitch/pkg/apap"
)

var(
	ErrInsufficientCorrespondences = apap.ErrInsufficientCorrespondences
	ErrDegenerateNormalization     = apap.ErrDegenerateNormalization
	ErrSingularHomography          = apap.ErrSingularHomography

	// The canvas needed to hold the next image is bigger than Config.MaxCanvasPixels
	ErrCanvasTooLarge = errors.New("canvas too large")

	ErrEmptyOrInsufficientImages = errors.New("need at least two images")
)

// StageError records where in the pipeline a stitch failed. Pair is the
// index of the image being added (1 for the first pair).
type StageError struct {
	Stage Stage
	Pair  int
	Err   error
}

func (e *StageError)Error() string {
	return fmt.Sprintf("stitch pair %d, %s: %v", e.Pair, e.Stage, e.Err)
}

func (e *StageError)Unwrap() error { return e.Err }
