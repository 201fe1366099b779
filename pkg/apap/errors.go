package apap

import "github.com/pkg/errors"

var(
	// Too few point pairs for the estimate asked for (4 global, 8 local)
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")

	// All points coincide (or are not finite), so they can't be normalized
	ErrDegenerateNormalization = errors.New("degenerate normalization")

	// The solve produced a homography with a vanishing H[2][2], or failed outright
	ErrSingularHomography = errors.New("singular homography")
)
