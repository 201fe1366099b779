package pano

import(
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/abworrall/apap-stitch/pkg/apap"
	"github.com/abworrall/apap-stitch/pkg/emath"
)

// Stage is where the Stitcher has got to. Each pair of images goes
// estimate, warp, compose, blend and is then accumulated onto the
// canvas; the whole run ends in StageDone or StageFailed.
type Stage int

const(
	StageIdle Stage = iota
	StageEstimate
	StageWarp
	StageCompose
	StageBlend
	StageAccumulated
	StageDone
	StageFailed
)

func (s Stage)String() string {
	switch s {
	case StageIdle:         return "idle"
	case StageEstimate:     return "estimate"
	case StageWarp:         return "warp"
	case StageCompose:      return "compose"
	case StageBlend:        return "blend"
	case StageAccumulated:  return "accumulated"
	case StageDone:         return "done"
	case StageFailed:       return "failed"
	default:                return "unknown"
	}
}

// Stitcher adds images one at a time onto a growing canvas, each one
// warped with APAP local homographies.
type Stitcher struct {
	Config

	Stats    []PairStats  // one per pair, from the most recent Stitch

	matcher  Matcher
	logger   *zap.SugaredLogger
	stage    Stage
}

func NewStitcher(cfg Config, m Matcher, logger *zap.SugaredLogger) *Stitcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Stitcher{Config: cfg, matcher: m, logger: logger}
}

// Stitch is the one-shot form: default config, the given blend mode.
func Stitch(ctx context.Context, images []*image.RGBA, mode BlendMode, m Matcher) (*image.RGBA, error) {
	cfg := NewConfig()
	cfg.Blend = mode.String()
	return NewStitcher(cfg, m, nil).Stitch(ctx, images)
}

func (s *Stitcher)Stage() Stage { return s.stage }

func (s *Stitcher)enter(ctx context.Context, pair int, stage Stage) error {
	s.stage = stage
	s.logger.Debugw("stage", "pair", pair, "stage", stage.String())
	return ctx.Err()
}

// Stitch combines the images, in order, into one panorama. Any failure
// aborts the whole thing: the result is either the full panorama, or nil
// and an error (a *StageError once pairs are under way).
func (s *Stitcher)Stitch(ctx context.Context, images []*image.RGBA) (*image.RGBA, error) {
	s.stage = StageIdle
	s.Stats = nil

	out, err := s.stitch(ctx, images)
	if err != nil {
		s.stage = StageFailed
		s.logger.Errorf("Stitch failed: %v", err)
		return nil, err
	}
	s.stage = StageDone
	return out, nil
}

func (s *Stitcher)stitch(ctx context.Context, images []*image.RGBA) (*image.RGBA, error) {
	if len(images) < 2 {
		return nil, errors.Wrapf(ErrEmptyOrInsufficientImages, "got %d", len(images))
	}
	for i, img := range images {
		if img == nil || img.Bounds().Empty() {
			return nil, errors.Wrapf(ErrEmptyOrInsufficientImages, "image %d is empty", i)
		}
	}
	if s.matcher == nil {
		return nil, errors.New("stitcher has no matcher")
	}
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	blender, err := s.GetBlender()
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Stitching %d images, %dx%d mesh, %s blend", len(images), s.MeshCols, s.MeshRows, s.Blend)

	prev := pairResult{canvas: ToRGBA(images[0]), nextToCanvas: emath.Identity()}
	for i:=1; i<len(images); i++ {
		res, err := s.stitchPair(ctx, i, prev, ToRGBA(images[i]), blender)
		if err != nil {
			return nil, err
		}
		prev = res
	}
	canvas := prev.canvas

	s.logger.Infof("Stitched panorama is %dx%d, %.1f%% uncovered",
		canvas.Bounds().Dx(), canvas.Bounds().Dy(), 100*UncoveredFraction(canvas))
	return canvas, nil
}

// pairResult is the canvas after a pair, and how the image just added
// got onto it
type pairResult struct {
	canvas       *image.RGBA
	nextToCanvas emath.Mat3
	warp         *apap.LocalField
}

func (s *Stitcher)stitchPair(ctx context.Context, pair int, prev pairResult, next *image.RGBA, blender Blender) (pairResult, error) {
	canvas := prev.canvas
	stage := StageIdle
	fail := func(err error) (pairResult, error) {
		return pairResult{}, &StageError{Stage: stage, Pair: pair, Err: err}
	}
	enter := func(st Stage) error {
		stage = st
		return s.enter(ctx, pair, st)
	}

	// Estimate: global fit to size the canvas, then one local fit per cell
	if err := enter(StageEstimate); err != nil {
		return fail(err)
	}
	corr, err := s.matcher.Match(ctx, Pair{Index: pair, Canvas: canvas, Next: next, PrevToCanvas: prev.nextToCanvas, PrevWarp: prev.warp})
	if err != nil {
		return fail(errors.Wrap(err, "match"))
	}
	if err := corr.Validate(apap.MinLocalCorrespondences); err != nil {
		return fail(err)
	}

	nextToBase, inliers, err := apap.EstimateGlobal(corr, s.ransacParams())
	if err != nil {
		return fail(err)
	}
	plan, err := PlanCanvas(canvas.Bounds(), next.Bounds().Size(), nextToBase, s.MaxCanvasPixels)
	if err != nil {
		return fail(err)
	}

	inl := corr.Subset(inliers)
	solver, err := apap.NewSolver(inl)
	if err != nil {
		return fail(errors.Wrapf(err, "%d inliers", len(inliers)))
	}
	grid := apap.NewMeshGrid(s.MeshCols, s.MeshRows, plan.Size.X, plan.Size.Y, plan.Offset)
	hs, err := apap.LocalHomographies(ctx, solver, grid, s.apapParams())
	if err != nil {
		return fail(err)
	}

	stats := ReprojectionStats(nextToBase, corr, inliers)
	stats.Pair = pair
	stats.Canvas = plan.Size
	s.Stats = append(s.Stats, stats)
	s.logger.Infow("pair estimated", "pair", pair, "matches", stats.Matches, "inliers", stats.Inliers,
		"canvas", plan.String(), "p95err", stats.P95Error)
	if stats.OffScale > 0 {
		s.logger.Warnw("inlier errors off the histogram scale", "pair", pair, "count", stats.OffScale)
	}

	if err := enter(StageWarp); err != nil {
		return fail(err)
	}
	warped, err := apap.Warp(ctx, next, hs, grid, s.workers())
	if err != nil {
		return fail(err)
	}

	if err := enter(StageCompose); err != nil {
		return fail(err)
	}
	composed := Compose(canvas, plan)

	if err := enter(StageBlend); err != nil {
		return fail(err)
	}
	blended, err := blender(ctx, composed.RGBA, warped)
	if err != nil {
		return fail(err)
	}

	if err := enter(StageAccumulated); err != nil {
		return fail(err)
	}
	if s.Verbosity > 0 {
		s.writeDebug(pair, warped, grid, hs, inl)
	}

	return pairResult{
		canvas:       blended,
		nextToCanvas: emath.Translation(plan.Offset.X, plan.Offset.Y).Mult(nextToBase),
		warp:         &apap.LocalField{Hs: hs, Grid: grid},
	}, nil
}
