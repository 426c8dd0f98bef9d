package l6stabilize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
	"github.com/banshee-data/stabilizer/internal/video/l3warp"
	"github.com/banshee-data/stabilizer/internal/video/l4flow"
	"github.com/banshee-data/stabilizer/internal/video/l5estimate"
)

var (
	// ErrInvalidMargins is returned for crop margins that are negative or
	// remove the whole frame.
	ErrInvalidMargins = errors.New("invalid crop margins")
	// ErrShapeMismatch is returned when a frame's shape differs from the
	// stream's. It is l1image.ErrShapeMismatch, so either can be matched.
	ErrShapeMismatch = l1image.ErrShapeMismatch
	// ErrNotStarted is returned by Step when given a nil State.
	ErrNotStarted = errors.New("stream not started")
)

// Config holds the stabilization parameters. The solver window size comes
// from the solver itself.
type Config struct {
	MaxIter   int
	NumLevels int
	// MinLevelWindows and ExtendBorder are passed to the estimator; see
	// l5estimate.Estimator.
	MinLevelWindows int
	ExtendBorder    bool
	// Crop is removed from every warped frame before the final resize. The
	// zero value keeps the whole frame.
	Crop l1image.Margins
	// OutputWidth and OutputHeight fix the emitted frame shape. Zero means
	// the input shape.
	OutputWidth  int
	OutputHeight int
}

// FrameSource yields frames in temporal order and io.EOF after the last.
type FrameSource interface {
	Next(ctx context.Context) (*l1image.Image, error)
}

// FrameSink accepts emitted frames in order.
type FrameSink interface {
	Write(ctx context.Context, img *l1image.Image) error
}

// FrameSample summarises the correction applied to one frame.
type FrameSample struct {
	Index int
	// MeanU and MeanV are the interior means of the flow from the previous
	// frame to this one.
	MeanU float64
	MeanV float64
	// CorrectionU and CorrectionV are the running displacement applied to
	// the interior of this frame.
	CorrectionU float64
	CorrectionV float64
	Holes       int // warped pixels filled from the frame itself
	Elapsed     time.Duration
}

// Observer receives one FrameSample per emitted frame, in order.
type Observer interface {
	ObserveFrame(FrameSample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(FrameSample)

// ObserveFrame implements Observer.
func (f ObserverFunc) ObserveFrame(s FrameSample) { f(s) }

// State is the running state of one stream. It is created by Start and
// advanced by Step; nothing else mutates it.
type State struct {
	Index        int // frames consumed so far
	Width        int // input frame shape, fixed for the stream
	Height       int
	WorkWidth    int // pyramid-clean working shape
	WorkHeight   int
	OutputWidth  int
	OutputHeight int
	Prev         *l1image.Image     // previous frame at working resolution
	Global       *l1image.FlowField // running displacement at working resolution
	CorrectionU  float64
	CorrectionV  float64
}

// Summary describes a completed Run.
type Summary struct {
	Frames        int
	Width         int
	Height        int
	OutputWidth   int
	OutputHeight  int
	MaxCorrection float64 // largest |correction| over the run, in working pixels
	Holes         int
	Elapsed       time.Duration
}

// Stabilizer removes global translational shake from a frame stream.
type Stabilizer struct {
	cfg       Config
	solver    l4flow.Solver
	estimator *l5estimate.Estimator
	observers []Observer
}

// New returns a stabilizer using solver for every flow step.
func New(cfg Config, solver l4flow.Solver) (*Stabilizer, error) {
	est, err := l5estimate.New(solver, cfg.MaxIter, cfg.NumLevels)
	if err != nil {
		return nil, fmt.Errorf("stabilizer: %w", err)
	}
	if cfg.MinLevelWindows < 0 {
		return nil, fmt.Errorf("stabilizer: %d: %w", cfg.MinLevelWindows, l5estimate.ErrInvalidMinLevelWindows)
	}
	est.MinLevelWindows = cfg.MinLevelWindows
	est.ExtendBorder = cfg.ExtendBorder
	if cfg.OutputWidth < 0 || cfg.OutputHeight < 0 {
		return nil, fmt.Errorf("stabilizer: negative output size %dx%d", cfg.OutputWidth, cfg.OutputHeight)
	}
	return &Stabilizer{cfg: cfg, solver: solver, estimator: est}, nil
}

// AddObserver registers o to receive a sample for every emitted frame.
func (s *Stabilizer) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Config returns the stabilizer's configuration.
func (s *Stabilizer) Config() Config { return s.cfg }

// Start fixes the stream shape from the first frame and returns the initial
// state together with the first output frame. The first frame has no
// predecessor and only passes through the crop and output resize.
func (s *Stabilizer) Start(first *l1image.Image) (*State, *l1image.Image, error) {
	if first.Empty() {
		return nil, nil, fmt.Errorf("first frame: %w", l1image.ErrEmptyImage)
	}
	if err := s.cfg.Crop.Validate(first.Width, first.Height); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidMargins, err)
	}

	ww, wh := s.estimator.WorkingSize(first.Width, first.Height)
	st := &State{
		Width:        first.Width,
		Height:       first.Height,
		WorkWidth:    ww,
		WorkHeight:   wh,
		OutputWidth:  s.cfg.OutputWidth,
		OutputHeight: s.cfg.OutputHeight,
		Global:       l1image.NewFlowField(ww, wh),
	}
	if st.OutputWidth == 0 || st.OutputHeight == 0 {
		st.OutputWidth, st.OutputHeight = first.Width, first.Height
	}

	prev, err := s.toWorking(st, first)
	if err != nil {
		return nil, nil, err
	}
	st.Prev = prev

	out, err := s.output(st, first)
	if err != nil {
		return nil, nil, err
	}
	st.Index = 1

	if skipped := s.estimator.SkippedLevels(first.Width, first.Height); skipped > 0 {
		diagf("%d of %d coarse levels are too small for a %d px window and will not be refined",
			skipped, s.cfg.NumLevels, s.solver.WindowSize())
	}
	diagf("stream %dx%d, working %dx%d, output %dx%d, solver=%s window=%d iter=%d levels=%d",
		st.Width, st.Height, ww, wh, st.OutputWidth, st.OutputHeight,
		s.solver.Name(), s.solver.WindowSize(), s.cfg.MaxIter, s.cfg.NumLevels)
	return st, out, nil
}

// Step stabilizes the next frame of the stream and advances st.
//
// The flow from the previous frame is averaged over the interior (the
// band of width window/2 on every side is excluded), and the two means are
// added to the interior of the running displacement only; its border band
// keeps whatever it held before. The frame is then warped by the running
// displacement, cropped and resized to the output shape.
func (s *Stabilizer) Step(st *State, frame *l1image.Image) (*l1image.Image, FrameSample, error) {
	start := time.Now()
	if st == nil {
		return nil, FrameSample{}, ErrNotStarted
	}
	if frame.Empty() {
		return nil, FrameSample{}, fmt.Errorf("frame %d: %w", st.Index, l1image.ErrEmptyImage)
	}
	if frame.Width != st.Width || frame.Height != st.Height {
		return nil, FrameSample{}, fmt.Errorf("frame %d is %s, stream is %dx%d: %w",
			st.Index, frame, st.Width, st.Height, ErrShapeMismatch)
	}

	cur, err := s.toWorking(st, frame)
	if err != nil {
		return nil, FrameSample{}, err
	}
	flow, err := s.estimator.Estimate(st.Prev, cur)
	if err != nil {
		return nil, FrameSample{}, fmt.Errorf("frame %d: %w", st.Index, err)
	}

	interior := l1image.Interior(st.WorkWidth, st.WorkHeight, s.solver.WindowSize()/2)
	var mu, mv float64
	if !interior.Empty() {
		mu = stat.Mean(flow.U.Values(interior), nil)
		mv = stat.Mean(flow.V.Values(interior), nil)
		st.Global.U.AddConst(interior, mu)
		st.Global.V.AddConst(interior, mv)
	}
	st.CorrectionU += mu
	st.CorrectionV += mv

	warped, ws, err := l3warp.WarpWithStats(cur, st.Global)
	if err != nil {
		return nil, FrameSample{}, fmt.Errorf("frame %d: %w", st.Index, err)
	}
	out, err := s.output(st, warped)
	if err != nil {
		return nil, FrameSample{}, fmt.Errorf("frame %d: %w", st.Index, err)
	}

	sample := FrameSample{
		Index:       st.Index,
		MeanU:       mu,
		MeanV:       mv,
		CorrectionU: st.CorrectionU,
		CorrectionV: st.CorrectionV,
		Holes:       ws.Holes,
		Elapsed:     time.Since(start),
	}
	st.Prev = cur
	st.Index++

	tracef("frame %d: flow (%.3f, %.3f) correction (%.3f, %.3f) holes=%d in %v",
		sample.Index, mu, mv, st.CorrectionU, st.CorrectionV, ws.Holes, sample.Elapsed)
	return out, sample, nil
}

// Run stabilizes every frame of src into sink. It returns when src reports
// io.EOF, when a frame fails, or when ctx is cancelled between frames.
func (s *Stabilizer) Run(ctx context.Context, src FrameSource, sink FrameSink) (Summary, error) {
	start := time.Now()
	var sum Summary

	first, err := src.Next(ctx)
	if errors.Is(err, io.EOF) {
		opsf("empty stream, nothing to stabilize")
		return sum, nil
	}
	if err != nil {
		return sum, fmt.Errorf("read frame 0: %w", err)
	}

	st, out, err := s.Start(first)
	if err != nil {
		return sum, err
	}
	sum.Width, sum.Height = st.Width, st.Height
	sum.OutputWidth, sum.OutputHeight = st.OutputWidth, st.OutputHeight
	if err := sink.Write(ctx, out); err != nil {
		return sum, fmt.Errorf("write frame 0: %w", err)
	}
	sum.Frames = 1
	s.notify(FrameSample{Elapsed: time.Since(start)})

	for {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(start)
			opsf("stopped after %d frames: %v", sum.Frames, err)
			return sum, err
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("read frame %d: %w", st.Index, err)
		}

		out, sample, err := s.Step(st, frame)
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}
		if err := sink.Write(ctx, out); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("write frame %d: %w", sample.Index, err)
		}

		sum.Frames++
		sum.Holes += sample.Holes
		sum.MaxCorrection = math.Max(sum.MaxCorrection, math.Hypot(sample.CorrectionU, sample.CorrectionV))
		s.notify(sample)
	}

	sum.Elapsed = time.Since(start)
	diagf("stabilized %d frames in %v (max correction %.2f px, %d hole pixels)",
		sum.Frames, sum.Elapsed, sum.MaxCorrection, sum.Holes)
	return sum, nil
}

func (s *Stabilizer) notify(sample FrameSample) {
	for _, o := range s.observers {
		o.ObserveFrame(sample)
	}
}

// toWorking resizes an input frame to the working resolution.
func (s *Stabilizer) toWorking(st *State, frame *l1image.Image) (*l1image.Image, error) {
	if frame.Width == st.WorkWidth && frame.Height == st.WorkHeight {
		return frame, nil
	}
	img, err := l1image.Resize(frame, st.WorkWidth, st.WorkHeight)
	if err != nil {
		return nil, fmt.Errorf("resize to working size: %w", err)
	}
	return img, nil
}

// output crops the configured margins and resizes to the output shape.
func (s *Stabilizer) output(st *State, img *l1image.Image) (*l1image.Image, error) {
	cropped := img
	if !s.cfg.Crop.IsZero() {
		var err error
		if cropped, err = l1image.Crop(img, s.cfg.Crop); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMargins, err)
		}
	}
	if cropped.Width == st.OutputWidth && cropped.Height == st.OutputHeight {
		if cropped == img {
			return img.Clone(), nil
		}
		return cropped, nil
	}
	return l1image.Resize(cropped, st.OutputWidth, st.OutputHeight)
}
