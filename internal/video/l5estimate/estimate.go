package l5estimate

import (
	"errors"
	"fmt"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
	"github.com/banshee-data/stabilizer/internal/video/l2pyramid"
	"github.com/banshee-data/stabilizer/internal/video/l3warp"
	"github.com/banshee-data/stabilizer/internal/video/l4flow"
)

var (
	// ErrInvalidIterations is returned when MaxIter is below one.
	ErrInvalidIterations = errors.New("max iterations must be at least 1")
	// ErrNoSolver is returned when the estimator has no solver.
	ErrNoSolver = errors.New("no flow solver configured")
	// ErrInvalidMinLevelWindows is returned when MinLevelWindows is negative.
	ErrInvalidMinLevelWindows = errors.New("min level windows must not be negative")
)

// Estimator computes pyramidal Lucas–Kanade flow with a pluggable solver.
//
// The zero values of MinLevelWindows and ExtendBorder refine every level
// and warp by the accumulated flow exactly as solved.
type Estimator struct {
	Solver    l4flow.Solver
	MaxIter   int // solver steps per pyramid level
	NumLevels int // decimation steps; 0 solves at full resolution only

	// MinLevelWindows, when positive, leaves coarse levels whose smaller
	// side is below MinLevelWindows solver windows unrefined; their flow is
	// only carried up. The finest level is always refined.
	MinLevelWindows int
	// ExtendBorder warps with the flow of the solver's border band replaced
	// by the nearest interior flow. The returned flow is not extended.
	ExtendBorder bool
}

// Stats describes one estimate.
type Stats struct {
	Width, Height int // working resolution the pyramids were built at
	SolvedLevels  int
	SkippedLevels int // coarse levels below MinLevelWindows windows
	Steps         int // solver steps over all levels
}

// New returns an estimator after validating its parameters.
func New(solver l4flow.Solver, maxIter, numLevels int) (*Estimator, error) {
	e := &Estimator{Solver: solver, MaxIter: maxIter, NumLevels: numLevels}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Estimator) validate() error {
	if e.Solver == nil {
		return ErrNoSolver
	}
	if e.MaxIter < 1 {
		return fmt.Errorf("%d: %w", e.MaxIter, ErrInvalidIterations)
	}
	if e.NumLevels < 0 {
		return fmt.Errorf("%d: %w", e.NumLevels, l2pyramid.ErrNegativeLevels)
	}
	if e.MinLevelWindows < 0 {
		return fmt.Errorf("%d: %w", e.MinLevelWindows, ErrInvalidMinLevelWindows)
	}
	return nil
}

// WorkingSize returns the size both frames are resized to before the
// pyramids are built.
func (e *Estimator) WorkingSize(width, height int) (int, int) {
	return l2pyramid.CleanSize(width, height, e.NumLevels)
}

// SkippedLevels returns how many of the coarse pyramid levels of a
// width×height frame are left unrefined under MinLevelWindows.
func (e *Estimator) SkippedLevels(width, height int) int {
	w, h := e.WorkingSize(width, height)
	skipped := 0
	for lvl := e.NumLevels; lvl > 0; lvl-- {
		if e.solvable(levelSide(min(w, h), lvl)) {
			break
		}
		skipped++
	}
	return skipped
}

// Estimate returns the flow (u, v) that maps i1 onto i2: sampling i2 at
// (x+u, y+v) reproduces i1 at (x, y). The field has i1's shape.
func (e *Estimator) Estimate(i1, i2 *l1image.Image) (*l1image.FlowField, error) {
	flow, _, err := e.EstimateWithStats(i1, i2)
	return flow, err
}

// EstimateWithStats is Estimate that also reports how the pyramid was
// traversed.
func (e *Estimator) EstimateWithStats(i1, i2 *l1image.Image) (*l1image.FlowField, Stats, error) {
	if err := e.validate(); err != nil {
		return nil, Stats{}, err
	}
	if err := l1image.CheckSameShape(i1, i2); err != nil {
		return nil, Stats{}, fmt.Errorf("estimate: %w", err)
	}

	w, h := e.WorkingSize(i1.Width, i1.Height)
	stats := Stats{Width: w, Height: h}
	a, b := i1, i2
	if w != i1.Width || h != i1.Height {
		var err error
		if a, err = l1image.Resize(i1, w, h); err != nil {
			return nil, stats, fmt.Errorf("resize first frame: %w", err)
		}
		if b, err = l1image.Resize(i2, w, h); err != nil {
			return nil, stats, fmt.Errorf("resize second frame: %w", err)
		}
	}

	p1, err := l2pyramid.Build(a, e.NumLevels)
	if err != nil {
		return nil, stats, fmt.Errorf("first pyramid: %w", err)
	}
	p2, err := l2pyramid.Build(b, e.NumLevels)
	if err != nil {
		return nil, stats, fmt.Errorf("second pyramid: %w", err)
	}

	coarsest := p1.Coarsest()
	flow := l1image.NewFlowField(coarsest.Width, coarsest.Height)
	for lvl := e.NumLevels; lvl >= 0; lvl-- {
		ref, moving := p1[lvl], p2[lvl]
		if lvl == 0 || e.solvable(min(ref.Width, ref.Height)) {
			if err := e.refine(ref, moving, flow); err != nil {
				return nil, stats, fmt.Errorf("level %d: %w", lvl, err)
			}
			stats.SolvedLevels++
			stats.Steps += e.MaxIter
		} else {
			stats.SkippedLevels++
		}

		if lvl > 0 {
			next := p1[lvl-1]
			if flow, err = flow.ResizeTo(next.Width, next.Height); err != nil {
				return nil, stats, fmt.Errorf("level %d upsample: %w", lvl, err)
			}
		}
	}

	if flow.Width() != i1.Width || flow.Height() != i1.Height {
		if flow, err = flow.ResizeTo(i1.Width, i1.Height); err != nil {
			return nil, stats, fmt.Errorf("restore input size: %w", err)
		}
	}
	return flow, stats, nil
}

// refine runs MaxIter solver steps at one level, accumulating into flow.
func (e *Estimator) refine(ref, moving *l1image.Image, flow *l1image.FlowField) error {
	warped, err := e.warp(moving, flow)
	if err != nil {
		return err
	}
	for it := 0; it < e.MaxIter; it++ {
		d, err := e.Solver.Step(ref, warped)
		if err != nil {
			return fmt.Errorf("%s step %d: %w", e.Solver.Name(), it, err)
		}
		if err := flow.Add(d); err != nil {
			return err
		}
		if it == e.MaxIter-1 {
			break
		}
		if warped, err = e.warp(moving, flow); err != nil {
			return err
		}
	}
	return nil
}

// warp resamples moving under flow, extended past the solver's border band
// when ExtendBorder is set.
func (e *Estimator) warp(moving *l1image.Image, flow *l1image.FlowField) (*l1image.Image, error) {
	if e.ExtendBorder {
		interior := l1image.Interior(flow.Width(), flow.Height(), e.Solver.WindowSize()/2)
		flow = flow.ExtendFrom(interior)
	}
	return l3warp.Warp(moving, flow)
}

func (e *Estimator) solvable(side int) bool {
	return e.MinLevelWindows <= 0 || side >= e.MinLevelWindows*e.Solver.WindowSize()
}

// levelSide is the side length of level lvl for a clean base side.
func levelSide(side, lvl int) int {
	for i := 0; i < lvl; i++ {
		side = (side + 1) / 2
	}
	return side
}
