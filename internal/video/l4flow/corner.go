package l4flow

import (
	"fmt"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// fallbackFactor sets the smallest image dimension, in windows, at which
// CornerSolver stops delegating to the dense solver.
const fallbackFactor = 4

// CornerStats describes one corner-restricted step.
type CornerStats struct {
	Fallback bool // the image was too small and the dense solver ran instead
	Selected int  // pixels above the corner threshold
	Solved   int  // corners with a well-conditioned window
	Singular int  // corners left at zero by the determinant guard
}

// CornerSolver solves the normal equations only at Harris corners of the
// second image. Windows of corners near a border are clipped to the image
// instead of skipped. All other pixels keep a zero displacement. Images
// whose smaller side is under 4×Window are handed to the dense solver.
type CornerSolver struct {
	Window    int
	Workers   int // corner chunks solved concurrently; 0 means GOMAXPROCS
	Harris    HarrisParams
	Threshold float64 // fraction of the maximum Harris response
}

// NewCornerSolver returns a corner solver with the default Harris
// parameters and threshold.
func NewCornerSolver(window int) (*CornerSolver, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	return &CornerSolver{
		Window:    window,
		Harris:    DefaultHarrisParams,
		Threshold: DefaultCornerThreshold,
	}, nil
}

// Name implements Solver.
func (s *CornerSolver) Name() string { return KindCorner }

// WindowSize implements Solver.
func (s *CornerSolver) WindowSize() int { return s.Window }

// Step implements Solver.
func (s *CornerSolver) Step(i1, i2 *l1image.Image) (*l1image.FlowField, error) {
	flow, _, err := s.StepWithStats(i1, i2)
	return flow, err
}

// StepWithStats is Step that also reports how many corners were selected
// and solved.
func (s *CornerSolver) StepWithStats(i1, i2 *l1image.Image) (*l1image.FlowField, CornerStats, error) {
	if err := validateWindow(s.Window); err != nil {
		return nil, CornerStats{}, err
	}
	g, err := computeGradients(i1, i2)
	if err != nil {
		return nil, CornerStats{}, fmt.Errorf("corner step: %w", err)
	}

	w, h := i2.Width, i2.Height
	if min(w, h) < fallbackFactor*s.Window {
		dense := &DenseSolver{Window: s.Window, Workers: s.Workers}
		flow, err := dense.solve(g)
		return flow, CornerStats{Fallback: true}, err
	}

	response, err := Harris(i2, s.Harris)
	if err != nil {
		return nil, CornerStats{}, fmt.Errorf("corner step: %w", err)
	}
	corners := SelectCorners(response, s.Threshold)
	stats := CornerStats{Selected: len(corners)}

	flow := l1image.NewFlowField(w, h)
	if len(corners) == 0 {
		return flow, stats, nil
	}

	tables := g.products()
	r := s.Window / 2
	solved := make([]bool, len(corners))
	err = parallelRange(0, len(corners), s.Workers, func(start, end int) error {
		ns := newNormalSolver()
		for k := start; k < end; k++ {
			i := corners[k]
			x, y := i%w, i/w
			x0, y0 := max(x-r, 0), max(y-r, 0)
			x1, y1 := min(x+r+1, w), min(y+r+1, h)
			du, dv, ok := ns.solve(tables.window(x0, y0, x1, y1))
			if ok {
				flow.U.Pix[i] = du
				flow.V.Pix[i] = dv
				solved[k] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, CornerStats{}, err
	}

	for _, ok := range solved {
		if ok {
			stats.Solved++
		}
	}
	stats.Singular = stats.Selected - stats.Solved
	return flow, stats, nil
}
