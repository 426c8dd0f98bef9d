package l4flow

import (
	"fmt"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// DenseSolver solves the windowed normal equations at every pixel whose
// Window×Window neighbourhood lies inside the image. Pixels closer than
// Window/2 to a border, and pixels whose system is near-singular, keep a
// zero displacement.
type DenseSolver struct {
	Window  int
	Workers int // row bands solved concurrently; 0 means GOMAXPROCS
}

// NewDenseSolver returns a dense solver with the given window size.
func NewDenseSolver(window int) (*DenseSolver, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	return &DenseSolver{Window: window}, nil
}

// Name implements Solver.
func (s *DenseSolver) Name() string { return KindDense }

// WindowSize implements Solver.
func (s *DenseSolver) WindowSize() int { return s.Window }

// Step implements Solver.
func (s *DenseSolver) Step(i1, i2 *l1image.Image) (*l1image.FlowField, error) {
	if err := validateWindow(s.Window); err != nil {
		return nil, err
	}
	g, err := computeGradients(i1, i2)
	if err != nil {
		return nil, fmt.Errorf("dense step: %w", err)
	}
	return s.solve(g)
}

func (s *DenseSolver) solve(g gradients) (*l1image.FlowField, error) {
	w, h := g.ix.Width, g.ix.Height
	flow := l1image.NewFlowField(w, h)
	r := s.Window / 2
	interior := l1image.Interior(w, h, r)
	if interior.Empty() {
		return flow, nil
	}

	tables := g.products()
	err := parallelRange(interior.Y0, interior.Y1, s.Workers, func(y0, y1 int) error {
		ns := newNormalSolver()
		for y := y0; y < y1; y++ {
			us := flow.U.Row(y)
			vs := flow.V.Row(y)
			for x := interior.X0; x < interior.X1; x++ {
				du, dv, ok := ns.solve(tables.window(x-r, y-r, x+r+1, y+r+1))
				if ok {
					us[x] = du
					vs[x] = dv
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}
