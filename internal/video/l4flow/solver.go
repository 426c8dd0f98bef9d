package l4flow

import (
	"errors"
	"fmt"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// Solver kinds accepted by NewSolver.
const (
	KindDense  = "dense"
	KindCorner = "corner"
)

var (
	// ErrUnknownSolver is returned by NewSolver for an unrecognised kind.
	ErrUnknownSolver = errors.New("unknown flow solver")
	// ErrInvalidWindow is returned for window sizes that are even or below 3.
	ErrInvalidWindow = errors.New("window size must be odd and at least 3")
)

// Solver performs one Lucas–Kanade step: it estimates the displacement
// (du, dv) per pixel such that sampling i2 at (x+du, y+dv) best matches
// i1 at (x, y). i1 and i2 must share a shape.
type Solver interface {
	Step(i1, i2 *l1image.Image) (*l1image.FlowField, error)
	Name() string
	WindowSize() int
}

// NewSolver returns the solver of the given kind.
func NewSolver(kind string, window int) (Solver, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	switch kind {
	case KindDense:
		return &DenseSolver{Window: window}, nil
	case KindCorner:
		return &CornerSolver{
			Window:    window,
			Harris:    DefaultHarrisParams,
			Threshold: DefaultCornerThreshold,
		}, nil
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownSolver)
	}
}

func validateWindow(window int) error {
	if window < 3 || window%2 == 0 {
		return fmt.Errorf("%d: %w", window, ErrInvalidWindow)
	}
	return nil
}

// SetWorkers sets the concurrency of the solvers defined in this package.
// Other Solver implementations are left unchanged.
func SetWorkers(s Solver, n int) {
	switch s := s.(type) {
	case *DenseSolver:
		s.Workers = n
	case *CornerSolver:
		s.Workers = n
	}
}
