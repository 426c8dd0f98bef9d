package l4flow

import (
	"gonum.org/v1/gonum/mat"
)

// detEpsilon bounds det(AᵀA) from below for a solvable window. The
// gradients are 1/8 of the unnormalized Sobel response, so the determinant
// is 8⁴ times smaller; the bound is scaled to accept exactly the windows an
// unnormalized solve with a 1e-4 bound accepts.
const detEpsilon = 1e-4 / (8 * 8 * 8 * 8)

// normalSums are the entries of AᵀA and Aᵀ·It over one window, where the
// rows of A are the [Ix Iy] gradients of the window's pixels.
type normalSums struct {
	xx, xy, yy float64
	xt, yt     float64
}

func (n normalSums) det() float64 {
	return n.xx*n.yy - n.xy*n.xy
}

// normalSolver solves C·d = b for one window at a time. It keeps its
// matrices between calls and is not safe for concurrent use; each worker
// owns one.
type normalSolver struct {
	c    *mat.SymDense
	b    *mat.VecDense
	d    *mat.VecDense
	chol mat.Cholesky
}

func newNormalSolver() *normalSolver {
	return &normalSolver{
		c: mat.NewSymDense(2, nil),
		b: mat.NewVecDense(2, nil),
		d: mat.NewVecDense(2, nil),
	}
}

// solve returns (du, dv) = C⁻¹·Aᵀ(−It). ok is false when det(C) is at or
// below detEpsilon or C is not positive definite.
func (s *normalSolver) solve(n normalSums) (du, dv float64, ok bool) {
	if !(n.det() > detEpsilon) {
		return 0, 0, false
	}
	s.c.SetSym(0, 0, n.xx)
	s.c.SetSym(0, 1, n.xy)
	s.c.SetSym(1, 1, n.yy)
	if !s.chol.Factorize(s.c) {
		return 0, 0, false
	}
	s.b.SetVec(0, -n.xt)
	s.b.SetVec(1, -n.yt)
	if err := s.chol.SolveVecTo(s.d, s.b); err != nil {
		return 0, 0, false
	}
	return s.d.AtVec(0), s.d.AtVec(1), true
}
