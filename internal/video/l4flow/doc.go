// Package l4flow owns Layer 4 (Flow) of the video data model.
//
// Responsibilities: one Lucas–Kanade step between two equally sized
// images. Each pixel's displacement is the least-squares solution of the
// brightness-constancy equations stacked over a square window. Two
// strategies share the Solver interface: DenseSolver solves every pixel
// whose window fits inside the image, and CornerSolver restricts the solve
// to Harris corners on large images.
// Key types: Solver, DenseSolver, CornerSolver, CornerStats, HarrisParams.
//
// Dependency rule: L4 may depend on L1, but never on L5+.
package l4flow
