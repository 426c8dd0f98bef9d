// Package l2pyramid owns Layer 2 (Pyramid) of the video data model.
//
// Responsibilities: building multi-resolution Gaussian pyramids with the
// fixed 5-tap binomial blur and decimation by two, and choosing the
// pyramid-clean working size for a stream.
// Key types: Pyramid.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2pyramid
