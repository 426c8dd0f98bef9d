// Package l5estimate owns Layer 5 (Estimate) of the video data model.
//
// Responsibilities: coarse-to-fine optical flow between two frames. Both
// frames are brought to a size that decimates cleanly, turned into
// pyramids, and the flow is refined from the coarsest level to the finest
// by repeated solver steps against a re-warped second frame.
// Key types: Estimator, Stats.
//
// Dependency rule: L5 may depend on L1–L4, but never on L6.
package l5estimate
