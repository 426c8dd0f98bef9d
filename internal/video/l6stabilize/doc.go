// Package l6stabilize owns Layer 6 (Stabilize) of the video data model.
//
// Responsibilities: consuming a frame stream, estimating the motion between
// consecutive frames, accumulating it into a running global displacement
// and emitting each frame warped by that displacement. The running state is
// an explicit State value threaded through Step, so a caller may stop
// between any two frames.
// Key types: Stabilizer, State, FrameSample, Summary, FrameSource, FrameSink.
//
// Dependency rule: L6 may depend on L1–L5.
package l6stabilize
