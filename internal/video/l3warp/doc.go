// Package l3warp owns Layer 3 (Warp) of the video data model.
//
// Responsibilities: resampling an image under a displacement field that
// may be defined at a lower resolution, with bicubic interpolation and
// hole filling from the source image.
// Key types: Stats.
//
// Dependency rule: L3 may depend on L1, but never on L4+.
package l3warp
