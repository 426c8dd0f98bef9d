// Package l1image owns Layer 1 (Image) of the video data model.
//
// Responsibilities: the float intensity Image and the FlowField pair of
// displacement grids, symmetric-boundary convolution, bilinear resize,
// cropping, interior-region statistics and conversion to and from
// image.Gray.
// Key types: Image, FlowField, Kernel, Region.
//
// Dependency rule: L1 depends on nothing else in internal/video.
package l1image
