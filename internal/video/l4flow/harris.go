package l4flow

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// HarrisParams configures the Harris corner response.
type HarrisParams struct {
	BlockSize   int     // side of the box over which the structure tensor is summed
	Sensitivity float64 // k in det(M) − k·trace(M)²
}

// DefaultHarrisParams are the parameters used by CornerSolver.
var DefaultHarrisParams = HarrisParams{BlockSize: 5, Sensitivity: 0.05}

// DefaultCornerThreshold is the fraction of the maximum response a pixel
// must exceed to be treated as a corner.
const DefaultCornerThreshold = 0.01

// Harris returns the corner response det(M) − k·trace(M)² of img, where M
// is the structure tensor of the 3×3 Sobel gradients summed over a
// BlockSize×BlockSize box.
func Harris(img *l1image.Image, p HarrisParams) (*l1image.Image, error) {
	if img.Empty() {
		return nil, l1image.ErrEmptyImage
	}
	if p.BlockSize < 1 {
		return nil, fmt.Errorf("harris block size %d: must be positive", p.BlockSize)
	}

	ix := l1image.Convolve(img, sobelX)
	iy := l1image.Convolve(img, sobelY)
	n := len(img.Pix)
	xx := l1image.NewImage(img.Width, img.Height)
	xy := l1image.NewImage(img.Width, img.Height)
	yy := l1image.NewImage(img.Width, img.Height)
	for i := 0; i < n; i++ {
		xx.Pix[i] = ix.Pix[i] * ix.Pix[i]
		xy.Pix[i] = ix.Pix[i] * iy.Pix[i]
		yy.Pix[i] = iy.Pix[i] * iy.Pix[i]
	}
	sxx := l1image.BoxSum(xx, p.BlockSize)
	sxy := l1image.BoxSum(xy, p.BlockSize)
	syy := l1image.BoxSum(yy, p.BlockSize)

	out := l1image.NewImage(img.Width, img.Height)
	for i := range out.Pix {
		a, b, c := sxx.Pix[i], sxy.Pix[i], syy.Pix[i]
		tr := a + c
		out.Pix[i] = a*c - b*b - p.Sensitivity*tr*tr
	}
	return out, nil
}

// SelectCorners returns the indices (y*Width+x) of the pixels whose
// response exceeds rel times the maximum response.
func SelectCorners(response *l1image.Image, rel float64) []int {
	if response.Empty() {
		return nil
	}
	thresh := rel * floats.Max(response.Pix)
	var idx []int
	for i, v := range response.Pix {
		if v > thresh {
			idx = append(idx, i)
		}
	}
	return idx
}
