package l2pyramid

import (
	"errors"
	"fmt"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// ErrNegativeLevels is returned when a pyramid depth below zero is requested.
var ErrNegativeLevels = errors.New("number of pyramid levels must be non-negative")

// binomialTaps is one axis of the 5×5 smoothing kernel [1 4 6 4 1]ᵀ[1 4 6 4 1]/256.
var binomialTaps = []float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// Pyramid is a multi-resolution stack of images. Level 0 is the original
// image; each following level has half the linear resolution (rounded up).
type Pyramid []*l1image.Image

// Build returns a pyramid with numLevels+1 levels. Each level is obtained
// by blurring the previous one with the binomial kernel (symmetric
// boundary) and keeping every second row and column starting at index 0.
// Level 0 is the input image itself, not a copy.
func Build(img *l1image.Image, numLevels int) (Pyramid, error) {
	if numLevels < 0 {
		return nil, fmt.Errorf("%d: %w", numLevels, ErrNegativeLevels)
	}
	if img.Empty() {
		return nil, l1image.ErrEmptyImage
	}

	p := make(Pyramid, 0, numLevels+1)
	p = append(p, img)
	for i := 0; i < numLevels; i++ {
		p = append(p, Reduce(p[i]))
	}
	return p, nil
}

// Reduce blurs img with the binomial kernel and decimates it by two.
func Reduce(img *l1image.Image) *l1image.Image {
	blurred := l1image.ConvolveSeparable(img, binomialTaps, binomialTaps)
	return decimate(blurred)
}

func decimate(img *l1image.Image) *l1image.Image {
	w := (img.Width + 1) / 2
	h := (img.Height + 1) / 2
	out := l1image.NewImage(w, h)
	for y := 0; y < h; y++ {
		src := img.Row(2 * y)
		dst := out.Row(y)
		for x := range dst {
			dst[x] = src[2*x]
		}
	}
	return out
}

// Levels returns the number of decimation steps in the pyramid.
func (p Pyramid) Levels() int { return len(p) - 1 }

// Coarsest returns the lowest-resolution level.
func (p Pyramid) Coarsest() *l1image.Image { return p[len(p)-1] }

// CleanSize rounds width and height up to the nearest multiple of
// 2^numLevels so that every level of a pyramid of that depth decimates
// without remainder.
func CleanSize(width, height, numLevels int) (int, int) {
	if numLevels <= 0 {
		return width, height
	}
	m := 1 << numLevels
	return roundUp(width, m), roundUp(height, m)
}

func roundUp(n, m int) int {
	return ((n + m - 1) / m) * m
}
