package l1image

import (
	"fmt"
	"math"
)

// Resize resamples im to width×height with bilinear interpolation.
// Sample centres are aligned (pixel x maps to source (x+0.5)·sx − 0.5) and
// source coordinates are clamped to the edge, the same convention as
// OpenCV's INTER_LINEAR. Equal sizes return a copy.
func Resize(im *Image, width, height int) (*Image, error) {
	if im.Empty() {
		return nil, ErrEmptyImage
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resize to %dx%d: %w", width, height, ErrEmptyImage)
	}
	if im.Width == width && im.Height == height {
		return im.Clone(), nil
	}

	xs := linearTaps(im.Width, width)
	ys := linearTaps(im.Height, height)

	out := NewImage(width, height)
	for y, ty := range ys {
		r0 := im.Row(ty.i0)
		r1 := im.Row(ty.i1)
		dst := out.Row(y)
		for x, tx := range xs {
			top := r0[tx.i0]*(1-tx.w) + r0[tx.i1]*tx.w
			bot := r1[tx.i0]*(1-tx.w) + r1[tx.i1]*tx.w
			dst[x] = top*(1-ty.w) + bot*ty.w
		}
	}
	return out, nil
}

type linearTap struct {
	i0, i1 int
	w      float64
}

func linearTaps(src, dst int) []linearTap {
	scale := float64(src) / float64(dst)
	taps := make([]linearTap, dst)
	for d := range taps {
		f := (float64(d)+0.5)*scale - 0.5
		if f < 0 {
			f = 0
		}
		i0 := int(math.Floor(f))
		if i0 > src-1 {
			i0 = src - 1
		}
		i1 := i0 + 1
		w := f - float64(i0)
		if i1 > src-1 {
			i1 = src - 1
			w = 0
		}
		taps[d] = linearTap{i0: i0, i1: i1, w: w}
	}
	return taps
}

// Margins is a number of pixels to remove from each side of an image.
type Margins struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// IsZero reports whether no pixels are removed.
func (m Margins) IsZero() bool {
	return m == Margins{}
}

// Validate checks that m is non-negative and leaves at least one pixel of a
// width×height image.
func (m Margins) Validate(width, height int) error {
	if m.Top < 0 || m.Left < 0 || m.Bottom < 0 || m.Right < 0 {
		return fmt.Errorf("negative margin %+v", m)
	}
	if m.Top+m.Bottom >= height || m.Left+m.Right >= width {
		return fmt.Errorf("margins %+v remove all of %dx%d", m, width, height)
	}
	return nil
}

// Crop returns the sub-image left after removing m from each side.
func Crop(im *Image, m Margins) (*Image, error) {
	if im.Empty() {
		return nil, ErrEmptyImage
	}
	if err := m.Validate(im.Width, im.Height); err != nil {
		return nil, err
	}
	if m.IsZero() {
		return im.Clone(), nil
	}
	w := im.Width - m.Left - m.Right
	h := im.Height - m.Top - m.Bottom
	out := NewImage(w, h)
	for y := 0; y < h; y++ {
		copy(out.Row(y), im.Row(y + m.Top)[m.Left:m.Left+w])
	}
	return out, nil
}
