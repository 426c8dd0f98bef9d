package l1image

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when two grids that must share a shape do not.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrEmptyImage is returned for nil images or images with a zero dimension.
	ErrEmptyImage = errors.New("empty image")
)

// Image is a single-channel grid of float intensities stored row-major.
// Pix[y*Width+x] is the sample at column x, row y.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// NewImage allocates a zeroed width×height image.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// FromPix wraps pix as a width×height image. The slice is not copied.
func FromPix(width, height int, pix []float64) (*Image, error) {
	if len(pix) != width*height {
		return nil, fmt.Errorf("pix length %d does not match %dx%d: %w", len(pix), width, height, ErrShapeMismatch)
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// At returns the sample at column x, row y.
func (im *Image) At(x, y int) float64 {
	return im.Pix[y*im.Width+x]
}

// Set stores v at column x, row y.
func (im *Image) Set(x, y int, v float64) {
	im.Pix[y*im.Width+x] = v
}

// Row returns the samples of row y. The slice aliases the image.
func (im *Image) Row(y int) []float64 {
	return im.Pix[y*im.Width : (y+1)*im.Width]
}

// Clone returns a deep copy of the image.
func (im *Image) Clone() *Image {
	out := NewImage(im.Width, im.Height)
	copy(out.Pix, im.Pix)
	return out
}

// Empty reports whether the image is nil or has no samples.
func (im *Image) Empty() bool {
	return im == nil || im.Width <= 0 || im.Height <= 0
}

// SameShape reports whether both images have identical dimensions.
func (im *Image) SameShape(other *Image) bool {
	return im.Width == other.Width && im.Height == other.Height
}

// String formats the shape as WxH.
func (im *Image) String() string {
	if im == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%dx%d", im.Width, im.Height)
}

// CheckSameShape returns ErrShapeMismatch (wrapped with both shapes) unless
// a and b are non-empty and equally sized.
func CheckSameShape(a, b *Image) error {
	if a.Empty() || b.Empty() {
		return ErrEmptyImage
	}
	if !a.SameShape(b) {
		return fmt.Errorf("%s vs %s: %w", a, b, ErrShapeMismatch)
	}
	return nil
}

// Sub returns a-b element-wise.
func Sub(a, b *Image) (*Image, error) {
	if err := CheckSameShape(a, b); err != nil {
		return nil, err
	}
	out := NewImage(a.Width, a.Height)
	for i := range out.Pix {
		out.Pix[i] = a.Pix[i] - b.Pix[i]
	}
	return out, nil
}
