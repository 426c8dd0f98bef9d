package l1image

import (
	"image"
	"math"
)

// FromGray converts an 8-bit gray image to float intensities in [0, 255].
func FromGray(g *image.Gray) *Image {
	b := g.Bounds()
	out := NewImage(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		src := g.Pix[off : off+out.Width]
		dst := out.Row(y)
		for x, p := range src {
			dst[x] = float64(p)
		}
	}
	return out
}

// ToGray rounds the intensities to the nearest integer and clamps them to
// [0, 255].
func (im *Image) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, im.Width, im.Height))
	for y := 0; y < im.Height; y++ {
		row := im.Row(y)
		dst := g.Pix[y*g.Stride : y*g.Stride+im.Width]
		for x, v := range row {
			dst[x] = clampByte(v)
		}
	}
	return g
}

func clampByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
