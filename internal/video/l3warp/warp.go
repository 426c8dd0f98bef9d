package l3warp

import (
	"fmt"
	"math"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// keysA is the free parameter of the Keys cubic convolution kernel.
const keysA = -0.5

// Stats describes one warp.
type Stats struct {
	Samples int // output pixels
	Holes   int // samples outside the grid, filled from the source image
}

// Warp resamples img at (x+u, y+v) for every pixel. See WarpWithStats.
func Warp(img *l1image.Image, flow *l1image.FlowField) (*l1image.Image, error) {
	out, _, err := WarpWithStats(img, flow)
	return out, err
}

// WarpWithStats resamples img under flow and reports how many output
// pixels were holes.
//
// flow may be smaller than img: it is first resized to img's shape and
// its values re-expressed in img's pixel units (U by width ratio, V by
// height ratio). Each output pixel (x, y) samples img at (x+u, y+v) with
// bicubic interpolation. Sample points outside [0,w-1]×[0,h-1] are holes
// and take img(x, y).
func WarpWithStats(img *l1image.Image, flow *l1image.FlowField) (*l1image.Image, Stats, error) {
	if img.Empty() {
		return nil, Stats{}, l1image.ErrEmptyImage
	}
	if flow == nil || flow.U.Empty() {
		return nil, Stats{}, fmt.Errorf("warp: %w", l1image.ErrEmptyImage)
	}

	full := flow
	if flow.Width() != img.Width || flow.Height() != img.Height {
		var err error
		full, err = flow.ResizeTo(img.Width, img.Height)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("warp: %w", err)
		}
	}

	out := l1image.NewImage(img.Width, img.Height)
	stats := Stats{Samples: len(out.Pix)}
	for y := 0; y < img.Height; y++ {
		us := full.U.Row(y)
		vs := full.V.Row(y)
		dst := out.Row(y)
		for x := range dst {
			v, ok := SampleCubic(img, float64(x)+us[x], float64(y)+vs[x])
			if !ok {
				v = img.At(x, y)
				stats.Holes++
			}
			dst[x] = v
		}
	}
	return out, stats, nil
}

// SampleCubic interpolates img at the real-valued position (fx, fy) with
// Keys bicubic convolution. Neighbours beyond the border are clamped to
// the edge. It returns false when the position lies outside the grid.
func SampleCubic(img *l1image.Image, fx, fy float64) (float64, bool) {
	if math.IsNaN(fx) || math.IsNaN(fy) ||
		fx < 0 || fy < 0 || fx > float64(img.Width-1) || fy > float64(img.Height-1) {
		return 0, false
	}

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	wx := cubicWeights(fx - float64(x0))
	wy := cubicWeights(fy - float64(y0))

	var xs [4]int
	for i := range xs {
		xs[i] = clamp(x0-1+i, img.Width-1)
	}

	var acc float64
	for j, wyj := range wy {
		if wyj == 0 {
			continue
		}
		row := img.Row(clamp(y0-1+j, img.Height-1))
		var r float64
		for i, wxi := range wx {
			if wxi != 0 {
				r += wxi * row[xs[i]]
			}
		}
		acc += wyj * r
	}
	return acc, true
}

// cubicWeights returns the kernel weights of the neighbours at offsets
// -1, 0, 1, 2 for fractional position t in [0, 1).
func cubicWeights(t float64) [4]float64 {
	return [4]float64{keys(t + 1), keys(t), keys(1 - t), keys(2 - t)}
}

func keys(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t <= 1:
		return (keysA+2)*t*t*t - (keysA+3)*t*t + 1
	case t < 2:
		return keysA*t*t*t - 5*keysA*t*t + 8*keysA*t - 4*keysA
	default:
		return 0
	}
}

func clamp(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}
