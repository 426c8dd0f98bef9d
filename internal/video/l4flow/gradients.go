package l4flow

import (
	"fmt"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// sobelX is the horizontal 3×3 derivative kernel, normalized so that a
// unit ramp has unit gradient. sobelY is its transpose.
var (
	sobelX = l1image.NewKernel([][]float64{
		{1, 0, -1},
		{2, 0, -2},
		{1, 0, -1},
	}).Scale(1.0 / 8)
	sobelY = sobelX.Transpose()
)

// gradients holds the spatial derivatives of the second image and the
// temporal difference between the two.
type gradients struct {
	ix, iy, it *l1image.Image
}

func computeGradients(i1, i2 *l1image.Image) (gradients, error) {
	it, err := l1image.Sub(i2, i1)
	if err != nil {
		return gradients{}, fmt.Errorf("temporal difference: %w", err)
	}
	return gradients{
		ix: l1image.Convolve(i2, sobelX),
		iy: l1image.Convolve(i2, sobelY),
		it: it,
	}, nil
}

// products returns summed-area tables of the five per-pixel products that
// make up the normal equations.
func (g gradients) products() normalTables {
	n := len(g.ix.Pix)
	xx := make([]float64, n)
	xy := make([]float64, n)
	yy := make([]float64, n)
	xt := make([]float64, n)
	yt := make([]float64, n)
	for i := 0; i < n; i++ {
		gx, gy, gt := g.ix.Pix[i], g.iy.Pix[i], g.it.Pix[i]
		xx[i] = gx * gx
		xy[i] = gx * gy
		yy[i] = gy * gy
		xt[i] = gx * gt
		yt[i] = gy * gt
	}
	w, h := g.ix.Width, g.ix.Height
	return normalTables{
		xx: newIntegral(w, h, xx),
		xy: newIntegral(w, h, xy),
		yy: newIntegral(w, h, yy),
		xt: newIntegral(w, h, xt),
		yt: newIntegral(w, h, yt),
	}
}
