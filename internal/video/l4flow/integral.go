package l4flow

// integral is a summed-area table: s[(y)*(w+1)+x] is the sum of all
// samples above and to the left of (x, y), exclusive.
type integral struct {
	w, h int
	s    []float64
}

func newIntegral(w, h int, pix []float64) integral {
	stride := w + 1
	s := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var run float64
		row := pix[y*w : (y+1)*w]
		above := s[y*stride : (y+1)*stride]
		cur := s[(y+1)*stride : (y+2)*stride]
		for x, v := range row {
			run += v
			cur[x+1] = above[x+1] + run
		}
	}
	return integral{w: w, h: h, s: s}
}

// sum returns the sum over the half-open rectangle [x0,x1)×[y0,y1).
// Callers clip the rectangle to the grid.
func (t integral) sum(x0, y0, x1, y1 int) float64 {
	stride := t.w + 1
	return t.s[y1*stride+x1] - t.s[y0*stride+x1] - t.s[y1*stride+x0] + t.s[y0*stride+x0]
}

// normalTables holds one table per normal-equation coefficient.
type normalTables struct {
	xx, xy, yy, xt, yt integral
}

// window accumulates the coefficients over [x0,x1)×[y0,y1).
func (t normalTables) window(x0, y0, x1, y1 int) normalSums {
	return normalSums{
		xx: t.xx.sum(x0, y0, x1, y1),
		xy: t.xy.sum(x0, y0, x1, y1),
		yy: t.yy.sum(x0, y0, x1, y1),
		xt: t.xt.sum(x0, y0, x1, y1),
		yt: t.yt.sum(x0, y0, x1, y1),
	}
}
