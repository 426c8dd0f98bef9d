package l1image

// Kernel is a small dense filter with odd dimensions. Values are stored
// row-major; Data[r*Cols+c].
type Kernel struct {
	Rows int
	Cols int
	Data []float64
}

// NewKernel builds a kernel from rows of coefficients.
func NewKernel(rows [][]float64) Kernel {
	k := Kernel{Rows: len(rows)}
	if k.Rows > 0 {
		k.Cols = len(rows[0])
	}
	k.Data = make([]float64, 0, k.Rows*k.Cols)
	for _, r := range rows {
		k.Data = append(k.Data, r...)
	}
	return k
}

// Outer returns the separable kernel colᵀ·row scaled by scale.
func Outer(col, row []float64, scale float64) Kernel {
	k := Kernel{Rows: len(col), Cols: len(row), Data: make([]float64, len(col)*len(row))}
	for r, cv := range col {
		for c, rv := range row {
			k.Data[r*k.Cols+c] = cv * rv * scale
		}
	}
	return k
}

// Transpose returns the kernel with rows and columns swapped.
func (k Kernel) Transpose() Kernel {
	t := Kernel{Rows: k.Cols, Cols: k.Rows, Data: make([]float64, len(k.Data))}
	for r := 0; r < k.Rows; r++ {
		for c := 0; c < k.Cols; c++ {
			t.Data[c*t.Cols+r] = k.Data[r*k.Cols+c]
		}
	}
	return t
}

// Scale returns a copy of k with every coefficient multiplied by s.
func (k Kernel) Scale(s float64) Kernel {
	out := Kernel{Rows: k.Rows, Cols: k.Cols, Data: make([]float64, len(k.Data))}
	for i, v := range k.Data {
		out.Data[i] = v * s
	}
	return out
}

// Reflect maps an out-of-range index onto [0, n) by symmetric extension
// with edge repetition: -1 → 0, -2 → 1, n → n-1, n+1 → n-2.
func Reflect(i, n int) int {
	if n <= 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

// Convolve computes the same-size 2D convolution of im with k using
// symmetric boundary extension. The kernel is flipped (true convolution),
// so an antisymmetric derivative kernel keeps its sign convention.
func Convolve(im *Image, k Kernel) *Image {
	out := NewImage(im.Width, im.Height)
	cy, cx := k.Rows/2, k.Cols/2
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			var acc float64
			for r := 0; r < k.Rows; r++ {
				sy := Reflect(y-(r-cy), im.Height)
				row := im.Pix[sy*im.Width : (sy+1)*im.Width]
				kr := k.Data[r*k.Cols : (r+1)*k.Cols]
				for c, kv := range kr {
					if kv == 0 {
						continue
					}
					acc += kv * row[Reflect(x-(c-cx), im.Width)]
				}
			}
			out.Pix[y*out.Width+x] = acc
		}
	}
	return out
}

// ConvolveSeparable convolves im with colᵀ·row, one pass per axis, using
// symmetric boundary extension. It matches Convolve(im, Outer(col, row, 1))
// for symmetric 1D taps.
func ConvolveSeparable(im *Image, col, row []float64) *Image {
	tmp := NewImage(im.Width, im.Height)
	cx := len(row) / 2
	for y := 0; y < im.Height; y++ {
		src := im.Row(y)
		dst := tmp.Row(y)
		for x := range dst {
			var acc float64
			for c, kv := range row {
				acc += kv * src[Reflect(x-(c-cx), im.Width)]
			}
			dst[x] = acc
		}
	}

	out := NewImage(im.Width, im.Height)
	cy := len(col) / 2
	for y := 0; y < im.Height; y++ {
		dst := out.Row(y)
		for r, kv := range col {
			src := tmp.Row(Reflect(y-(r-cy), im.Height))
			for x := range dst {
				dst[x] += kv * src[x]
			}
		}
	}
	return out
}

// BoxSum returns, for every pixel, the sum of im over the size×size block
// centred on it, with symmetric boundary extension.
func BoxSum(im *Image, size int) *Image {
	ones := make([]float64, size)
	for i := range ones {
		ones[i] = 1
	}
	return ConvolveSeparable(im, ones, ones)
}
