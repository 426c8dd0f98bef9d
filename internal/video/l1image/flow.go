package l1image

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// FlowField is a displacement field: U holds the horizontal (column)
// displacement and V the vertical (row) displacement of every pixel.
// U and V always share a shape.
type FlowField struct {
	U *Image
	V *Image
}

// NewFlowField allocates a zero flow field of the given size.
func NewFlowField(width, height int) *FlowField {
	return &FlowField{U: NewImage(width, height), V: NewImage(width, height)}
}

// NewFlowFieldFrom pairs u and v, which must share a shape.
func NewFlowFieldFrom(u, v *Image) (*FlowField, error) {
	if err := CheckSameShape(u, v); err != nil {
		return nil, fmt.Errorf("flow components: %w", err)
	}
	return &FlowField{U: u, V: v}, nil
}

// Width returns the number of columns of the field.
func (f *FlowField) Width() int { return f.U.Width }

// Height returns the number of rows of the field.
func (f *FlowField) Height() int { return f.U.Height }

// Clone returns a deep copy of the field.
func (f *FlowField) Clone() *FlowField {
	return &FlowField{U: f.U.Clone(), V: f.V.Clone()}
}

// Add accumulates d into f in place (u += du, v += dv).
func (f *FlowField) Add(d *FlowField) error {
	if err := CheckSameShape(f.U, d.U); err != nil {
		return fmt.Errorf("accumulate flow: %w", err)
	}
	floats.Add(f.U.Pix, d.U.Pix)
	floats.Add(f.V.Pix, d.V.Pix)
	return nil
}

// ResizeTo resamples the field to width×height and re-expresses the
// displacements in the new pixel units: U is scaled by width/oldWidth and
// V by height/oldHeight.
func (f *FlowField) ResizeTo(width, height int) (*FlowField, error) {
	u, err := Resize(f.U, width, height)
	if err != nil {
		return nil, fmt.Errorf("resize u: %w", err)
	}
	v, err := Resize(f.V, width, height)
	if err != nil {
		return nil, fmt.Errorf("resize v: %w", err)
	}
	floats.Scale(float64(width)/float64(f.U.Width), u.Pix)
	floats.Scale(float64(height)/float64(f.V.Height), v.Pix)
	return &FlowField{U: u, V: v}, nil
}

// Region is a half-open pixel rectangle [X0,X1)×[Y0,Y1).
type Region struct {
	X0, Y0, X1, Y1 int
}

// Interior returns the region of a width×height grid left after removing a
// border of the given width on every side. The region may be empty.
func Interior(width, height, border int) Region {
	r := Region{X0: border, Y0: border, X1: width - border, Y1: height - border}
	if r.X1 < r.X0 {
		r.X1 = r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y1 = r.Y0
	}
	return r
}

// Empty reports whether the region holds no pixels.
func (r Region) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Area returns the number of pixels in the region.
func (r Region) Area() int {
	if r.Empty() {
		return 0
	}
	return (r.X1 - r.X0) * (r.Y1 - r.Y0)
}

// Values copies the samples of im inside r in row-major order.
func (im *Image) Values(r Region) []float64 {
	out := make([]float64, 0, r.Area())
	for y := r.Y0; y < r.Y1; y++ {
		out = append(out, im.Row(y)[r.X0:r.X1]...)
	}
	return out
}

// AddConst adds c to every sample of im inside r.
func (im *Image) AddConst(r Region, c float64) {
	for y := r.Y0; y < r.Y1; y++ {
		floats.AddConst(c, im.Row(y)[r.X0:r.X1])
	}
}

// ExtendFrom returns a copy of im in which every sample outside r takes the
// value of the nearest sample inside r. An empty r returns a plain copy.
func (im *Image) ExtendFrom(r Region) *Image {
	out := im.Clone()
	if r.Empty() {
		return out
	}
	for y := 0; y < im.Height; y++ {
		src := im.Row(clampIndex(y, r.Y0, r.Y1-1))
		dst := out.Row(y)
		for x := 0; x < r.X0; x++ {
			dst[x] = src[r.X0]
		}
		copy(dst[r.X0:r.X1], src[r.X0:r.X1])
		for x := r.X1; x < im.Width; x++ {
			dst[x] = src[r.X1-1]
		}
	}
	return out
}

// ExtendFrom applies Image.ExtendFrom to both components.
func (f *FlowField) ExtendFrom(r Region) *FlowField {
	return &FlowField{U: f.U.ExtendFrom(r), V: f.V.ExtendFrom(r)}
}

func clampIndex(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
