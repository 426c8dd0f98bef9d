package l1image

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampImage(w, h int) *Image {
	im := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.Set(x, y, float64(x+10*y))
		}
	}
	return im
}

func TestReflect(t *testing.T) {
	cases := []struct {
		i, n, want int
	}{
		{0, 4, 0},
		{3, 4, 3},
		{-1, 4, 0},
		{-2, 4, 1},
		{4, 4, 3},
		{5, 4, 2},
		{-3, 2, 1},
		{7, 1, 0},
	}
	for _, tc := range cases {
		if got := Reflect(tc.i, tc.n); got != tc.want {
			t.Errorf("Reflect(%d, %d) = %d, want %d", tc.i, tc.n, got, tc.want)
		}
	}
}

func TestConvolve_SeparableMatchesDense(t *testing.T) {
	t.Parallel()
	im := rampImage(7, 5)
	im.Set(3, 2, 100)
	taps := []float64{1, 4, 6, 4, 1}

	dense := Convolve(im, Outer(taps, taps, 1.0/256))
	sep := ConvolveSeparable(im, []float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16},
		[]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16})

	require.True(t, dense.SameShape(sep))
	for i := range dense.Pix {
		assert.InDelta(t, dense.Pix[i], sep.Pix[i], 1e-9, "pixel %d", i)
	}
}

func TestConvolve_DerivativeSign(t *testing.T) {
	t.Parallel()
	// Horizontal ramp: intensity grows by 1 per column.
	im := NewImage(6, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			im.Set(x, y, float64(x))
		}
	}
	k := NewKernel([][]float64{{1, 0, -1}, {2, 0, -2}, {1, 0, -1}}).Scale(1.0 / 8)
	gx := Convolve(im, k)
	gy := Convolve(im, k.Transpose())

	for y := 1; y < 5; y++ {
		for x := 1; x < 5; x++ {
			assert.InDelta(t, 1.0, gx.At(x, y), 1e-12)
			assert.InDelta(t, 0.0, gy.At(x, y), 1e-12)
		}
	}
}

func TestBoxSum_Constant(t *testing.T) {
	im := NewImage(8, 8)
	for i := range im.Pix {
		im.Pix[i] = 2
	}
	s := BoxSum(im, 5)
	for _, v := range s.Pix {
		assert.InDelta(t, 50.0, v, 1e-12)
	}
}

func TestResize(t *testing.T) {
	t.Parallel()

	t.Run("upsample row", func(t *testing.T) {
		im, err := FromPix(2, 1, []float64{0, 4})
		require.NoError(t, err)
		out, err := Resize(im, 4, 1)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0, 1, 3, 4}, out.Pix, 1e-12)
	})

	t.Run("downsample row", func(t *testing.T) {
		im, err := FromPix(4, 1, []float64{0, 1, 2, 3})
		require.NoError(t, err)
		out, err := Resize(im, 2, 1)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0.5, 2.5}, out.Pix, 1e-12)
	})

	t.Run("same size copies", func(t *testing.T) {
		im := rampImage(3, 3)
		out, err := Resize(im, 3, 3)
		require.NoError(t, err)
		assert.Equal(t, im.Pix, out.Pix)
		out.Pix[0] = -1
		assert.NotEqual(t, im.Pix[0], out.Pix[0])
	})

	t.Run("constant stays constant", func(t *testing.T) {
		im := NewImage(5, 3)
		for i := range im.Pix {
			im.Pix[i] = 7
		}
		out, err := Resize(im, 13, 8)
		require.NoError(t, err)
		for _, v := range out.Pix {
			assert.InDelta(t, 7.0, v, 1e-12)
		}
	})

	t.Run("invalid target", func(t *testing.T) {
		_, err := Resize(rampImage(2, 2), 0, 3)
		assert.ErrorIs(t, err, ErrEmptyImage)
	})
}

func TestFlowField_ResizeToScalesDisplacement(t *testing.T) {
	t.Parallel()
	f := NewFlowField(4, 2)
	for i := range f.U.Pix {
		f.U.Pix[i] = 1.5
		f.V.Pix[i] = -0.5
	}
	g, err := f.ResizeTo(8, 6)
	require.NoError(t, err)
	assert.Equal(t, 8, g.Width())
	assert.Equal(t, 6, g.Height())
	for i := range g.U.Pix {
		assert.InDelta(t, 3.0, g.U.Pix[i], 1e-12)
		assert.InDelta(t, -1.5, g.V.Pix[i], 1e-12)
	}
	// The source field is untouched.
	assert.Equal(t, 1.5, f.U.Pix[0])
}

func TestFlowField_Add(t *testing.T) {
	f := NewFlowField(2, 2)
	d := NewFlowField(2, 2)
	d.U.Pix[1] = 0.25
	d.V.Pix[3] = -2
	require.NoError(t, f.Add(d))
	require.NoError(t, f.Add(d))
	assert.Equal(t, []float64{0, 0.5, 0, 0}, f.U.Pix)
	assert.Equal(t, []float64{0, 0, 0, -4}, f.V.Pix)

	err := f.Add(NewFlowField(3, 2))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestNewFlowFieldFrom_Mismatch(t *testing.T) {
	_, err := NewFlowFieldFrom(NewImage(2, 3), NewImage(3, 2))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestInteriorRegion(t *testing.T) {
	r := Interior(10, 6, 2)
	assert.Equal(t, Region{X0: 2, Y0: 2, X1: 8, Y1: 4}, r)
	assert.Equal(t, 12, r.Area())

	empty := Interior(4, 4, 3)
	assert.True(t, empty.Empty())
	assert.Equal(t, 0, empty.Area())
}

func TestImage_ValuesAndAddConst(t *testing.T) {
	im := rampImage(4, 3)
	r := Region{X0: 1, Y0: 1, X1: 3, Y1: 3}
	assert.Equal(t, []float64{11, 12, 21, 22}, im.Values(r))

	im.AddConst(r, 0.5)
	assert.Equal(t, 11.5, im.At(1, 1))
	assert.Equal(t, 10.0, im.At(0, 1))
	assert.Equal(t, 22.5, im.At(2, 2))
	assert.Equal(t, 23.0, im.At(3, 2))
}

func TestImage_ExtendFrom(t *testing.T) {
	im := rampImage(5, 4)
	out := im.ExtendFrom(Interior(5, 4, 1))

	want := [][]float64{
		{11, 11, 12, 13, 13},
		{11, 11, 12, 13, 13},
		{21, 21, 22, 23, 23},
		{21, 21, 22, 23, 23},
	}
	for y, row := range want {
		assert.Equal(t, row, out.Row(y), "row %d", y)
	}
	assert.Equal(t, 0.0, im.At(0, 0), "source unchanged")

	same := im.ExtendFrom(Interior(5, 4, 3))
	assert.Equal(t, im.Pix, same.Pix)
	assert.NotSame(t, im, same)
}

func TestFlowField_ExtendFrom(t *testing.T) {
	f := NewFlowField(4, 4)
	f.U.Set(1, 1, 2)
	f.V.Set(2, 2, -1)
	out := f.ExtendFrom(Region{X0: 1, Y0: 1, X1: 3, Y1: 3})

	assert.Equal(t, 2.0, out.U.At(0, 0))
	assert.Equal(t, 0.0, out.U.At(3, 3))
	assert.Equal(t, -1.0, out.V.At(3, 3))
	assert.Equal(t, 0.0, f.U.At(0, 0))
}

func TestCrop(t *testing.T) {
	t.Parallel()
	im := rampImage(6, 5)

	out, err := Crop(im, Margins{Top: 1, Left: 2, Bottom: 1, Right: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Width)
	assert.Equal(t, 3, out.Height)
	assert.Equal(t, 12.0, out.At(0, 0))
	assert.Equal(t, 34.0, out.At(2, 2))

	_, err = Crop(im, Margins{Top: 3, Bottom: 2})
	assert.Error(t, err)
	_, err = Crop(im, Margins{Left: -1})
	assert.Error(t, err)
}

func TestGrayConversion(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 2))
	g.Pix = []uint8{0, 128, 255, 1, 2, 3}
	im := FromGray(g)
	assert.Equal(t, []float64{0, 128, 255, 1, 2, 3}, im.Pix)

	im.Pix[0] = -20
	im.Pix[1] = 127.6
	im.Pix[2] = 300
	back := im.ToGray()
	assert.Equal(t, []uint8{0, 128, 255, 1, 2, 3}, back.Pix)
}

func TestGrayConversion_OffsetBounds(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range g.Pix {
		g.Pix[i] = uint8(i)
	}
	sub := g.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)
	im := FromGray(sub)
	assert.Equal(t, []float64{5, 6, 9, 10}, im.Pix)
}

func TestCheckSameShape(t *testing.T) {
	assert.NoError(t, CheckSameShape(NewImage(2, 2), NewImage(2, 2)))
	assert.ErrorIs(t, CheckSameShape(NewImage(2, 2), NewImage(2, 3)), ErrShapeMismatch)
	assert.ErrorIs(t, CheckSameShape(nil, NewImage(2, 3)), ErrEmptyImage)

	d, err := Sub(rampImage(2, 2), NewImage(2, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 10, 11}, d.Pix)
}
