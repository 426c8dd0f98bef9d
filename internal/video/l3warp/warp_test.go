package l3warp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

func horizontalRamp(w, h int) *l1image.Image {
	im := l1image.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.Set(x, y, float64(x))
		}
	}
	return im
}

func constantFlow(w, h int, u, v float64) *l1image.FlowField {
	f := l1image.NewFlowField(w, h)
	for i := range f.U.Pix {
		f.U.Pix[i] = u
		f.V.Pix[i] = v
	}
	return f
}

func TestWarp_ZeroFlowIsIdentity(t *testing.T) {
	t.Parallel()
	im := l1image.NewImage(9, 7)
	for i := range im.Pix {
		im.Pix[i] = math.Sin(float64(i)) * 100
	}

	out, stats, err := WarpWithStats(im, l1image.NewFlowField(9, 7))
	require.NoError(t, err)
	assert.Equal(t, im.Pix, out.Pix)
	assert.Equal(t, 0, stats.Holes)
	assert.Equal(t, 63, stats.Samples)
}

func TestWarp_HalfPixelShiftOfRamp(t *testing.T) {
	t.Parallel()
	im := horizontalRamp(10, 4)

	out, stats, err := WarpWithStats(im, constantFlow(10, 4, 0.5, 0))
	require.NoError(t, err)

	// Cubic convolution reproduces a linear ramp wherever all four
	// neighbours are inside the grid.
	for y := 0; y < 4; y++ {
		for x := 1; x <= 7; x++ {
			assert.InDelta(t, float64(x)+0.5, out.At(x, y), 1e-12, "(%d,%d)", x, y)
		}
		// The last column samples beyond the grid and keeps its own value.
		assert.Equal(t, 9.0, out.At(9, y))
	}
	assert.Equal(t, 4, stats.Holes)
}

func TestWarp_LowResolutionFlowIsRescaled(t *testing.T) {
	t.Parallel()
	im := horizontalRamp(8, 4)

	// 0.5 px at half resolution is 1 px at full resolution.
	out, stats, err := WarpWithStats(im, constantFlow(4, 2, 0.5, 0))
	require.NoError(t, err)

	for y := 0; y < 4; y++ {
		for x := 0; x < 7; x++ {
			assert.InDelta(t, float64(x+1), out.At(x, y), 1e-9, "(%d,%d)", x, y)
		}
		assert.Equal(t, 7.0, out.At(7, y))
	}
	assert.Equal(t, 4, stats.Holes)
}

func TestWarp_VerticalHolesFilledFromSource(t *testing.T) {
	im := l1image.NewImage(3, 3)
	for i := range im.Pix {
		im.Pix[i] = float64(i)
	}
	out, err := Warp(im, constantFlow(3, 3, 0, -1))
	require.NoError(t, err)

	// Row 0 samples row -1: a hole.
	assert.Equal(t, []float64{0, 1, 2}, out.Row(0))
	assert.InDeltaSlice(t, []float64{0, 1, 2}, out.Row(1), 1e-12)
	assert.InDeltaSlice(t, []float64{3, 4, 5}, out.Row(2), 1e-12)
}

func TestWarp_NaNFlowIsHole(t *testing.T) {
	im := horizontalRamp(4, 1)
	f := l1image.NewFlowField(4, 1)
	f.U.Pix[2] = math.NaN()

	out, stats, err := WarpWithStats(im, f)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, out.Pix)
	assert.Equal(t, 1, stats.Holes)
}

func TestWarp_Errors(t *testing.T) {
	_, err := Warp(nil, l1image.NewFlowField(2, 2))
	assert.ErrorIs(t, err, l1image.ErrEmptyImage)

	_, err = Warp(horizontalRamp(2, 2), nil)
	assert.ErrorIs(t, err, l1image.ErrEmptyImage)
}

func TestSampleCubic(t *testing.T) {
	im := horizontalRamp(6, 6)

	v, ok := SampleCubic(im, 2, 3)
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = SampleCubic(im, 5, 5)
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	_, ok = SampleCubic(im, -0.01, 1)
	assert.False(t, ok)
	_, ok = SampleCubic(im, 1, 5.01)
	assert.False(t, ok)
}
