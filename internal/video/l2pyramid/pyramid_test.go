package l2pyramid

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

func checkerboard(n int) *l1image.Image {
	im := l1image.NewImage(n, n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			im.Set(x, y, float64((x+y)%2))
		}
	}
	return im
}

func shapes(p Pyramid) []string {
	out := make([]string, len(p))
	for i, im := range p {
		out[i] = fmt.Sprintf("%dx%d", im.Width, im.Height)
	}
	return out
}

func TestBuild_CheckerboardExactValues(t *testing.T) {
	t.Parallel()
	p, err := Build(checkerboard(4), 2)
	require.NoError(t, err)
	require.Len(t, p, 3)

	// Level 1, worked by hand: the symmetric-extended binomial blur of a
	// 4×4 checkerboard sampled at (0,0), (2,0), (0,2), (2,2).
	want1 := []float64{110.0 / 256, 134.0 / 256, 134.0 / 256, 126.0 / 256}
	assert.Equal(t, want1, p[1].Pix)

	// Level 2 is the blur of that 2×2 block at (0,0).
	assert.Equal(t, []float64{123.5 / 256}, p[2].Pix)
}

func TestBuild_LevelZeroIsInput(t *testing.T) {
	im := checkerboard(6)
	p, err := Build(im, 1)
	require.NoError(t, err)
	assert.Same(t, im, p[0])
	assert.Equal(t, 1, p.Levels())
	assert.Same(t, p[1], p.Coarsest())
}

func TestBuild_LevelShapes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		w, h, levels int
		want         []string
	}{
		{8, 8, 0, []string{"8x8"}},
		{8, 4, 2, []string{"8x4", "4x2", "2x1"}},
		{5, 3, 3, []string{"5x3", "3x2", "2x1", "1x1"}},
		{64, 48, 4, []string{"64x48", "32x24", "16x12", "8x6", "4x3"}},
	}
	for _, tc := range cases {
		p, err := Build(l1image.NewImage(tc.w, tc.h), tc.levels)
		require.NoError(t, err)
		assert.Len(t, p, tc.levels+1)
		if diff := cmp.Diff(tc.want, shapes(p)); diff != "" {
			t.Errorf("Build(%dx%d, %d) shapes mismatch (-want +got):\n%s", tc.w, tc.h, tc.levels, diff)
		}
	}
}

func TestBuild_ConstantImageStaysConstant(t *testing.T) {
	im := l1image.NewImage(16, 12)
	for i := range im.Pix {
		im.Pix[i] = 42
	}
	p, err := Build(im, 3)
	require.NoError(t, err)
	for lvl, level := range p {
		for _, v := range level.Pix {
			assert.InDelta(t, 42.0, v, 1e-9, "level %d", lvl)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(checkerboard(4), -1)
	assert.ErrorIs(t, err, ErrNegativeLevels)

	_, err = Build(nil, 2)
	assert.ErrorIs(t, err, l1image.ErrEmptyImage)

	_, err = Build(l1image.NewImage(0, 3), 1)
	assert.ErrorIs(t, err, l1image.ErrEmptyImage)
}

func TestCleanSize(t *testing.T) {
	cases := []struct {
		w, h, levels, wantW, wantH int
	}{
		{64, 64, 2, 64, 64},
		{65, 63, 2, 68, 64},
		{640, 360, 5, 640, 384},
		{7, 9, 0, 7, 9},
		{1, 1, 3, 8, 8},
	}
	for _, tc := range cases {
		w, h := CleanSize(tc.w, tc.h, tc.levels)
		assert.Equal(t, tc.wantW, w, "width for %dx%d/%d", tc.w, tc.h, tc.levels)
		assert.Equal(t, tc.wantH, h, "height for %dx%d/%d", tc.w, tc.h, tc.levels)
	}
}
