package l6stabilize

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stabilizer/internal/video/frameio"
)

func TestSetLogWriters(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	s := newTestStabilizer(t, defaultConfig())
	var sink frameio.SliceSink
	_, err := s.Run(context.Background(), frameio.NewSliceSource(shakyClip(32, 32)[:3]...), &sink)
	require.NoError(t, err)

	assert.Contains(t, diag.String(), "[stabilize] ")
	assert.Contains(t, diag.String(), "stabilized 3 frames")
	assert.Equal(t, 2, strings.Count(trace.String(), "frame "))
	assert.NotContains(t, diag.String(), "coarse levels")
	assert.Empty(t, ops.String())
}

func TestSetLogWriters_SkippedLevelsOnDiag(t *testing.T) {
	var diag bytes.Buffer
	SetLogWriters(nil, &diag, nil)
	defer SetLogWriters(nil, nil, nil)

	cfg := defaultConfig()
	cfg.MinLevelWindows = 3
	s := newTestStabilizer(t, cfg)
	var sink frameio.SliceSink
	_, err := s.Run(context.Background(), frameio.NewSliceSource(shakyClip(32, 32)[:2]...), &sink)
	require.NoError(t, err)

	// 16 and 8 px levels are narrower than three 7 px windows.
	assert.Contains(t, diag.String(), "2 of 2 coarse levels")
}

func TestSetLogWriters_Disable(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, &buf, &buf)
	SetLogWriters(nil, nil, nil)

	assert.Nil(t, opsLogger)
	assert.Nil(t, diagLogger)
	assert.Nil(t, traceLogger)
	opsf("discarded %d", 1)
	assert.Empty(t, buf.String())
}
