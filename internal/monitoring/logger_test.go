package monitoring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) { got = append(got, format) })
	Logf("[recorder] first")
	assert.Equal(t, []string{"[recorder] first"}, got)

	SetLogger(nil)
	Logf("[recorder] muted")
	assert.Len(t, got, 1)
}

func TestSetWriter(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var buf bytes.Buffer
	SetWriter(&buf)
	Logf("[frameio] skipped %d files", 3)
	assert.Contains(t, buf.String(), "[frameio] skipped 3 files")

	SetWriter(nil)
	Logf("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestLogf_Default(t *testing.T) {
	assert.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}
