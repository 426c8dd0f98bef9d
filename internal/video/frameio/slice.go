package frameio

import (
	"context"
	"io"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// SliceSource yields the frames of a slice in order.
type SliceSource struct {
	Frames []*l1image.Image
	pos    int
}

// NewSliceSource returns a source over frames.
func NewSliceSource(frames ...*l1image.Image) *SliceSource {
	return &SliceSource{Frames: frames}
}

// Next returns the next frame, or io.EOF after the last.
func (s *SliceSource) Next(ctx context.Context) (*l1image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.Frames) {
		return nil, io.EOF
	}
	f := s.Frames[s.pos]
	s.pos++
	return f, nil
}

// SliceSink collects written frames.
type SliceSink struct {
	Frames []*l1image.Image
}

// Write appends img.
func (s *SliceSink) Write(ctx context.Context, img *l1image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Frames = append(s.Frames, img)
	return nil
}
