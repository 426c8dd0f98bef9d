// Package monitor turns the per-frame samples of a stabilization run into
// trajectory plots (PNG) and an interactive HTML chart.
package monitor

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/stabilizer/internal/video/l6stabilize"
)

// ErrNoSamples is returned when a report is requested before any frame was
// observed.
var ErrNoSamples = errors.New("no frame samples recorded")

const (
	plotWidth  = 12 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// series is one line of the trajectory reports.
type series struct {
	name  string
	color color.Color
	value func(l6stabilize.FrameSample) float64
}

var trajectorySeries = []series{
	{"shake u", color.RGBA{R: 66, G: 133, B: 244, A: 255}, func(s l6stabilize.FrameSample) float64 { return s.MeanU }},
	{"shake v", color.RGBA{R: 219, G: 68, B: 55, A: 255}, func(s l6stabilize.FrameSample) float64 { return s.MeanV }},
	{"correction u", color.RGBA{R: 15, G: 157, B: 88, A: 255}, func(s l6stabilize.FrameSample) float64 { return s.CorrectionU }},
	{"correction v", color.RGBA{R: 244, G: 160, B: 0, A: 255}, func(s l6stabilize.FrameSample) float64 { return s.CorrectionV }},
}

// TrajectoryPlotter records the frame samples of a run. It implements
// l6stabilize.Observer and is safe for concurrent use.
type TrajectoryPlotter struct {
	mu      sync.Mutex
	title   string
	samples []l6stabilize.FrameSample
}

// NewTrajectoryPlotter creates a plotter whose reports carry title.
func NewTrajectoryPlotter(title string) *TrajectoryPlotter {
	return &TrajectoryPlotter{title: title}
}

// ObserveFrame records one sample.
func (tp *TrajectoryPlotter) ObserveFrame(s l6stabilize.FrameSample) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.samples = append(tp.samples, s)
}

// Samples returns a copy of the recorded samples.
func (tp *TrajectoryPlotter) Samples() []l6stabilize.FrameSample {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return append([]l6stabilize.FrameSample(nil), tp.samples...)
}

// SavePNG writes the trajectory plot to path. The format follows the file
// extension (png, svg, pdf, ...).
func (tp *TrajectoryPlotter) SavePNG(path string) error {
	p, err := tp.plot()
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}

// WritePNG renders the trajectory plot as PNG to w.
func (tp *TrajectoryPlotter) WritePNG(w io.Writer) error {
	p, err := tp.plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render trajectory plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func (tp *TrajectoryPlotter) plot() (*plot.Plot, error) {
	samples := tp.Samples()
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = tp.title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Displacement (px)"
	p.Add(plotter.NewGrid())

	for _, s := range trajectorySeries {
		pts := make(plotter.XYs, len(samples))
		for i, fs := range samples {
			pts[i] = plotter.XY{X: float64(fs.Index), Y: s.value(fs)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}
