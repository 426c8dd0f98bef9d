package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/stabilizer/internal/video/l6stabilize"
)

// WriteHTML renders the recorded samples as an interactive line chart.
func (tp *TrajectoryPlotter) WriteHTML(w io.Writer) error {
	return RenderChart(w, tp.title, tp.Samples())
}

// RenderChart writes an HTML page charting the per-frame shake and the
// cumulative correction of samples.
func RenderChart(w io.Writer, title string, samples []l6stabilize.FrameSample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	frames := make([]int, len(samples))
	for i, s := range samples {
		frames[i] = s.Index
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("frames=%d", len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Displacement (px)", NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(frames)

	for _, s := range trajectorySeries {
		data := make([]opts.LineData, len(samples))
		for i, fs := range samples {
			data[i] = opts.LineData{Value: s.value(fs)}
		}
		line.AddSeries(s.name, data)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
