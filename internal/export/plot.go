package export

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotOptions configures the rendered waveform figure.
type PlotOptions struct {
	Title       string
	SampleRate  float64
	PickTimeSec *float64 // optional vertical marker
}

// WritePNG renders raw and filtered traces into a single PNG figure. When a
// pick time is given it is drawn as a vertical dashed rule.
func WritePNG(raw, filtered []float64, opts PlotOptions) ([]byte, error) {
	if len(raw) != len(filtered) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(raw), len(filtered))
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("export: invalid sampling rate %g", opts.SampleRate)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("export: empty trace")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Amplitude"
	p.Legend.Top = true

	rawLine, err := plotter.NewLine(tracePoints(raw, opts.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("export: raw line: %w", err)
	}
	rawLine.Color = color.RGBA{R: 0x90, G: 0x90, B: 0x90, A: 0xff}

	filtLine, err := plotter.NewLine(tracePoints(filtered, opts.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("export: filtered line: %w", err)
	}
	filtLine.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

	p.Add(rawLine, filtLine)
	p.Legend.Add("raw", rawLine)
	p.Legend.Add("filtered", filtLine)

	if opts.PickTimeSec != nil {
		pickLine, err := plotter.NewLine(pickMarker(*opts.PickTimeSec, raw, filtered))
		if err != nil {
			return nil, fmt.Errorf("export: pick marker: %w", err)
		}
		pickLine.Color = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
		pickLine.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(pickLine)
		p.Legend.Add("P pick", pickLine)
	}

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("export: rendering: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("export: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func tracePoints(samples []float64, sampleRate float64) plotter.XYs {
	pts := make(plotter.XYs, len(samples))
	for i, v := range samples {
		pts[i].X = float64(i) / sampleRate
		pts[i].Y = v
	}
	return pts
}

// pickMarker spans the full amplitude range of both traces at the pick time.
func pickMarker(pickSec float64, traces ...[]float64) plotter.XYs {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, tr := range traces {
		for _, v := range tr {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return plotter.XYs{{X: pickSec, Y: lo}, {X: pickSec, Y: hi}}
}
