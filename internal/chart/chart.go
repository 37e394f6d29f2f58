// Package chart draws the temperature history of a city with its seasonal
// bounds, anomalies and min/max/mean reference lines.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
)

var (
	colorTemperature = color.RGBA{B: 255, A: 255}
	colorLower       = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	colorUpper       = color.RGBA{R: 255, A: 255}
	colorAnomaly     = color.RGBA{R: 220, A: 255}
	colorMin         = color.RGBA{G: 128, A: 255}
	colorMax         = color.RGBA{R: 255, G: 165, A: 255}
	colorMean        = color.Black

	dashed = []vg.Length{vg.Points(6), vg.Points(4)}
)

// Size of the rendered image.
var (
	Width  = 16 * vg.Inch
	Height = 10 * vg.Inch
)

// ErrNoReadings is returned for an analysis without readings.
var ErrNoReadings = errors.New("nothing to plot")

// RenderPNG writes the chart of a city analysis as PNG.
func RenderPNG(w io.Writer, a *climate.CityAnalysis) error {
	p, err := build(a)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func build(a *climate.CityAnalysis) (*plot.Plot, error) {
	if a == nil || len(a.Readings) == 0 {
		return nil, ErrNoReadings
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Temperature time series with anomalies for %s", a.City)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Temperature, °C"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true

	var temps, lower, upper, anomalies plotter.XYs
	for _, r := range a.Readings {
		x := float64(r.Timestamp.Unix())
		temps = append(temps, plotter.XY{X: x, Y: r.Temperature})
		// Insufficient groups have NaN bounds, which plotter rejects.
		if r.Band.Sufficient() {
			lower = append(lower, plotter.XY{X: x, Y: r.Band.Lower})
			upper = append(upper, plotter.XY{X: x, Y: r.Band.Upper})
		}
		if r.IsAnomaly() {
			anomalies = append(anomalies, plotter.XY{X: x, Y: r.Temperature})
		}
	}

	tempLine, err := plotter.NewLine(temps)
	if err != nil {
		return nil, fmt.Errorf("temperature line: %w", err)
	}
	tempLine.Color = colorTemperature
	p.Add(tempLine)
	p.Legend.Add("Temperature", tempLine)

	if len(lower) > 0 {
		if err := addLine(p, lower, colorLower, "Lower bound"); err != nil {
			return nil, err
		}
		if err := addLine(p, upper, colorUpper, "Upper bound"); err != nil {
			return nil, err
		}
	}

	if len(anomalies) > 0 {
		sc, err := plotter.NewScatter(anomalies)
		if err != nil {
			return nil, fmt.Errorf("anomaly markers: %w", err)
		}
		sc.GlyphStyle.Color = colorAnomaly
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add("Anomalies", sc)
	}

	s := a.Summary
	addReference(p, s.Min, colorMin, fmt.Sprintf("Min (%.1f°C)", s.Min))
	addReference(p, s.Max, colorMax, fmt.Sprintf("Max (%.1f°C)", s.Max))
	addReference(p, s.Mean, colorMean, fmt.Sprintf("Mean (%.1f°C)", s.Mean))

	return p, nil
}

func addLine(p *plot.Plot, xys plotter.XYs, c color.Color, label string) error {
	l, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	l.Color = c
	l.Dashes = dashed
	p.Add(l)
	p.Legend.Add(label, l)
	return nil
}

func addReference(p *plot.Plot, y float64, c color.Color, label string) {
	fn := plotter.NewFunction(func(float64) float64 { return y })
	fn.Color = c
	fn.Dashes = dashed
	p.Add(fn)
	p.Legend.Add(label, fn)
}
