// Package charts renders ranked series and weekday profiles as PNG images
// with gonum/plot.
package charts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	apperrors "turnstilecli/internal/errors"
	"turnstilecli/pkg/contracts/domain"
)

// Default image size
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// Profile is one station's weekday values, Monday first
type Profile struct {
	Label  string
	Values [7]float64
}

// BarChart plots a series as horizontal bars, first entry on top
func BarChart(title, valueLabel string, series domain.Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("empty series")
	}

	n := len(series)
	values := make(plotter.Values, n)
	labels := make([]string, n)
	for i, e := range series {
		values[n-1-i] = float64(e.Value)
		labels[n-1-i] = e.Label
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = valueLabel
	p.X.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(0)

	p.Add(bars)
	p.NominalY(labels...)
	return p, nil
}

// WeekdayChart plots one line per profile across the days of the week
func WeekdayChart(title string, profiles []Profile) (*plot.Plot, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Mean exits per week"
	p.Y.Min = 0
	p.Legend.Top = true

	for i, prof := range profiles {
		pts := make(plotter.XYs, len(prof.Values))
		for d, v := range prof.Values {
			pts[d].X = float64(d)
			pts[d].Y = v
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", prof.Label, err)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)

		p.Add(line, points)
		p.Legend.Add(prof.Label, line, points)
	}

	names := make([]string, len(domain.Weekdays))
	for i, d := range domain.Weekdays {
		names[i] = d.String()[:3]
	}
	p.NominalX(names...)
	return p, nil
}

// WritePNG encodes p as PNG to w
func WritePNG(p *plot.Plot, w io.Writer, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes p as a PNG file at path
func SavePNG(p *plot.Plot, path string, width, height vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}
	if err := p.Save(width, height, path); err != nil {
		return apperrors.NewStorageError("save chart", err).WithContext("path", path)
	}
	return nil
}
