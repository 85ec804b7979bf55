// Package ivplot renders extracted I-V curves to PNG charts.
package ivplot

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/dfise"
)

// ErrNothingToPlot is returned when no table carries both channels.
var ErrNothingToPlot = errors.New("ivplot: nothing to plot")

// Options control the chart.
type Options struct {
	Title    string
	XChannel string
	YChannel string
	Width    vg.Length // default 800pt
	Height   vg.Length // default 500pt
	LogY     bool      // plot |y| on a log axis, typical for drain current
}

// Series is one labelled table to draw.
type Series struct {
	Label string
	Table *dfise.ChannelTable
}

var palette = []color.Color{
	color.RGBA{R: 220, G: 50, B: 47, A: 255},
	color.RGBA{R: 38, G: 139, B: 210, A: 255},
	color.RGBA{R: 133, G: 153, B: 0, A: 255},
	color.RGBA{R: 203, G: 75, B: 22, A: 255},
	color.RGBA{R: 108, G: 113, B: 196, A: 255},
	color.RGBA{R: 42, G: 161, B: 152, A: 255},
}

// Points pairs the x and y channels of t. Non-positive y values are dropped
// on a log axis.
func Points(t *dfise.ChannelTable, xName, yName string, logY bool) (plotter.XYs, bool) {
	xs, okX := t.Column(xName)
	ys, okY := t.Column(yName)
	if !okX || !okY {
		return nil, false
	}
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		y := ys[i]
		if logY {
			y = math.Abs(y)
			if y == 0 {
				continue
			}
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: y})
	}
	return pts, len(pts) > 0
}

// Plot builds the chart. Series missing either channel are skipped and
// their labels returned.
func Plot(series []Series, opts Options) (*plot.Plot, []string, error) {
	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s vs %s", opts.YChannel, opts.XChannel)
	}
	p.X.Label.Text = opts.XChannel
	p.Y.Label.Text = opts.YChannel
	if opts.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
		p.Y.Label.Text = "|" + opts.YChannel + "|"
	}
	p.Add(plotter.NewGrid())

	var skipped []string
	drawn := 0
	for _, s := range series {
		pts, ok := Points(s.Table, opts.XChannel, opts.YChannel, opts.LogY)
		if !ok {
			skipped = append(skipped, s.Label)
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, skipped, fmt.Errorf("ivplot: line for %s: %w", s.Label, err)
		}
		line.Color = palette[drawn%len(palette)]
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Label, line)
		drawn++
	}
	if drawn == 0 {
		return nil, skipped, ErrNothingToPlot
	}

	p.Legend.Top = true
	p.Legend.Left = true
	return p, skipped, nil
}

// Render draws the chart as PNG to w.
func Render(w io.Writer, series []Series, opts Options) ([]string, error) {
	p, skipped, err := Plot(series, opts)
	if err != nil {
		return skipped, err
	}

	width, height := opts.Width, opts.Height
	if width == 0 {
		width = vg.Points(800)
	}
	if height == 0 {
		height = vg.Points(500)
	}
	writer, err := p.WriterTo(width, height, "png")
	if err != nil {
		return skipped, fmt.Errorf("ivplot: create plot writer: %w", err)
	}
	if _, err := writer.WriteTo(w); err != nil {
		return skipped, fmt.Errorf("ivplot: write plot: %w", err)
	}
	return skipped, nil
}

// RenderPNG is Render into a byte slice.
func RenderPNG(series []Series, opts Options) ([]byte, []string, error) {
	var buf bytes.Buffer
	skipped, err := Render(&buf, series, opts)
	if err != nil {
		return nil, skipped, err
	}
	return buf.Bytes(), skipped, nil
}
