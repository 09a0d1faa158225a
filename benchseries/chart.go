// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/hpxcv/mandelbench/benchlog"
	"github.com/hpxcv/mandelbench/benchunit"
)

// ChartOptions control the labels and scale of a chart.
type ChartOptions struct {
	Title  string
	XLabel string
	YLabel string

	// LogX selects a logarithmic sweep axis.
	LogX bool
}

// DefaultChartOptions returns the labels for a chart of metric m over
// sweep s.
func DefaultChartOptions(s benchlog.Sweep, m benchlog.Metric) ChartOptions {
	var what, over, xlabel, ylabel string
	switch m {
	case benchlog.ParallelTime:
		what, ylabel = "Parallel processing time", "Processing time [s]"
	case benchlog.SequentialTime:
		what, ylabel = "Sequential processing time", "Processing time [s]"
	case benchlog.Speedup:
		what, ylabel = "Speed-up", "Speed-up"
	default:
		what, ylabel = m.String(), m.String()
	}
	switch s {
	case benchlog.Workload:
		over, xlabel = "image size", "Number of pixels"
	case benchlog.Nproc:
		over, xlabel = "number of processing units", "Number of processing units"
	case benchlog.Nstripes:
		over, xlabel = "number of stripes", "Number of stripes"
	default:
		over, xlabel = s.String(), s.String()
	}
	return ChartOptions{
		Title:  what + " as function of " + over,
		XLabel: xlabel,
		YLabel: ylabel,
	}
}

// errPoints holds the means and deviations of one series.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

const (
	pointRad = 3
	capWidth = 6
)

// Chart plots metric m of every series in c as a line with markers
// and error bars of one standard deviation around the mean.
func (c *Collection) Chart(m benchlog.Metric, opts ChartOptions) (*plot.Plot, error) {
	if !c.HasMetric(m) {
		return nil, fmt.Errorf("%s: %w", m, ErrMetricUnavailable)
	}

	pl := plot.New()
	pl.Title.Text = opts.Title
	pl.X.Label.Text = opts.XLabel
	pl.Y.Label.Text = opts.YLabel
	pl.BackgroundColor = color.White

	grid := plotter.NewGrid()
	pl.Add(grid)

	var keys []float64
	for i, s := range c.Series {
		pts := errPoints{
			XYs:     make(plotter.XYs, len(s.Points)),
			YErrors: make(plotter.YErrors, len(s.Points)),
		}
		for j, p := range s.Points {
			sum, ok := p.Summary(m)
			if !ok {
				return nil, fmt.Errorf("%s at %s=%d: %w", s.Backend, c.Sweep, p.Key, ErrMetricUnavailable)
			}
			if opts.LogX && p.Key <= 0 {
				return nil, fmt.Errorf("%s at %s=%d: non-positive key on a log axis", s.Backend, c.Sweep, p.Key)
			}
			pts.XYs[j].X = float64(p.Key)
			pts.XYs[j].Y = sum.Mean
			pts.YErrors[j].Low = sum.StdDev
			pts.YErrors[j].High = sum.StdDev
			keys = append(keys, float64(p.Key))
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Backend, err)
		}
		bars, err := plotter.NewYErrorBars(pts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Backend, err)
		}
		clr := plotutil.Color(i)
		line.Color = clr
		points.Color = clr
		points.Shape = plotutil.Shape(i)
		points.Radius = vg.Points(pointRad)
		bars.Color = clr
		bars.CapWidth = vg.Points(capWidth)

		pl.Add(line, points, bars)
		pl.Legend.Add(s.Backend, line, points)
	}

	if opts.LogX {
		pl.X.Scale = plot.LogScale{}
	}
	pl.X.Tick.Marker = plot.ConstantTicks(keyTicks(keys))
	pl.Legend.Top = true
	pl.Legend.Left = true
	pl.Legend.Padding = 1 * vg.Millimeter

	return pl, nil
}

// maxTickLabels bounds the number of labeled ticks on the sweep axis.
const maxTickLabels = 10

// keyTicks returns a tick at every distinct sweep key. Small keys are
// labeled exactly, large ones with an SI prefix. When there are many
// keys only every few ticks are labeled.
func keyTicks(keys []float64) []plot.Tick {
	sort.Float64s(keys)
	uniq := keys[:0]
	for i, k := range keys {
		if i == 0 || k != keys[i-1] {
			uniq = append(uniq, k)
		}
	}

	exact := benchunit.IntegerScale(uniq).Factor == 1
	stride := (len(uniq) + maxTickLabels - 1) / maxTickLabels
	ticks := make([]plot.Tick, len(uniq))
	for i, k := range uniq {
		ticks[i].Value = k
		if i%stride != 0 {
			continue
		}
		if exact {
			ticks[i].Label = strconv.FormatFloat(k, 'f', -1, 64)
		} else {
			ticks[i].Label = benchunit.Scale(k)
		}
	}
	return ticks
}
