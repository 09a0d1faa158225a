// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"io"

	"github.com/aclements/go-gg/table"

	"github.com/hpxcv/mandelbench/benchlog"
	"github.com/hpxcv/mandelbench/benchmath"
	"github.com/hpxcv/mandelbench/benchunit"
)

// Grouping returns c as a go-gg table grouped by backend. Every table
// has the sweep key, the run count, and one formatted "mean ±pct"
// column per recorded metric.
func (c *Collection) Grouping() table.Grouping {
	metrics := c.Metrics()
	scalers := c.scalers(metrics)

	var gb table.GroupingBuilder
	for _, s := range c.Series {
		keys := make([]int, len(s.Points))
		ns := make([]int, len(s.Points))
		cols := make([][]string, len(metrics))
		for i, p := range s.Points {
			keys[i], ns[i] = p.Key, p.N
			for j, m := range metrics {
				sum, _ := p.Summary(m)
				cols[j] = append(cols[j], formatSummary(sum, scalers[j], m))
			}
		}

		var b table.Builder
		b.Add(c.Sweep.String(), keys).Add("n", ns)
		for j, m := range metrics {
			b.Add(m.String(), cols[j])
		}
		gb.Add(table.RootGroupID.Extend(s.Backend), b.Done())
	}
	return gb.Done()
}

// WriteTable prints c as an aligned text table with one group of rows
// per backend.
func (c *Collection) WriteTable(w io.Writer) error {
	return table.Fprint(w, c.Grouping())
}

// scalers returns one common scale per metric across all of c.
func (c *Collection) scalers(metrics []benchlog.Metric) []benchunit.Scaler {
	scalers := make([]benchunit.Scaler, len(metrics))
	for j, m := range metrics {
		var means []float64
		for _, s := range c.Series {
			for _, p := range s.Points {
				if sum, ok := p.Summary(m); ok {
					means = append(means, sum.Mean)
				}
			}
		}
		scalers[j] = benchunit.CommonScale(means)
	}
	return scalers
}

func formatSummary(sum benchmath.Summary, scaler benchunit.Scaler, m benchlog.Metric) string {
	return scaler.FormatUnit(sum.Mean, m.Unit()) + " " + sum.PctRangeString()
}
