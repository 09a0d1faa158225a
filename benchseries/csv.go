// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hpxcv/mandelbench/benchlog"
	"github.com/hpxcv/mandelbench/benchmath"
	"github.com/hpxcv/mandelbench/benchunit"
)

type CsvOptions int

const (
	CSV_PLAIN  CsvOptions = 0
	CSV_STDDEV CsvOptions = 1 // standard deviation column per metric
	CSV_DELTA  CsvOptions = 2 // deviation relative to the mean, in percent
	CSV_MINMAX CsvOptions = 4 // extreme values per metric
)

// ToCSV writes one row per (backend, sweep key) with the mean of every
// recorded metric, followed by the columns selected by options.
func (c *Collection) ToCSV(out io.Writer, options CsvOptions) error {
	metrics := c.Metrics()
	tab := [][]string{c.csvHeader(metrics, options)}
	for _, s := range c.Series {
		for _, p := range s.Points {
			row := []string{s.Backend, strconv.Itoa(p.Key), strconv.Itoa(p.N)}
			for _, m := range metrics {
				sum, _ := p.Summary(m)
				row = append(row, csvEntries(sum, options)...)
			}
			tab = append(tab, row)
		}
	}
	csvw := csv.NewWriter(out)
	csvw.WriteAll(tab)
	csvw.Flush()
	return csvw.Error()
}

func (c *Collection) csvHeader(metrics []benchlog.Metric, options CsvOptions) []string {
	hdr := []string{"backend", c.Sweep.String(), "n"}
	for _, m := range metrics {
		name := m.String()
		hdr = append(hdr, name)
		if options&CSV_STDDEV != 0 {
			hdr = append(hdr, name+"_std")
		}
		if options&CSV_DELTA != 0 {
			hdr = append(hdr, name+"_±")
		}
		if options&CSV_MINMAX != 0 {
			hdr = append(hdr, name+"_min", name+"_max")
		}
	}
	return hdr
}

func csvEntries(sum benchmath.Summary, options CsvOptions) []string {
	entries := []string{strof(sum.Mean)}
	if options&CSV_STDDEV != 0 {
		entries = append(entries, strof(sum.StdDev))
	}
	if options&CSV_DELTA != 0 {
		entries = append(entries, pctof(sum))
	}
	if options&CSV_MINMAX != 0 {
		entries = append(entries, strof(sum.Min), strof(sum.Max))
	}
	return entries
}

func strof(x float64) string {
	return benchunit.NoOpScaler.Format(x)
}

func pctof(sum benchmath.Summary) string {
	if sum.Mean == 0 {
		return ""
	}
	return fmt.Sprintf("%f%%", 100*sum.StdDev/sum.Mean)
}
