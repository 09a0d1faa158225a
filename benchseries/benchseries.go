// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchseries groups benchmark runs into per-backend series
// over a swept variable and summarizes, charts and tabulates them.
package benchseries

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/hpxcv/mandelbench/benchlog"
	"github.com/hpxcv/mandelbench/benchmath"
)

// ErrMetricUnavailable is returned when a metric is requested from a
// collection whose logs did not record it.
var ErrMetricUnavailable = errors.New("metric not recorded in these logs")

// A Collection is the summarized result of one sweep: one Series per
// backend.
type Collection struct {
	Sweep benchlog.Sweep `json:"sweep"`

	// Width is the number of values recorded per run. It is 1 for
	// parallel-only logs and 3 for full logs.
	Width int `json:"width"`

	Series []*Series `json:"series"`
}

// A Series is the summarized runs of a single backend, ordered by
// ascending sweep key.
type Series struct {
	Backend string  `json:"backend"`
	Points  []Point `json:"points"`
}

// A Point summarizes all runs that share a sweep key.
type Point struct {
	Key int `json:"key"`
	N   int `json:"n"`

	// Summaries holds one summary per recorded metric, indexed by
	// benchlog.Metric.
	Summaries []benchmath.Summary `json:"summaries"`
}

// Metrics returns the metrics recorded in c, in index order.
func (c *Collection) Metrics() []benchlog.Metric {
	var ms []benchlog.Metric
	for _, m := range benchlog.Metrics {
		if c.HasMetric(m) {
			ms = append(ms, m)
		}
	}
	return ms
}

// HasMetric reports whether every run in c recorded metric m.
func (c *Collection) HasMetric(m benchlog.Metric) bool {
	return m >= 0 && int(m) < c.Width
}

// Summary returns the summary of metric m at point p.
func (p *Point) Summary(m benchlog.Metric) (benchmath.Summary, bool) {
	if m < 0 || int(m) >= len(p.Summaries) {
		return benchmath.Summary{}, false
	}
	return p.Summaries[m], true
}

// A RecordScanner iterates over log records. *benchlog.Reader and
// *benchlog.Files are RecordScanners.
type RecordScanner interface {
	Scan() bool
	Result() benchlog.Record
	Err() error
}

// BuilderOptions configure a Builder.
type BuilderOptions struct {
	// Sweep selects the variable runs are keyed by.
	Sweep benchlog.Sweep

	// Warn is called for every malformed log entry. If nil,
	// warnings are printed to stderr.
	Warn func(format string, args ...interface{})
}

// DefaultBuilderOptions returns options for a workload sweep that
// print warnings to stderr.
func DefaultBuilderOptions() *BuilderOptions {
	return &BuilderOptions{
		Sweep: benchlog.Workload,
		Warn: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format, args...)
		},
	}
}

// A Builder collects benchmark results into per-backend groups keyed
// by the swept variable, and summarizes them into a Collection.
type Builder struct {
	sweep benchlog.Sweep

	// width is the number of values of the first result added,
	// or 0 before any result was added.
	width int

	// backends in the order they were first seen.
	backends []string
	runs     map[string]map[int][][]float64

	warn func(format string, args ...interface{})
}

// NewBuilder creates a new Builder for collecting benchmark results.
func NewBuilder(bo *BuilderOptions) (*Builder, error) {
	if _, err := bo.Sweep.MarshalText(); err != nil {
		return nil, err
	}
	warn := bo.Warn
	if warn == nil {
		warn = DefaultBuilderOptions().Warn
	}
	return &Builder{
		sweep: bo.Sweep,
		runs:  make(map[string]map[int][][]float64),
		warn:  warn,
	}, nil
}

// AddFiles adds every result read from files. Syntax errors are
// reported through the Warn option and skipped.
func (b *Builder) AddFiles(files RecordScanner) error {
	for files.Scan() {
		if err := b.AddRecord(files.Result()); err != nil {
			return err
		}
	}
	return files.Err()
}

// AddRecord adds rec if it is a *benchlog.Result. A
// *benchlog.SyntaxError is passed to the Warn option instead.
func (b *Builder) AddRecord(rec benchlog.Record) error {
	switch rec := rec.(type) {
	case *benchlog.Result:
		return b.Add(rec)
	case *benchlog.SyntaxError:
		// Non-fatal result parse error. Warn
		// but keep going.
		b.warn("%v\n", rec)
		return nil
	}
	return fmt.Errorf("unknown record type %T", rec)
}

// Add adds the values of result under its backend and sweep key.
// All results added to a Builder must record the same number of
// values.
func (b *Builder) Add(result *benchlog.Result) error {
	file, line := result.Pos()
	where := fmt.Sprintf("%s:%d", file, line)
	if file == "" {
		where = "result"
	}
	if result.Backend == "" {
		return fmt.Errorf("%s: result has no backend", where)
	}
	n := len(result.Values)
	if n == 0 {
		return fmt.Errorf("%s: result has no values", where)
	}
	if b.width == 0 {
		b.width = n
	} else if n != b.width {
		return fmt.Errorf("%s: result has %d values, earlier results have %d", where, n, b.width)
	}
	key, err := result.Key(b.sweep)
	if err != nil {
		return err
	}

	byKey := b.runs[result.Backend]
	if byKey == nil {
		byKey = make(map[int][][]float64)
		b.runs[result.Backend] = byKey
		b.backends = append(b.backends, result.Backend)
	}
	byKey[key] = append(byKey[key], append([]float64(nil), result.Values...))
	return nil
}

// Collection summarizes everything added so far. Points are sorted by
// ascending sweep key and every point summarizes each value column
// separately.
func (b *Builder) Collection() *Collection {
	c := &Collection{Sweep: b.sweep, Width: b.width}
	for _, backend := range b.backends {
		byKey := b.runs[backend]
		keys := make([]int, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Ints(keys)

		s := &Series{Backend: backend}
		for _, k := range keys {
			s.Points = append(s.Points, summarize(k, byKey[k], b.width))
		}
		c.Series = append(c.Series, s)
	}
	return c
}

func summarize(key int, runs [][]float64, width int) Point {
	p := Point{Key: key, N: len(runs)}
	column := make([]float64, len(runs))
	for m := 0; m < width; m++ {
		for i, run := range runs {
			column[i] = run[m]
		}
		p.Summaries = append(p.Summaries, benchmath.NewSample(column).Summary())
	}
	return p
}
