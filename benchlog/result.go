// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchlog reads and writes the logs of the Mandelbrot
// benchmark harness.
//
// Every run of the benchmark appends one entry to a log file. An
// entry starts with a header line describing the run, followed by
// one line per measured value:
//
//	imsize: h=1000 w=2000 backend=hpx num_pus=4 nstripes=16
//	Parallel Mandelbrot: 0.0918 s
//	Sequential Mandelbrot: 0.341 s
//	Speed-up: 3.71 X
//
// The sequential time and speed-up lines are only present in the
// full format. Log files are named after the backend and the
// variable swept by the harness, for example
// "tbb-mandelbrot_over_workload.log".
package benchlog

import (
	"fmt"
)

// A Record is a single record read from a log file. It may be a
// *Result or a *SyntaxError.
type Record interface {
	// Pos returns the position of this record as a file name and
	// a 1-based line number within that file. If this record was
	// not read from a file, it returns "", 0.
	Pos() (fileName string, line int)
}

var _ Record = (*Result)(nil)
var _ Record = (*SyntaxError)(nil)

// A Result is a single benchmark run: one log entry.
type Result struct {
	// Backend is the parallel backend that produced this result.
	// When read through Files, this is the backend named by the
	// log file rather than the header's backend token.
	Backend string

	// Height and Width are the dimensions of the computed image.
	Height, Width int

	// NumPUs is the number of processing units, or 0 if the header
	// did not record it.
	NumPUs int

	// NStripes is the number of stripes the image was split into,
	// or 0 if the header did not record it.
	NStripes int

	// Values holds the measured values indexed by Metric. It has
	// one element for the parallel format and three for the full
	// format.
	Values []float64

	fileName string
	line     int
}

// Pos returns the file name and line number of the header line of
// this entry.
func (r *Result) Pos() (fileName string, line int) {
	return r.fileName, r.line
}

// Clone makes a copy of Result that shares no state with r.
func (r *Result) Clone() *Result {
	r2 := *r
	r2.Values = append([]float64(nil), r.Values...)
	return &r2
}

// Pixels returns the number of pixels of the computed image.
func (r *Result) Pixels() int {
	return r.Height * r.Width
}

// Key returns the value of the swept variable for this result.
func (r *Result) Key(s Sweep) (int, error) {
	switch s {
	case Workload:
		return r.Pixels(), nil
	case Nproc:
		if r.NumPUs == 0 {
			return 0, fmt.Errorf("%s: header has no num_pus", r.position())
		}
		return r.NumPUs, nil
	case Nstripes:
		if r.NStripes == 0 {
			return 0, fmt.Errorf("%s: header has no nstripes", r.position())
		}
		return r.NStripes, nil
	}
	return 0, fmt.Errorf("%w %d", ErrUnknownSweep, int(s))
}

// Value returns the value of metric m, and whether this result
// recorded it.
func (r *Result) Value(m Metric) (float64, bool) {
	if m < 0 || int(m) >= len(r.Values) {
		return 0, false
	}
	return r.Values[m], true
}

func (r *Result) position() string {
	if r.fileName == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", r.fileName, r.line)
}

// A SyntaxError represents a malformed entry in a log file.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Pos() (fileName string, line int) {
	return e.FileName, e.Line
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}
