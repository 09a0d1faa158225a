// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchmath provides tools for computing statistics over
// repeated benchmark measurements.
//
// Summaries report the mean and the population standard deviation of
// a sample, which is what error bars on the benchmark charts show.
//
// Summaries carry a list of warnings, captured as an []error value.
// These aren't errors that prevent analysis, but should be presented
// to the user along with the results.
package benchmath

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aclements/go-moremath/mathx"
	"github.com/aclements/go-moremath/stats"
)

// ErrSingleSample is reported when a summary is computed from a
// single measurement. Its deviation is reported as 0.
var ErrSingleSample = errors.New("only one run; deviation is zero")

// A Sample is a set of repeated measurements of one quantity.
type Sample struct {
	// Values are the measured values, in ascending order.
	Values []float64

	// Warnings is a list of warnings about this sample that
	// should be reported to the user.
	Warnings []error
}

// NewSample constructs a Sample from a set of measurements.
// The values are copied, so the caller may reuse the slice.
func NewSample(values []float64) *Sample {
	vs := append([]float64(nil), values...)
	// Sort values for fast order statistics.
	sort.Float64s(vs)
	var warnings []error
	for _, v := range vs {
		if math.IsNaN(v) {
			warnings = append(warnings, errors.New("sample contains NaN"))
			break
		}
	}
	return &Sample{vs, warnings}
}

func (s *Sample) sample() stats.Sample {
	return stats.Sample{Xs: s.Values, Sorted: true}
}

// Mean returns the arithmetic mean of s, or NaN if s is empty.
func (s *Sample) Mean() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.sample().Mean()
}

// StdDev returns the population standard deviation of s, that is
// the root mean squared distance from the mean. It is 0 for a single
// value and NaN for an empty sample.
func (s *Sample) StdDev() float64 {
	n := len(s.Values)
	switch n {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	// stats.Sample.Variance is the unbiased estimator, which divides
	// by n-1.
	v := s.sample().Variance() * float64(n-1) / float64(n)
	return math.Sqrt(v)
}

// Summary summarizes s.
func (s *Sample) Summary() Summary {
	sum := Summary{
		N:        len(s.Values),
		Mean:     s.Mean(),
		StdDev:   s.StdDev(),
		Warnings: append([]error(nil), s.Warnings...),
	}
	if sum.N == 0 {
		sum.Min, sum.Max = math.NaN(), math.NaN()
		return sum
	}
	sum.Min, sum.Max = s.sample().Bounds()
	if sum.N == 1 {
		sum.Warnings = append(sum.Warnings, ErrSingleSample)
	}
	return sum
}

// A Summary summarizes a Sample.
type Summary struct {
	// N is the number of measurements.
	N int `json:"n"`

	// Mean is the arithmetic mean of the measurements.
	Mean float64 `json:"mean"`

	// StdDev is the population standard deviation of the
	// measurements.
	StdDev float64 `json:"stddev"`

	// Min and Max are the extreme measurements.
	Min float64 `json:"min"`
	Max float64 `json:"max"`

	// Warnings is a list of warnings about this summary.
	Warnings []error `json:"-"`
}

// Lo returns the lower end of the error bar, Mean - StdDev.
func (s Summary) Lo() float64 { return s.Mean - s.StdDev }

// Hi returns the upper end of the error bar, Mean + StdDev.
func (s Summary) Hi() float64 { return s.Mean + s.StdDev }

// PctRangeString returns the standard deviation of this Summary
// relative to its mean, as a percentage such as "±3%".
func (s Summary) PctRangeString() string {
	if math.IsNaN(s.Mean) || math.IsNaN(s.StdDev) ||
		math.IsInf(s.Mean, 0) || math.IsInf(s.StdDev, 0) {
		return "∞"
	}

	// If the signs of the bounds differ from the mean, the
	// deviation swamps the value and a percent is meaningless.
	var csign = mathx.Sign(s.Mean)
	if csign != mathx.Sign(s.Lo()) || csign != mathx.Sign(s.Hi()) {
		return "?"
	}

	// We can only get here with a zero mean if the deviation is
	// also 0, in which case it seems reasonable to call this 0%.
	if s.Mean == 0 {
		return "±0%"
	}

	return fmt.Sprintf("±%.0f%%", 100*s.StdDev/math.Abs(s.Mean))
}
