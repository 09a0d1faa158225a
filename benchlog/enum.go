// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSweep is returned by ParseSweep for names that do
	// not identify a sweep.
	ErrUnknownSweep = errors.New("unknown sweep")

	// ErrUnknownMetric is returned by ParseMetric for names that do
	// not identify a metric.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnknownFormat is returned by ParseFormat.
	ErrUnknownFormat = errors.New("unknown log format")
)

// A Sweep is the independent variable varied across benchmark runs.
// It selects both the log file to read and the key results are
// grouped by.
type Sweep int

const (
	// Workload varies the image size. The key is the pixel count.
	Workload Sweep = iota
	// Nproc varies the number of processing units.
	Nproc
	// Nstripes varies the number of stripes the image is split into.
	Nstripes
)

var sweepNames = []string{"workload", "nproc", "nstripes"}

// Sweeps lists every Sweep in declaration order.
var Sweeps = []Sweep{Workload, Nproc, Nstripes}

func (s Sweep) String() string {
	if s >= 0 && int(s) < len(sweepNames) {
		return sweepNames[s]
	}
	return fmt.Sprintf("Sweep(%d)", int(s))
}

// ParseSweep returns the Sweep named by name, as it appears in log
// file names ("workload", "nproc" or "nstripes").
func ParseSweep(name string) (Sweep, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range sweepNames {
		if n == name {
			return Sweep(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q (want one of %s)", ErrUnknownSweep, name, strings.Join(sweepNames, ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (s Sweep) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(sweepNames) {
		return nil, fmt.Errorf("%w %d", ErrUnknownSweep, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sweep) UnmarshalText(text []byte) error {
	v, err := ParseSweep(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// A Metric identifies one value of a log entry. The Metric is also
// the index of that value in Result.Values.
type Metric int

const (
	ParallelTime Metric = iota
	SequentialTime
	Speedup
)

var metricNames = []string{"parallel_time", "sequential_time", "speedup"}

// Metrics lists every Metric in the order values appear in a log entry.
var Metrics = []Metric{ParallelTime, SequentialTime, Speedup}

func (m Metric) String() string {
	if m >= 0 && int(m) < len(metricNames) {
		return metricNames[m]
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// Unit returns the unit of the metric's values: "sec" for times and
// "x" for the speedup ratio.
func (m Metric) Unit() string {
	if m == Speedup {
		return "x"
	}
	return "sec"
}

// ParseMetric returns the Metric named by name. Besides the canonical
// names it accepts the short forms "parallel", "sequential" and
// "speed-up".
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "parallel_time", "parallel":
		return ParallelTime, nil
	case "sequential_time", "sequential":
		return SequentialTime, nil
	case "speedup", "speed-up":
		return Speedup, nil
	}
	return 0, fmt.Errorf("%w %q (want one of %s)", ErrUnknownMetric, name, strings.Join(metricNames, ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(metricNames) {
		return nil, fmt.Errorf("%w %d", ErrUnknownMetric, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	v, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// A Format is the layout of entries in a log file.
type Format int

const (
	// FormatAuto detects the layout of every entry separately.
	FormatAuto Format = iota
	// FormatFull entries have four lines: the header, the parallel
	// time, the sequential time and the speedup.
	FormatFull
	// FormatParallel entries have two lines: the header and the
	// parallel time.
	FormatParallel
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatFull:
		return "full"
	case FormatParallel:
		return "parallel"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat returns the Format named by name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "auto", "":
		return FormatAuto, nil
	case "full":
		return FormatFull, nil
	case "parallel":
		return FormatParallel, nil
	}
	return 0, fmt.Errorf("%w %q (want auto, full or parallel)", ErrUnknownFormat, name)
}
