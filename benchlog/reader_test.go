// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
)

func parseAll(t *testing.T, data string, f Format) []Record {
	t.Helper()
	r := NewReader(strings.NewReader(data), "test", f)
	var out []Record
	for r.Scan() {
		switch rec := r.Result(); rec := rec.(type) {
		case *Result:
			res := rec.Clone()
			// Wipe position information for comparisons.
			res.fileName = ""
			res.line = 0
			out = append(out, res)
		case *SyntaxError:
			out = append(out, rec)
		default:
			t.Fatalf("unexpected result type %T", rec)
		}
	}
	if err := r.Err(); err != nil {
		t.Fatal("parsing failed: ", err)
	}
	return out
}

func printRecord(w io.Writer, r Record) {
	switch r := r.(type) {
	case *Result:
		fmt.Fprintf(w, "%s %dx%d pus=%d stripes=%d %v\n", r.Backend, r.Height, r.Width, r.NumPUs, r.NStripes, r.Values)
	case *SyntaxError:
		fmt.Fprintf(w, "SyntaxError: %s\n", r)
	default:
		panic(fmt.Sprintf("unknown record type %T", r))
	}
}

func res(backend string, h, w, pus, stripes int, values ...float64) *Result {
	if values == nil {
		values = []float64{}
	}
	return &Result{Backend: backend, Height: h, Width: w, NumPUs: pus, NStripes: stripes, Values: values}
}

func synErr(line int, msg string) *SyntaxError {
	return &SyntaxError{"test", line, msg}
}

func compareRecords(t *testing.T, got, want []Record) {
	t.Helper()
	var diff bytes.Buffer
	for i := 0; i < len(got) || i < len(want); i++ {
		if i >= len(got) {
			fmt.Fprintf(&diff, "[%d] got: none, want:\n", i)
			printRecord(&diff, want[i])
		} else if i >= len(want) {
			fmt.Fprintf(&diff, "[%d] want: none, got:\n", i)
			printRecord(&diff, got[i])
		} else if !reflect.DeepEqual(got[i], want[i]) {
			fmt.Fprintf(&diff, "[%d] got:\n", i)
			printRecord(&diff, got[i])
			fmt.Fprintf(&diff, "[%d] want:\n", i)
			printRecord(&diff, want[i])
		}
	}
	if diff.Len() != 0 {
		t.Error(diff.String())
	}
}

func TestReader(t *testing.T) {
	type testCase struct {
		name   string
		format Format
		input  string
		want   []Record
	}
	for _, test := range []testCase{
		{
			"full",
			FormatFull,
			`imsize: h=10 w=20 backend=hpx num_pus=2
Parallel Mandelbrot: 0.5 s
Sequential Mandelbrot: 1 s
Speed-up: 2 X
imsize: h=20 w=20 backend=hpx num_pus=2
Parallel Mandelbrot: 1.5 s
Sequential Mandelbrot: 3 s
Speed-up: 2 X
`,
			[]Record{
				res("hpx", 10, 20, 2, 0, 0.5, 1, 2),
				res("hpx", 20, 20, 2, 0, 1.5, 3, 2),
			},
		},
		{
			"parallel",
			FormatParallel,
			`imsize: h=10 w=10 backend=tbb num_pus=4 nstripes=8
Parallel Mandelbrot: 0.25 s
imsize: h=10 w=10 backend=tbb num_pus=4 nstripes=16
Parallel Mandelbrot: 0.125 s
`,
			[]Record{
				res("tbb", 10, 10, 4, 8, 0.25),
				res("tbb", 10, 10, 4, 16, 0.125),
			},
		},
		{
			"auto",
			FormatAuto,
			`imsize: h=1 w=2 backend=a num_pus=1
Parallel Mandelbrot: 3 s
Sequential Mandelbrot: 3 s
Speed-up: 1 X
imsize: h=1 w=2 backend=a num_pus=2
Parallel Mandelbrot: 1.5 s
imsize: h=1 w=2 backend=a num_pus=4
Parallel Mandelbrot: 0.75 s`,
			[]Record{
				res("a", 1, 2, 1, 0, 3, 3, 1),
				res("a", 1, 2, 2, 0, 1.5),
				res("a", 1, 2, 4, 0, 0.75),
			},
		},
		{
			"noise and blank lines",
			FormatFull,
			`[hpx_main] starting ...
HPX using threads = 2

imsize: h=4 w=4 backend= num_pus=2 extra=yes

Parallel Mandelbrot: 1e-3 s
Sequential Mandelbrot:    2e-3 s

Speed-up: 2 X
done
`,
			[]Record{
				res("", 4, 4, 2, 0, 0.001, 0.002, 2),
			},
		},
		{
			"truncated",
			FormatFull,
			`imsize: h=1 w=1
Parallel Mandelbrot: 1 s
Sequential Mandelbrot: 1 s
`,
			[]Record{
				synErr(1, "truncated entry: missing speed-up"),
			},
		},
		{
			"resync at next header",
			FormatFull,
			`imsize: h=1 w=1
imsize: h=2 w=2
Parallel Mandelbrot: 1 s
Sequential Mandelbrot: 2 s
Speed-up: 2 X
`,
			[]Record{
				synErr(2, `expected parallel time, found "imsize: h=2 w=2"`),
				res("", 2, 2, 0, 0, 1, 2, 2),
			},
		},
		{
			"bad value",
			FormatParallel,
			`imsize: h=1 w=1
Parallel Mandelbrot: fast s
imsize: h=1 w=1
Parallel Mandelbrot:
`,
			[]Record{
				synErr(2, "parsing parallel time: invalid syntax"),
				synErr(4, "missing parallel time"),
			},
		},
		{
			"bad header",
			FormatParallel,
			`imsize: h=1
Parallel Mandelbrot: 1 s
imsize: h=x w=1
Parallel Mandelbrot: 1 s
imsize: h=1 w=1 junk
Parallel Mandelbrot: 1 s
`,
			[]Record{
				synErr(1, "header must have h= and w="),
				synErr(3, `parsing h: "x" is not an integer`),
				synErr(5, `header token "junk" is not key=value`),
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := parseAll(t, test.input, test.format)
			compareRecords(t, got, test.want)
		})
	}
}

func TestReaderPositions(t *testing.T) {
	input := "noise\nimsize: h=1 w=1\nParallel Mandelbrot: 1 s\n\nimsize: h=1 w=2\nParallel Mandelbrot: 1 s\n"
	r := NewReader(strings.NewReader(input), "pos.log", FormatParallel)
	var lines []int
	for r.Scan() {
		file, line := r.Result().Pos()
		if file != "pos.log" {
			t.Errorf("want file name pos.log, got %q", file)
		}
		lines = append(lines, line)
	}
	if want := []int{2, 5}; !reflect.DeepEqual(lines, want) {
		t.Errorf("want header lines %v, got %v", want, lines)
	}
}

func TestReaderBeforeScan(t *testing.T) {
	r := NewReader(strings.NewReader(""), "empty", FormatAuto)
	if _, ok := r.Result().(*SyntaxError); !ok {
		t.Errorf("want *SyntaxError before Scan, got %T", r.Result())
	}
	if r.Scan() {
		t.Errorf("Scan on empty input returned true")
	}
	if err := r.Err(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReaderIOError(t *testing.T) {
	r := NewReader(errReader{}, "broken.log", FormatAuto)
	if r.Scan() {
		t.Fatal("Scan returned true")
	}
	if err := r.Err(); err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("want I/O error, got %v", err)
	}
}

func TestResultKey(t *testing.T) {
	r := res("hpx", 100, 200, 4, 0, 1)
	if k, err := r.Key(Workload); err != nil || k != 20000 {
		t.Errorf("Key(Workload) = %d, %v; want 20000", k, err)
	}
	if k, err := r.Key(Nproc); err != nil || k != 4 {
		t.Errorf("Key(Nproc) = %d, %v; want 4", k, err)
	}
	if _, err := r.Key(Nstripes); err == nil {
		t.Errorf("Key(Nstripes) without nstripes succeeded")
	}
	if _, ok := r.Value(Speedup); ok {
		t.Errorf("Value(Speedup) on parallel-only result succeeded")
	}
	if v, ok := r.Value(ParallelTime); !ok || v != 1 {
		t.Errorf("Value(ParallelTime) = %v, %v; want 1, true", v, ok)
	}
}
