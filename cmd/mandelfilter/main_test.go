// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/hpxcv/mandelbench/internal/diff"
)

func TestFilter(t *testing.T) {
	for _, test := range []struct {
		name   string
		args   []string
		stdout string
		stderr string
	}{
		{
			name: "backends",
			args: []string{"-backends", "hpx", "mixed.log"},
			stdout: `imsize: h=10 w=10 backend=hpx num_pus=2
Parallel Mandelbrot: 2 s
Sequential Mandelbrot: 8 s
Speed-up: 4 X
imsize: h=10 w=10 backend=hpx
Parallel Mandelbrot: 1.5 s
imsize: h=20 w=20 backend=hpx num_pus=16
Parallel Mandelbrot: 0.25 s
Sequential Mandelbrot: 4 s
Speed-up: 16 X
`,
			stderr: "mixed.log:12: parsing parallel time: invalid syntax\n",
		},
		{
			name: "range",
			args: []string{"-sweep", "nproc", "-min", "4", "-parallel", "mixed.log"},
			stdout: `imsize: h=10 w=10 backend=tbb num_pus=4
Parallel Mandelbrot: 0.5 s
imsize: h=20 w=20 backend=hpx num_pus=16
Parallel Mandelbrot: 0.25 s
`,
			stderr: `mixed.log:9: header has no num_pus
mixed.log:12: parsing parallel time: invalid syntax
`,
		},
		{
			name: "workload",
			args: []string{"-backends", "hpx,tbb", "-max", "100", "-format", "parallel", "mixed.log"},
			stdout: `imsize: h=10 w=10 backend=hpx num_pus=2
Parallel Mandelbrot: 2 s
imsize: h=10 w=10 backend=tbb num_pus=4
Parallel Mandelbrot: 0.5 s
imsize: h=10 w=10 backend=hpx
Parallel Mandelbrot: 1.5 s
`,
			stderr: "mixed.log:12: parsing parallel time: invalid syntax\n",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(t, nil, &stdout, &stderr, test.args...); err != nil {
				t.Fatal(err)
			}
			if d := diff.Diff(test.stdout, stdout.String()); d != "" {
				t.Errorf("stdout differs:\n%s", d)
			}
			if d := diff.Diff(test.stderr, stderr.String()); d != "" {
				t.Errorf("stderr differs:\n%s", d)
			}
		})
	}
}

func TestStdin(t *testing.T) {
	const in = `some unrelated output
imsize: h=1 w=2 backend=omp
Parallel Mandelbrot: 3 s
`
	var stdout bytes.Buffer
	if err := run(t, strings.NewReader(in), &stdout, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if want := "imsize: h=1 w=2 backend=omp\nParallel Mandelbrot: 3 s\n"; stdout.String() != want {
		t.Errorf("got %q, want %q", stdout.String(), want)
	}
}

func TestErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-sweep", "size"},
		{"-format", "csv"},
		{"-nosuchflag"},
		{"missing.log"},
	} {
		if err := run(t, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}, args...); err == nil {
			t.Errorf("mandelfilter %s succeeded", strings.Join(args, " "))
		}
	}
}

func run(t *testing.T, stdin *strings.Reader, stdout, stderr *bytes.Buffer, args ...string) error {
	t.Helper()
	if err := os.Chdir("testdata"); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir("..")
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	return mandelfilter(stdin, stdout, stderr, args)
}
