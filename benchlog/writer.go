// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// A Writer writes benchmark log entries.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewWriter returns a writer that writes log entries to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes Record rec to w. A *Result is written in the full
// format if it has all three values and in the parallel format if it
// has only the parallel time. Syntax errors are ignored.
func (w *Writer) Write(rec Record) error {
	switch rec := rec.(type) {
	case *Result:
		if err := w.writeResult(rec); err != nil {
			return err
		}
	case *SyntaxError:
		// Ignore
		return nil
	default:
		return fmt.Errorf("unknown Record type %T", rec)
	}

	// Flush the buffer out to the io.Writer. Write to the buffer
	// can't fail, so we only have to check if this fails.
	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

func (w *Writer) writeResult(res *Result) error {
	if n := len(res.Values); n != 1 && n != len(Metrics) {
		w.buf.Reset()
		return fmt.Errorf("result has %d values, want 1 or %d", n, len(Metrics))
	}

	fmt.Fprintf(&w.buf, "imsize: h=%d w=%d backend=%s", res.Height, res.Width, res.Backend)
	if res.NumPUs != 0 {
		fmt.Fprintf(&w.buf, " num_pus=%d", res.NumPUs)
	}
	if res.NStripes != 0 {
		fmt.Fprintf(&w.buf, " nstripes=%d", res.NStripes)
	}
	w.buf.WriteByte('\n')

	fmt.Fprintf(&w.buf, "Parallel Mandelbrot: %s s\n", strof(res.Values[ParallelTime]))
	if len(res.Values) > 1 {
		fmt.Fprintf(&w.buf, "Sequential Mandelbrot: %s s\n", strof(res.Values[SequentialTime]))
		fmt.Fprintf(&w.buf, "Speed-up: %s X\n", strof(res.Values[Speedup]))
	}
	return nil
}

func strof(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
