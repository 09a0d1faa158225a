// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"errors"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/hpxcv/mandelbench/benchlog"
)

// Default chart size, in inches.
const (
	DefaultWidth  = 6.4
	DefaultHeight = 4.8
)

// DPI is the resolution of PNG charts.
const DPI = 150

// ChartFileName returns the base name of the chart of metric m over
// sweep s, for example "speedup_over_workload.png".
func ChartFileName(s benchlog.Sweep, m benchlog.Metric, ext string) string {
	return m.String() + "_over_" + s.String() + "." + ext
}

// WritePNG renders pl as a PNG image of the given size to w.
func WritePNG(w io.Writer, pl *plot.Plot, width, height vg.Length) error {
	can := vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(width, height),
		vgimg.UseDPI(DPI), vgimg.UseBackgroundColor(color.White))}
	pl.Draw(draw.New(can))
	_, err := can.WriteTo(w)
	return err
}

// A PDFBook is a PDF document with one chart per page.
type PDFBook struct {
	can   *vgpdf.Canvas
	pages int
}

// NewPDFBook returns an empty PDFBook whose pages have the given size.
func NewPDFBook(width, height vg.Length) *PDFBook {
	return &PDFBook{can: vgpdf.New(width, height)}
}

// Add draws pl on a new page.
func (b *PDFBook) Add(pl *plot.Plot) {
	if b.pages > 0 {
		b.can.NextPage()
	}
	pl.Draw(draw.New(b.can))
	b.pages++
}

// Pages returns the number of pages in b.
func (b *PDFBook) Pages() int {
	return b.pages
}

// WriteTo writes the PDF document to w.
func (b *PDFBook) WriteTo(w io.Writer) (int64, error) {
	if b.pages == 0 {
		return 0, errors.New("PDF has no pages")
	}
	return b.can.WriteTo(w)
}
