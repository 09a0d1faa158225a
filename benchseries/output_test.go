// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"gonum.org/v1/plot/vg"

	"github.com/hpxcv/mandelbench/benchlog"
	"github.com/hpxcv/mandelbench/benchmath"
	"github.com/hpxcv/mandelbench/internal/diff"
)

func TestToCSV(t *testing.T) {
	c := buildCollection(t, benchlog.Workload, fullLog)
	var buf bytes.Buffer
	if err := c.ToCSV(&buf, CSV_STDDEV); err != nil {
		t.Fatal(err)
	}
	want := `backend,workload,n,parallel_time,parallel_time_std,sequential_time,sequential_time_std,speedup,speedup_std
hpx,20,1,1,0,2,0,2,0
hpx,100,2,3,1,8,0,3,1
tbb,100,1,0.5,0,1,0,2,0
`
	if d := diff.Diff(want, buf.String()); d != "" {
		t.Errorf("CSV differs:\n%s", d)
	}
}

func TestToCSVMinMax(t *testing.T) {
	c := buildCollection(t, benchlog.Workload, fullLog)
	var buf bytes.Buffer
	if err := c.ToCSV(&buf, CSV_MINMAX); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	if want := "hpx,100,2,3,2,4,8,8,8,3,2,4"; lines[2] != want {
		t.Errorf("want %s, got %s", want, lines[2])
	}
}

func TestWriteTable(t *testing.T) {
	c := buildCollection(t, benchlog.Workload, fullLog)
	var buf bytes.Buffer
	if err := c.WriteTable(&buf); err != nil {
		t.Fatal(err)
	}
	want := `workload  n  parallel_time   sequential_time  speedup
-- /hpx
      20  1  1000.0ms ±0%    2.000s ±0%       2.000x ±0%
     100  2  3000.0ms ±33%   8.000s ±0%       3.000x ±33%
-- /tbb
     100  1  500.0ms ±0%     1.000s ±0%       2.000x ±0%
`
	if d := diff.Diff(want, buf.String()); d != "" {
		t.Errorf("table differs:\n%s", d)
	}
}

func TestWriteHTML(t *testing.T) {
	c := buildCollection(t, benchlog.Workload, fullLog)
	var buf bytes.Buffer
	images := []string{"parallel_time_over_workload.png", "speedup_over_workload.png"}
	if err := c.WriteHTML(&buf, images); err != nil {
		t.Fatal(err)
	}

	doc, err := html.Parse(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var srcs []string
	var rows, backends []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img":
				for _, a := range n.Attr {
					if a.Key == "src" {
						srcs = append(srcs, a.Val)
					}
				}
			case "tr":
				rows = append(rows, n.Data)
			case "td":
				for _, a := range n.Attr {
					if a.Key == "class" && a.Val == "backend" && n.FirstChild != nil {
						backends = append(backends, strings.TrimSpace(n.FirstChild.Data))
					}
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	if strings.Join(srcs, " ") != strings.Join(images, " ") {
		t.Errorf("want images %v, got %v", images, srcs)
	}
	if len(rows) != 4 {
		t.Errorf("want 4 table rows, got %d", len(rows))
	}
	if strings.Join(backends, " ") != "hpx tbb" {
		t.Errorf("want backend cells hpx tbb, got %v", backends)
	}
}

func TestJSON(t *testing.T) {
	c := buildCollection(t, benchlog.Workload, fullLog)
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var c2 Collection
	if err := json.Unmarshal(b, &c2); err != nil {
		t.Fatal(err)
	}
	if c2.Sweep != benchlog.Workload || c2.Width != 3 || len(c2.Series) != 2 {
		t.Fatalf("round trip lost data: %+v", c2)
	}
	if got := c2.Series[0].Points[1].Summaries[benchlog.Speedup].StdDev; got != 1 {
		t.Errorf("want speedup deviation 1, got %v", got)
	}
	if !strings.Contains(string(b), `"sweep":"workload"`) {
		t.Errorf("sweep not encoded by name: %s", b)
	}
}

func TestChart(t *testing.T) {
	c := buildCollection(t, benchlog.Workload, fullLog)
	opts := DefaultChartOptions(c.Sweep, benchlog.ParallelTime)
	if opts.Title != "Parallel processing time as function of image size" ||
		opts.XLabel != "Number of pixels" || opts.YLabel != "Processing time [s]" {
		t.Errorf("unexpected default options %+v", opts)
	}
	pl, err := c.Chart(benchlog.ParallelTime, opts)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Title.Text != opts.Title {
		t.Errorf("want title %q, got %q", opts.Title, pl.Title.Text)
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, pl, 4*vg.Inch, 3*vg.Inch); err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 4*DPI || cfg.Height != 3*DPI {
		t.Errorf("want %dx%d image, got %dx%d", 4*DPI, 3*DPI, cfg.Width, cfg.Height)
	}
}

func TestDefaultChartOptions(t *testing.T) {
	opts := DefaultChartOptions(benchlog.Nproc, benchlog.Speedup)
	if opts.Title != "Speed-up as function of number of processing units" || opts.YLabel != "Speed-up" {
		t.Errorf("unexpected options %+v", opts)
	}
	opts = DefaultChartOptions(benchlog.Nstripes, benchlog.SequentialTime)
	if opts.XLabel != "Number of stripes" {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestChartLogX(t *testing.T) {
	c := &Collection{Sweep: benchlog.Nstripes, Width: 1, Series: []*Series{{
		Backend: "hpx",
		Points: []Point{
			{Key: 0, N: 1, Summaries: []benchmath.Summary{benchmath.NewSample([]float64{1}).Summary()}},
		},
	}}}
	opts := DefaultChartOptions(c.Sweep, benchlog.ParallelTime)
	opts.LogX = true
	if _, err := c.Chart(benchlog.ParallelTime, opts); err == nil {
		t.Errorf("charting key 0 on a log axis succeeded")
	}
}

func TestKeyTicks(t *testing.T) {
	labels := func(keys ...float64) string {
		var ls []string
		for _, tk := range keyTicks(keys) {
			ls = append(ls, tk.Label)
		}
		return strings.Join(ls, ",")
	}
	if got := labels(100, 20, 100); got != "20,100" {
		t.Errorf("got %s", got)
	}
	if got := labels(4e6, 1e6); got != "1.000M,4.000M" {
		t.Errorf("got %s", got)
	}
	var many []float64
	for i := 1; i <= 12; i++ {
		many = append(many, float64(i))
	}
	if got := labels(many...); got != "1,,3,,5,,7,,9,,11," {
		t.Errorf("got %s", got)
	}
}

func TestPDFBook(t *testing.T) {
	c := buildCollection(t, benchlog.Workload, fullLog)
	book := NewPDFBook(DefaultWidth*vg.Inch, DefaultHeight*vg.Inch)
	var buf bytes.Buffer
	if _, err := book.WriteTo(&buf); err == nil {
		t.Errorf("writing an empty PDF succeeded")
	}
	for _, m := range c.Metrics() {
		pl, err := c.Chart(m, DefaultChartOptions(c.Sweep, m))
		if err != nil {
			t.Fatal(err)
		}
		book.Add(pl)
	}
	if book.Pages() != 3 {
		t.Errorf("want 3 pages, got %d", book.Pages())
	}
	if _, err := book.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output is not a PDF: %q", buf.Bytes()[:8])
	}
}

func TestChartFileName(t *testing.T) {
	if got := ChartFileName(benchlog.Nproc, benchlog.Speedup, "png"); got != "speedup_over_nproc.png" {
		t.Errorf("got %s", got)
	}
}

func TestMetricUnavailable(t *testing.T) {
	c := &Collection{Sweep: benchlog.Workload, Width: 1}
	_, err := c.Chart(benchlog.SequentialTime, ChartOptions{})
	if !errors.Is(err, ErrMetricUnavailable) {
		t.Errorf("want ErrMetricUnavailable, got %v", err)
	}
}
