// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"io"

	"github.com/google/safehtml/template"
)

var htmlTemplate = template.Must(template.New("").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
table.mandelbench { border-collapse: collapse; }
table.mandelbench td, table.mandelbench th { padding: 0 1em; text-align: right; }
table.mandelbench td.backend { text-align: left; font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<table class='mandelbench'>
<thead>
<tr><th>backend<th>{{.Sweep}}<th>n{{range .Metrics}}<th>{{.}}{{end}}
</thead>
<tbody>
{{- range .Rows}}
<tr><td class='backend'>{{if .First}}{{.Backend}}{{end}}<td>{{.Key}}<td>{{.N}}{{range .Cells}}<td>{{.}}{{end}}
{{- end}}
</tbody>
</table>
{{range .Images -}}
<p><img src="{{.}}" alt="{{.}}"></p>
{{end -}}
</body>
</html>
`))

type htmlReport struct {
	Title   string
	Sweep   string
	Metrics []string
	Rows    []htmlRow
	Images  []string
}

type htmlRow struct {
	Backend string
	First   bool
	Key     int
	N       int
	Cells   []string
}

// WriteHTML writes an HTML report of c to w: the summary table,
// followed by an image element for each path in images. Image paths
// should be relative to the report's location.
func (c *Collection) WriteHTML(w io.Writer, images []string) error {
	metrics := c.Metrics()
	scalers := c.scalers(metrics)

	r := htmlReport{
		Title:  "Mandelbrot benchmarks over " + c.Sweep.String(),
		Sweep:  c.Sweep.String(),
		Images: images,
	}
	for _, m := range metrics {
		r.Metrics = append(r.Metrics, m.String())
	}
	for _, s := range c.Series {
		for i, p := range s.Points {
			row := htmlRow{Backend: s.Backend, First: i == 0, Key: p.Key, N: p.N}
			for j, m := range metrics {
				sum, _ := p.Summary(m)
				row.Cells = append(row.Cells, formatSummary(sum, scalers[j], m))
			}
			r.Rows = append(r.Rows, row)
		}
	}
	return htmlTemplate.Execute(w, r)
}
