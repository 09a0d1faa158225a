// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Mandelplot summarizes and plots the logs of Mandelbrot benchmark
// sweeps.
//
// Usage:
//
//	mandelplot [flags] logs_path
//
// The logs_path directory holds one log per backend, named
// <backend>-mandelbrot_over_<sweep>.log, where sweep is the variable
// varied across runs:
//
//	workload   the image size; runs are keyed by pixel count
//	nproc      the number of processing units
//	nstripes   the number of stripes the image is split into
//
// Every log entry starts with a header line
//
//	imsize: h=1000 w=1000 backend=hpx num_pus=8 nstripes=64
//
// followed by the parallel time and, in full logs, the sequential time
// and speed-up:
//
//	Parallel Mandelbrot: 1.23 s
//	Sequential Mandelbrot: 9.84 s
//	Speed-up: 8.0 X
//
// Runs of one backend with the same key are reduced to their mean and
// standard deviation. Mandelplot prints the summary as a text table
// (or CSV with -csv) and draws one error-bar chart per metric. Charts
// are saved as PNG files with -im_save_path, as pages of one PDF with
// -pdf_save_path and opened in the system viewer with -show, which is
// the default when no other chart output is requested.
//
// Runs can also be stored in a SQL database with -db and read back
// later with -from_db, summaries saved and restored with -jo and -ji,
// rendered files copied to Google Cloud Storage with -gcs_bucket, and
// summaries exported to InfluxDB with -influx_url.
//
// Example:
//
//	mandelplot -sweep nproc -im_save_path charts -pdf_save_path charts/all.pdf logs
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/browser"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/hpxcv/mandelbench/benchlog"
	"github.com/hpxcv/mandelbench/benchseries"
	"github.com/hpxcv/mandelbench/influx"
	"github.com/hpxcv/mandelbench/storage/db"
	_ "github.com/hpxcv/mandelbench/storage/db/sqlite3"
	"github.com/hpxcv/mandelbench/storage/gcsupload"
)

var exit = os.Exit // replaced during testing

// Hooks replaced during testing.
var (
	openFile = browser.OpenFile
	now      = time.Now
)

// errUsage reports a command line the flag package already complained
// about.
var errUsage = errors.New("usage")

// A usageError is a bad combination of flags or arguments.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func usagef(format string, args ...interface{}) error {
	return &usageError{fmt.Errorf(format, args...)}
}

func main() {
	log.SetPrefix("mandelplot: ")
	log.SetFlags(0)
	err := mandelplot(os.Stdout, os.Stderr, os.Args[1:])
	if err == nil {
		return
	}
	var ue *usageError
	switch {
	case errors.Is(err, errUsage):
		exit(2)
	case errors.As(err, &ue):
		log.Print(err)
		exit(2)
	default:
		log.Fatal(err)
	}
}

func mandelplot(stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("mandelplot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: mandelplot [flags] logs_path\n")
		fmt.Fprintf(stderr, "flags:\n")
		fs.PrintDefaults()
	}
	var (
		flagImSavePath  = fs.String("im_save_path", "", "save one PNG chart per metric in `dir`")
		flagPDFSavePath = fs.String("pdf_save_path", "", "save every chart as a page of the PDF `file`")
		flagSweep       = fs.String("sweep", "workload", "plot the `sweep`: workload, nproc or nstripes")
		flagFormat      = fs.String("format", "auto", "log entry `layout`: auto, full or parallel")
		flagBackends    = fs.String("backends", "hpx,hpx_startstop,tbb", "comma-separated `list` of backends to read; empty reads every log of the sweep")
		flagMetrics     = fs.String("metrics", "", "comma-separated `list` of metrics to plot (default every recorded metric)")
		flagWidth       = fs.Float64("width", benchseries.DefaultWidth, "chart width in `inches`")
		flagHeight      = fs.Float64("height", benchseries.DefaultHeight, "chart height in `inches`")
		flagLogX        = fs.Bool("logx", false, "use a logarithmic x axis")
		flagCSV         = fs.Bool("csv", false, "print the summary in CSV form")
		flagHTML        = fs.String("html", "", "write an HTML report to `file`")
		flagJSONOut     = fs.String("jo", "", "save the summary in the JSON `file`")
		flagJSONIn      = fs.String("ji", "", "read the summary from the JSON `file` instead of logs")
		flagDB          = fs.String("db", "", "store runs in the database `driver:dsn` (sqlite3 or mysql)")
		flagFromDB      = fs.Int64("from_db", 0, "read the runs of upload `id` from -db instead of logs")
		flagGCSBucket   = fs.String("gcs_bucket", "", "copy rendered files to the Cloud Storage `bucket`")
		flagGCSPrefix   = fs.String("gcs_prefix", "", "object name `prefix` for -gcs_bucket")
		flagInfluxURL   = fs.String("influx_url", "", "export the summary to the InfluxDB server at `url`")
		flagInfluxOrg   = fs.String("influx_org", "", "InfluxDB `organization`")
		flagInfluxBkt   = fs.String("influx_bucket", "", "InfluxDB `bucket`")
		flagInfluxSec   = fs.String("influx_token_secret", "", "read the InfluxDB token from the Secret Manager secret version `name` instead of $INFLUX_TOKEN")
		flagShow        = fs.Bool("show", false, "open rendered charts in the system viewer (default when no -im_save_path, -pdf_save_path or -html is given)")
	)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	sweep, err := benchlog.ParseSweep(*flagSweep)
	if err != nil {
		return &usageError{err}
	}
	format, err := benchlog.ParseFormat(*flagFormat)
	if err != nil {
		return &usageError{err}
	}
	metrics, err := parseMetrics(*flagMetrics)
	if err != nil {
		return &usageError{err}
	}
	if *flagWidth <= 0 || *flagHeight <= 0 {
		return usagef("chart size %gx%g is not positive", *flagWidth, *flagHeight)
	}
	if fs.NArg() > 1 {
		return usagef("want one logs_path, got %d", fs.NArg())
	}
	logsPath := fs.Arg(0)
	sources := 0
	for _, set := range []bool{logsPath != "", *flagJSONIn != "", *flagFromDB != 0} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return usagef("need exactly one of logs_path, -ji or -from_db")
	}
	if *flagFromDB != 0 && *flagDB == "" {
		return usagef("-from_db requires -db")
	}
	show := *flagShow
	if !isFlagSet(fs, "show") {
		show = *flagImSavePath == "" && *flagPDFSavePath == "" && *flagHTML == ""
	}

	warn := func(format string, args ...interface{}) {
		fmt.Fprintf(stderr, format, args...)
	}
	ctx := context.Background()

	var store *db.DB
	if *flagDB != "" {
		if store, err = openDB(*flagDB); err != nil {
			return err
		}
		defer store.Close()
	}

	var c *benchseries.Collection
	switch {
	case *flagJSONIn != "":
		c, err = readJSON(*flagJSONIn)
	case *flagFromDB != 0:
		c, err = readDB(ctx, store, *flagFromDB, warn)
	default:
		var backends []string
		if *flagBackends != "" {
			backends = strings.Split(*flagBackends, ",")
		}
		c, err = readLogs(ctx, logsPath, sweep, format, backends, store, stderr, warn)
	}
	if err != nil {
		return err
	}
	if len(c.Series) == 0 {
		warn("no benchmark results\n")
	}

	if *flagJSONOut != "" {
		if err := writeJSON(*flagJSONOut, c); err != nil {
			return err
		}
	}

	if *flagCSV {
		err = c.ToCSV(stdout, benchseries.CSV_STDDEV)
	} else {
		err = c.WriteTable(stdout)
	}
	if err != nil {
		return err
	}

	// Render charts.
	if len(metrics) == 0 {
		metrics = c.Metrics()
	}
	width, height := vg.Length(*flagWidth)*vg.Inch, vg.Length(*flagHeight)*vg.Inch
	imDir := *flagImSavePath
	if imDir == "" && *flagHTML != "" {
		imDir = filepath.Dir(*flagHTML)
	}
	if imDir == "" && show {
		if imDir, err = os.MkdirTemp("", "mandelplot"); err != nil {
			return err
		}
	}
	if imDir != "" {
		if err := os.MkdirAll(imDir, 0777); err != nil {
			return err
		}
	}
	var book *benchseries.PDFBook
	if *flagPDFSavePath != "" {
		book = benchseries.NewPDFBook(width, height)
	}
	var images, written []string
	for _, m := range metrics {
		if !c.HasMetric(m) {
			warn("%s not recorded in these logs, skipping\n", m)
			continue
		}
		opts := benchseries.DefaultChartOptions(c.Sweep, m)
		opts.LogX = *flagLogX
		pl, err := c.Chart(m, opts)
		if err != nil {
			return err
		}
		if book != nil {
			book.Add(pl)
		}
		if imDir != "" {
			path := filepath.Join(imDir, benchseries.ChartFileName(c.Sweep, m, "png"))
			if err := writePNG(path, pl, width, height); err != nil {
				return err
			}
			images = append(images, path)
		}
	}
	if *flagImSavePath != "" || *flagHTML != "" {
		written = append(written, images...)
	}
	if book != nil && book.Pages() > 0 {
		if err := writeFile(*flagPDFSavePath, book); err != nil {
			return err
		}
		written = append(written, *flagPDFSavePath)
	}
	if *flagHTML != "" {
		if err := writeHTML(*flagHTML, c, images); err != nil {
			return err
		}
		written = append(written, *flagHTML)
	}

	if show {
		for _, img := range images {
			if err := openFile(img); err != nil {
				warn("opening %s: %v\n", img, err)
			}
		}
	}

	if *flagGCSBucket != "" {
		if err := upload(ctx, *flagGCSBucket, *flagGCSPrefix, written, stderr); err != nil {
			return err
		}
	}

	if *flagInfluxURL != "" {
		opts := influx.Options{
			URL:    *flagInfluxURL,
			Org:    *flagInfluxOrg,
			Bucket: *flagInfluxBkt,
			Token:  os.Getenv("INFLUX_TOKEN"),
		}
		if *flagInfluxSec != "" {
			if opts.Token, err = influx.TokenFromSecret(ctx, *flagInfluxSec); err != nil {
				return err
			}
		}
		if err := influx.Write(ctx, opts, c, now()); err != nil {
			return err
		}
	}
	return nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func parseMetrics(list string) ([]benchlog.Metric, error) {
	if list == "" {
		return nil, nil
	}
	var metrics []benchlog.Metric
	for _, name := range strings.Split(list, ",") {
		m, err := benchlog.ParseMetric(name)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// openDB opens the database named by a driver:dsn pair.
func openDB(arg string) (*db.DB, error) {
	driver, dsn, ok := strings.Cut(arg, ":")
	if !ok || dsn == "" {
		return nil, usagef("-db %q: want driver:dsn", arg)
	}
	switch driver {
	case "sqlite3":
	case "mysql":
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return nil, usagef("-db: %v", err)
		}
	default:
		return nil, usagef("-db: unsupported driver %q (want sqlite3 or mysql)", driver)
	}
	return db.OpenSQL(driver, dsn)
}

// readLogs summarizes the logs of backends in dir. If store is not
// nil, every run read is also inserted into a new upload.
func readLogs(ctx context.Context, dir string, sweep benchlog.Sweep, format benchlog.Format, backends []string, store *db.DB, stderr io.Writer, warn func(string, ...interface{})) (*benchseries.Collection, error) {
	if len(backends) == 0 {
		var err error
		if backends, err = benchlog.Discover(dir, sweep); err != nil {
			return nil, err
		}
	}
	b, err := benchseries.NewBuilder(&benchseries.BuilderOptions{Sweep: sweep, Warn: warn})
	if err != nil {
		return nil, err
	}

	var files benchseries.RecordScanner = &benchlog.Files{
		Dir:      dir,
		Backends: backends,
		Sweep:    sweep,
		Format:   format,
	}
	var u *db.Upload
	if store != nil {
		if u, err = store.NewUpload(ctx, sweep, dir); err != nil {
			return nil, err
		}
		files = &storingScanner{RecordScanner: files, ctx: ctx, upload: u}
	}
	if err := b.AddFiles(files); err != nil {
		return nil, err
	}
	if u != nil {
		fmt.Fprintf(stderr, "stored upload %d\n", u.ID)
	}
	return b.Collection(), nil
}

// A storingScanner inserts every result it reads into an upload.
type storingScanner struct {
	benchseries.RecordScanner
	ctx    context.Context
	upload *db.Upload
	err    error
}

func (s *storingScanner) Scan() bool {
	if s.err != nil || !s.RecordScanner.Scan() {
		return false
	}
	if res, ok := s.Result().(*benchlog.Result); ok {
		if err := s.upload.InsertRecord(s.ctx, res); err != nil {
			s.err = err
			return false
		}
	}
	return true
}

func (s *storingScanner) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.RecordScanner.Err()
}

// readDB summarizes the runs of a stored upload.
func readDB(ctx context.Context, store *db.DB, id int64, warn func(string, ...interface{})) (*benchseries.Collection, error) {
	info, err := store.Upload(ctx, id)
	if err != nil {
		return nil, err
	}
	results, err := store.Records(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := benchseries.NewBuilder(&benchseries.BuilderOptions{Sweep: info.Sweep, Warn: warn})
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if err := b.Add(r); err != nil {
			return nil, err
		}
	}
	return b.Collection(), nil
}

func readJSON(file string) (*benchseries.Collection, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var c benchseries.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return &c, nil
}

func writeJSON(file string, c *benchseries.Collection) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(file, append(data, '\n'), 0666)
}

func writePNG(file string, pl *plot.Plot, width, height vg.Length) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := benchseries.WritePNG(f, pl, width, height); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFile(file string, w io.WriterTo) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeHTML writes the report to file, linking images relative to it.
func writeHTML(file string, c *benchseries.Collection, images []string) error {
	dir := filepath.Dir(file)
	var srcs []string
	for _, img := range images {
		rel, err := filepath.Rel(dir, img)
		if err != nil {
			return err
		}
		srcs = append(srcs, filepath.ToSlash(rel))
	}
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := c.WriteHTML(f, srcs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func upload(ctx context.Context, bucket, prefix string, files []string, stderr io.Writer) error {
	u, err := gcsupload.New(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	defer u.Close()
	for _, file := range files {
		url, err := u.UploadFile(ctx, file)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", file, err)
		}
		fmt.Fprintf(stderr, "uploaded %s\n", url)
	}
	return nil
}
