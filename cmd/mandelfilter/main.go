// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// mandelfilter reads Mandelbrot benchmark log entries from input
// files, filters them, and writes the kept entries to stdout. If no
// inputs are provided, it reads from stdin.
//
// Entries can be selected by backend and by a range of one sweep key:
//
//	mandelfilter -backends hpx -sweep nproc -min 2 -max 16 logs/hpx-mandelbrot_over_nproc.log
//
// With -parallel, full entries are written in the two-line format,
// keeping only the parallel time.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"

	"github.com/hpxcv/mandelbench/benchlog"
)

func usage(w io.Writer, fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(w, `Usage: mandelfilter [flags] [inputs...]

mandelfilter reads Mandelbrot benchmark log entries from input files,
filters them, and writes the kept entries to stdout. If no inputs are
provided, it reads from stdin.

`)
		fs.PrintDefaults()
	}
}

func main() {
	log.SetPrefix("mandelfilter: ")
	log.SetFlags(0)
	if err := mandelfilter(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

// A filter selects log entries.
type filter struct {
	backends map[string]bool // nil keeps every backend
	sweep    benchlog.Sweep
	min, max int
	ranged   bool
}

func (f *filter) apply(res *benchlog.Result) (bool, error) {
	if f.backends != nil && !f.backends[res.Backend] {
		return false, nil
	}
	if !f.ranged {
		return true, nil
	}
	key, err := res.Key(f.sweep)
	if err != nil {
		return false, err
	}
	return f.min <= key && key <= f.max, nil
}

func mandelfilter(stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("mandelfilter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(stderr, fs)
	var (
		flagBackends = fs.String("backends", "", "keep only the comma-separated `list` of backends")
		flagSweep    = fs.String("sweep", "workload", "key `sweep` that -min and -max apply to")
		flagMin      = fs.Int("min", 0, "keep entries whose key is at least `n`")
		flagMax      = fs.Int("max", math.MaxInt, "keep entries whose key is at most `n`")
		flagFormat   = fs.String("format", "auto", "input entry `layout`: auto, full or parallel")
		flagParallel = fs.Bool("parallel", false, "write only the parallel time of every entry")
	)
	if err := fs.Parse(args); err != nil {
		return flag.ErrHelp
	}

	f := &filter{min: *flagMin, max: *flagMax}
	if *flagBackends != "" {
		f.backends = make(map[string]bool)
		for _, b := range strings.Split(*flagBackends, ",") {
			f.backends[b] = true
		}
	}
	var err error
	if f.sweep, err = benchlog.ParseSweep(*flagSweep); err != nil {
		return err
	}
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "min" || fl.Name == "max" {
			f.ranged = true
		}
	})
	format, err := benchlog.ParseFormat(*flagFormat)
	if err != nil {
		return err
	}

	writer := benchlog.NewWriter(stdout)
	reader := benchlog.NewReader(nil, "", format)
	scan := func(r io.Reader, name string) error {
		reader.Reset(r, name)
		for reader.Scan() {
			rec := reader.Result()
			switch rec := rec.(type) {
			case *benchlog.SyntaxError:
				// Non-fatal parse error. Warn but keep going.
				fmt.Fprintln(stderr, rec)
				continue
			case *benchlog.Result:
				if ok, err := f.apply(rec); !ok {
					if err != nil {
						// Print the reason we rejected this entry.
						fmt.Fprintln(stderr, err)
					}
					continue
				}
				if *flagParallel {
					rec.Values = rec.Values[:1]
				}
			}
			if err := writer.Write(rec); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		}
		return reader.Err()
	}

	if fs.NArg() == 0 {
		return scan(stdin, "<stdin>")
	}
	for _, path := range fs.Args() {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		err = scan(file, path)
		file.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
