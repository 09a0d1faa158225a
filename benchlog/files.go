// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const logSuffix = "-mandelbrot_over_"

// LogName returns the base name of the log file that holds the
// results of backend for sweep s.
func LogName(backend string, s Sweep) string {
	return backend + logSuffix + s.String() + ".log"
}

// LogPath returns the path of the log file in dir that holds the
// results of backend for sweep s.
func LogPath(dir, backend string, s Sweep) string {
	return filepath.Join(dir, LogName(backend, s))
}

// Discover returns the names of all backends that have a log file for
// sweep s in dir, in sorted order.
func Discover(dir string, s Sweep) ([]string, error) {
	suffix := logSuffix + s.String() + ".log"
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return nil, err
	}
	var backends []string
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), suffix)
		if name == "" {
			continue
		}
		backends = append(backends, name)
	}
	sort.Strings(backends)
	if len(backends) == 0 {
		return nil, fmt.Errorf("no %s logs in %s", s, dir)
	}
	return backends, nil
}

// A Files reads benchmark results from the log files of a set of
// backends.
//
// The Backend of every Result read through Files is the backend the
// log file is named after.
type Files struct {
	// Dir is the directory holding the log files.
	Dir string

	// Backends is the list of backends to read, in order.
	Backends []string

	// Sweep selects which log file of each backend is read.
	Sweep Sweep

	// Format is the entry layout of the log files.
	Format Format

	// inputs is the sequence of remaining backends, or nil if this
	// Files has not started yet.
	inputs []string

	reader Reader
	file   *os.File
	err    error
}

// Scan advances the reader to the next result in the sequence of
// files and reports whether a result was read. The caller should use
// the Result method to get the result. If Scan reaches the end of the
// file sequence, or if an I/O error occurs, it returns false. In this
// case, the caller should use the Err method to check for errors.
func (f *Files) Scan() bool {
	if f.err != nil {
		return false
	}

	if f.inputs == nil {
		f.inputs = append([]string{}, f.Backends...)
	}

	for {
		if f.file == nil {
			// Open the next file.
			if len(f.inputs) == 0 {
				return false
			}
			backend := f.inputs[0]
			f.inputs = f.inputs[1:]

			path := LogPath(f.Dir, backend, f.Sweep)
			file, err := os.Open(path)
			if err != nil {
				f.err = err
				return false
			}
			f.file = file
			f.reader.SetFormat(f.Format)
			f.reader.Reset(file, path)
			f.reader.backend = backend
		}

		if f.reader.Scan() {
			return true
		}
		err := f.reader.Err()
		f.file.Close()
		f.file = nil
		if err != nil {
			f.err = err
			return false
		}
	}
}

// Result returns the record that was just read by Scan.
// See Reader.Result.
func (f *Files) Result() Record {
	return f.reader.Result()
}

// Err returns the I/O error that stopped Scan, if any.
// If Scan stopped because it read each file to completion,
// or if Scan has not yet returned false, Err returns nil.
func (f *Files) Err() error {
	return f.err
}
