// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// A Reader reads benchmark log entries.
//
// Its API is modeled on bufio.Scanner. To minimize allocation, a
// Reader retains ownership of the *Result it returns; a caller should
// Clone anything it needs to retain.
//
// Lines outside of an entry that are not entry headers are ignored,
// so logs interleaved with other program output can be read. Within
// an entry, only blank lines may separate the expected lines. A
// malformed entry is reported as a *SyntaxError record and reading
// resumes at the next header.
//
// To construct a new Reader, either call NewReader, or call Reset on
// a zeroed Reader.
type Reader struct {
	s   *bufio.Scanner
	err error // current I/O error

	format   Format
	fileName string
	backend  string // if non-empty, overrides the header's backend
	line     int    // number of the last line returned by next

	// A line pushed back by unread.
	pending     []byte
	pendingLine int
	hasPending  bool

	result Result
	rec    Record
}

var noResult = &SyntaxError{"", 0, "Reader.Scan has not been called"}

var (
	headerPrefix     = []byte("imsize:")
	parallelPrefix   = []byte("Parallel Mandelbrot:")
	sequentialPrefix = []byte("Sequential Mandelbrot:")
	speedupPrefix    = []byte("Speed-up:")
)

// NewReader constructs a reader to parse log entries in format f
// from r. fileName is used in error messages; it is purely
// diagnostic.
func NewReader(r io.Reader, fileName string, f Format) *Reader {
	reader := new(Reader)
	reader.format = f
	reader.Reset(r, fileName)
	return reader
}

// Reset resets the reader to begin reading from a new input. It keeps
// the reader's format.
func (r *Reader) Reset(ior io.Reader, fileName string) {
	r.s = bufio.NewScanner(ior)
	if fileName == "" {
		fileName = "<unknown>"
	}
	r.err = nil
	r.fileName = fileName
	r.backend = ""
	r.line = 0
	r.pending, r.pendingLine, r.hasPending = nil, 0, false
	r.result = Result{Values: r.result.Values[:0]}
	r.rec = nil
}

// SetFormat changes the entry layout expected by subsequent calls to
// Scan.
func (r *Reader) SetFormat(f Format) {
	r.format = f
}

// next returns the next non-blank line.
func (r *Reader) next() ([]byte, bool) {
	if r.hasPending {
		r.hasPending = false
		r.line = r.pendingLine
		return r.pending, true
	}
	for r.s.Scan() {
		r.line++
		line := bytes.TrimSpace(r.s.Bytes())
		if len(line) == 0 {
			continue
		}
		return line, true
	}
	return nil, false
}

// unread pushes line back so the next call to next returns it again.
func (r *Reader) unread(line []byte) {
	r.pending = append(r.pending[:0], line...)
	r.pendingLine = r.line
	r.hasPending = true
}

func (r *Reader) newSyntaxError(line int, msg string) *SyntaxError {
	return &SyntaxError{r.fileName, line, msg}
}

// Scan advances the reader to the next record and reports whether a
// record was read. The caller should use the Result method to get the
// record. If Scan reaches EOF or an I/O error occurs, it returns
// false, in which case the caller should use the Err method to check
// for errors.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for {
		line, ok := r.next()
		if !ok {
			break
		}
		if !bytes.HasPrefix(line, headerPrefix) {
			// Ignore the line.
			continue
		}
		if err := r.parseEntry(line); err != nil {
			r.rec = err
		} else {
			r.rec = &r.result
		}
		return true
	}

	// We hit EOF. Check for IO errors.
	if err := r.s.Err(); err != nil {
		r.err = fmt.Errorf("%s:%d: %w", r.fileName, r.line, err)
		return false
	}
	r.err = nil
	return false
}

// parseEntry parses the entry starting at header line and updates
// r.result.
func (r *Reader) parseEntry(header []byte) *SyntaxError {
	headerLine := r.line
	if err := r.parseHeader(header[len(headerPrefix):]); err != nil {
		return err
	}
	r.result.fileName, r.result.line = r.fileName, headerLine
	r.result.Values = r.result.Values[:0]

	v, err := r.expectValue(headerLine, parallelPrefix, "parallel time")
	if err != nil {
		return err
	}
	r.result.Values = append(r.result.Values, v)

	switch r.format {
	case FormatParallel:
		return nil
	case FormatAuto:
		line, ok := r.next()
		if !ok {
			return nil
		}
		r.unread(line)
		if !bytes.HasPrefix(line, sequentialPrefix) {
			return nil
		}
	}

	v, err = r.expectValue(headerLine, sequentialPrefix, "sequential time")
	if err != nil {
		return err
	}
	r.result.Values = append(r.result.Values, v)

	v, err = r.expectValue(headerLine, speedupPrefix, "speed-up")
	if err != nil {
		return err
	}
	r.result.Values = append(r.result.Values, v)
	return nil
}

// expectValue reads the next line, which must start with label, and
// returns the number that follows the label.
func (r *Reader) expectValue(headerLine int, label []byte, what string) (float64, *SyntaxError) {
	line, ok := r.next()
	if !ok {
		return 0, r.newSyntaxError(headerLine, "truncated entry: missing "+what)
	}
	if !bytes.HasPrefix(line, label) {
		// This may be the header of the next entry.
		r.unread(line)
		return 0, r.newSyntaxError(r.line, fmt.Sprintf("expected %s, found %q", what, line))
	}
	f := bytes.Fields(line[len(label):])
	if len(f) == 0 {
		return 0, r.newSyntaxError(r.line, "missing "+what)
	}
	v, err := strconv.ParseFloat(string(f[0]), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, r.newSyntaxError(r.line, fmt.Sprintf("parsing %s: %v", what, err))
	}
	return v, nil
}

// parseHeader parses the key=value tokens of a header line following
// the "imsize:" prefix.
func (r *Reader) parseHeader(rest []byte) *SyntaxError {
	r.result.Backend = r.backend
	r.result.Height, r.result.Width = 0, 0
	r.result.NumPUs, r.result.NStripes = 0, 0

	var haveH, haveW bool
	for _, tok := range bytes.Fields(rest) {
		key, val, ok := bytes.Cut(tok, []byte("="))
		if !ok {
			return r.newSyntaxError(r.line, fmt.Sprintf("header token %q is not key=value", tok))
		}
		var dst *int
		switch string(key) {
		case "h":
			dst, haveH = &r.result.Height, true
		case "w":
			dst, haveW = &r.result.Width, true
		case "num_pus":
			dst = &r.result.NumPUs
		case "nstripes":
			dst = &r.result.NStripes
		case "backend":
			if r.backend == "" {
				r.result.Backend = string(val)
			}
			continue
		default:
			continue
		}
		n, err := strconv.Atoi(string(val))
		if err != nil {
			return r.newSyntaxError(r.line, fmt.Sprintf("parsing %s: %q is not an integer", key, val))
		}
		*dst = n
	}
	if !haveH || !haveW {
		return r.newSyntaxError(r.line, "header must have h= and w=")
	}
	return nil
}

// Result returns the record that was just read by Scan. This is either
// a *Result or a *SyntaxError indicating a malformed entry.
//
// If this returns a *Result, the caller should not retain the Result,
// as it will be overwritten by the next call to Scan.
func (r *Reader) Result() Record {
	if r.rec == nil {
		return noResult
	}
	return r.rec
}

// Err returns the first non-EOF I/O error that was encountered by the
// Reader.
func (r *Reader) Err() error {
	return r.err
}
