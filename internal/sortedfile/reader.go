// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package sortedfile streams the records of one pre-sorted text file.
//
// A Reader exposes only the valid lines of its file that keep the sequence
// non-decreasing under the run's comparator. Lines that fail conversion and
// lines that would break the ordering are dropped and counted, so the merge
// layers above can treat every reader as perfectly sorted.
package sortedfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/lakemerge/internal/lineconv"
)

const (
	DefaultReadBufferBytes = 64 * 1024
	DefaultMaxLineBytes    = 1024 * 1024
)

// Options tunes the line scanner.
type Options struct {
	ReadBufferBytes int
	MaxLineBytes    int
}

func (o Options) withDefaults() Options {
	if o.ReadBufferBytes <= 0 {
		o.ReadBufferBytes = DefaultReadBufferBytes
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = DefaultMaxLineBytes
	}
	if o.MaxLineBytes < o.ReadBufferBytes {
		o.MaxLineBytes = o.ReadBufferBytes
	}
	return o
}

// Stats describes what a Reader consumed and what it dropped.
type Stats struct {
	Path            string
	LinesRead       int64
	InvalidLines    int64
	OutOfOrderLines int64
}

// Dropped is the number of lines the reader did not expose.
func (s Stats) Dropped() int64 {
	return s.InvalidLines + s.OutOfOrderLines
}

// Reader is a cursor over the normalized lines of one file. It is not safe
// for concurrent use; one merge task owns it at a time.
type Reader[T any] struct {
	path    string
	closer  io.Closer
	scanner *bufio.Scanner
	convert lineconv.Converter[T]
	compare lineconv.Comparator[T]

	line  string
	value T
	done  bool
	err   error

	linesRead  int64
	invalid    int64
	outOfOrder int64
	closed     bool
}

// Open opens path and positions the reader on its first valid line.
func Open[T any](path string, convert lineconv.Converter[T], compare lineconv.Comparator[T], opts Options) (*Reader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := New(path, f, convert, compare, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// New wraps rc, which the Reader takes ownership of. name is used for
// diagnostics only. On error rc has already been closed.
func New[T any](name string, rc io.ReadCloser, convert lineconv.Converter[T], compare lineconv.Comparator[T], opts Options) (*Reader[T], error) {
	if convert == nil || compare == nil {
		_ = rc.Close()
		return nil, errors.New("converter and comparator are required")
	}
	opts = opts.withDefaults()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, opts.ReadBufferBytes), opts.MaxLineBytes)

	r := &Reader[T]{
		path:    name,
		closer:  rc,
		scanner: scanner,
		convert: convert,
		compare: compare,
	}
	if err := r.nextValid(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// AtEnd reports whether the reader has no current line.
func (r *Reader[T]) AtEnd() bool {
	return r.done
}

// Line returns the current raw line. Only meaningful when !AtEnd().
func (r *Reader[T]) Line() string {
	return r.line
}

// Value returns the converted current line. Only meaningful when !AtEnd().
func (r *Reader[T]) Value() T {
	return r.value
}

// Path returns the name the reader was created with.
func (r *Reader[T]) Path() string {
	return r.path
}

// Advance moves to the next line that converts and does not sort before the
// line just consumed. Dropped lines are counted. A non-nil error is an I/O
// failure and leaves the reader at end.
func (r *Reader[T]) Advance() error {
	if r.done {
		return r.err
	}
	prev := r.value
	for {
		if err := r.nextValid(); err != nil {
			return err
		}
		if r.done {
			return nil
		}
		if r.compare(prev, r.value) > 0 {
			r.outOfOrder++
			continue
		}
		return nil
	}
}

// nextValid reads lines until one converts or input is exhausted.
func (r *Reader[T]) nextValid() error {
	for r.scanner.Scan() {
		r.linesRead++
		line := r.scanner.Text()
		value, ok := r.convert(line)
		if !ok {
			r.invalid++
			continue
		}
		r.line = line
		r.value = value
		return nil
	}

	r.done = true
	r.line = ""
	var zero T
	r.value = zero
	if err := r.scanner.Err(); err != nil {
		r.err = fmt.Errorf("read %s at line %d: %w", r.path, r.linesRead+1, err)
		return r.err
	}
	return nil
}

// Stats returns the reader's counters so far.
func (r *Reader[T]) Stats() Stats {
	return Stats{
		Path:            r.path,
		LinesRead:       r.linesRead,
		InvalidLines:    r.invalid,
		OutOfOrderLines: r.outOfOrder,
	}
}

// Close releases the underlying file. It is safe to call more than once.
func (r *Reader[T]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.done = true

	ctx := context.Background()
	attrs := otelmetric.WithAttributes(attribute.String("reader", "sortedfile"))
	linesReadCounter.Add(ctx, r.linesRead, attrs)
	if r.invalid > 0 {
		linesDroppedCounter.Add(ctx, r.invalid, otelmetric.WithAttributes(
			attribute.String("reason", "invalid"),
		))
	}
	if r.outOfOrder > 0 {
		linesDroppedCounter.Add(ctx, r.outOfOrder, otelmetric.WithAttributes(
			attribute.String("reason", "out_of_order"),
		))
	}

	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	r.scanner = nil
	return err
}
