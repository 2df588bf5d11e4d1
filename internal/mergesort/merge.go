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

package mergesort

import (
	"bufio"
	"context"
	"fmt"

	"github.com/cardinalhq/lakemerge/internal/lineconv"
	"github.com/cardinalhq/lakemerge/internal/logctx"
	"github.com/cardinalhq/lakemerge/internal/sortedfile"
)

// Result summarizes one merge or copy.
type Result struct {
	Lines int64
	Bytes int64
	// Sources holds the final counters of every reader that was consumed.
	Sources []sortedfile.Stats
}

// Dropped is the number of lines the sources discarded.
func (r Result) Dropped() int64 {
	var n int64
	for _, s := range r.Sources {
		n += s.Dropped()
	}
	return n
}

// lineSink writes records and checks for cancellation before each one.
type lineSink struct {
	ctx  context.Context
	done <-chan struct{}
	w    *bufio.Writer
	res  Result
}

func newLineSink(ctx context.Context, w *bufio.Writer) *lineSink {
	return &lineSink{ctx: ctx, done: ctx.Done(), w: w}
}

// lineSource is the part of sortedfile.Reader the sink needs.
type lineSource interface {
	Line() string
	Advance() error
}

// transfer writes the source's current line and advances it.
func (s *lineSink) transfer(r lineSource) error {
	select {
	case <-s.done:
		return fmt.Errorf("%w: %w", ErrMergeCanceled, context.Cause(s.ctx))
	default:
	}

	line := r.Line()
	if _, err := s.w.WriteString(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	s.res.Lines++
	s.res.Bytes += int64(len(line)) + 1

	return r.Advance()
}

func (s *lineSink) flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Merge writes the union of left and right to w in comparator order,
// flushing w when both are exhausted. On ties the left line goes first.
//
// If ctx is canceled Merge stops before the next line and returns an error
// wrapping ErrMergeCanceled; w is left partially written. Anomaly counts of
// both readers are logged once the merge completes.
func Merge[T any](ctx context.Context, left, right *sortedfile.Reader[T], compare lineconv.Comparator[T], w *bufio.Writer) (Result, error) {
	sink := newLineSink(ctx, w)

	for !left.AtEnd() && !right.AtEnd() {
		next := right
		if compare(left.Value(), right.Value()) <= 0 {
			next = left
		}
		if err := sink.transfer(next); err != nil {
			return sink.res, err
		}
	}

	rest := left
	if left.AtEnd() {
		rest = right
	}
	for !rest.AtEnd() {
		if err := sink.transfer(rest); err != nil {
			return sink.res, err
		}
	}

	if err := sink.flush(); err != nil {
		return sink.res, err
	}

	sink.res.Sources = []sortedfile.Stats{left.Stats(), right.Stats()}
	reportAnomalies(ctx, sink.res.Sources...)
	return sink.res, nil
}

// Copy writes the normalized lines of r to w, the single-input form of Merge.
func Copy[T any](ctx context.Context, r *sortedfile.Reader[T], w *bufio.Writer) (Result, error) {
	sink := newLineSink(ctx, w)

	for !r.AtEnd() {
		if err := sink.transfer(r); err != nil {
			return sink.res, err
		}
	}
	if err := sink.flush(); err != nil {
		return sink.res, err
	}

	sink.res.Sources = []sortedfile.Stats{r.Stats()}
	reportAnomalies(ctx, sink.res.Sources...)
	return sink.res, nil
}

// reportAnomalies warns about sources that lost lines. It never fails the run.
func reportAnomalies(ctx context.Context, sources ...sortedfile.Stats) {
	ll := logctx.FromContext(ctx)
	for _, st := range sources {
		if st.InvalidLines > 0 {
			ll.Warn("File contains invalid lines; some data have been lost",
				"path", st.Path,
				"invalidLines", st.InvalidLines)
		}
		if st.OutOfOrderLines > 0 {
			ll.Warn("File contains lines that are out of order; some data have been lost",
				"path", st.Path,
				"outOfOrderLines", st.OutOfOrderLines)
		}
	}
}
