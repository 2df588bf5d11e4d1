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

// Package mergesort combines independently pre-sorted text files into one
// sorted file without holding more than a line per open file in memory.
//
// Files are merged two at a time. The two smallest pending files are always
// merged next, which keeps the total number of bytes rewritten minimal, and
// independent merges run in parallel on a bounded worker pool. Intermediate
// results go to temporary files that are removed when the run ends; the last
// merge writes straight to the destination.
//
// Lines that do not parse as the selected value type, and lines that would
// break the ordering of their own file, are dropped and reported as warnings
// rather than failing the run. Any I/O failure aborts the whole run.
package mergesort

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cardinalhq/lakemerge/internal/helpers"
	"github.com/cardinalhq/lakemerge/internal/idgen"
	"github.com/cardinalhq/lakemerge/internal/lineconv"
	"github.com/cardinalhq/lakemerge/internal/logctx"
	"github.com/cardinalhq/lakemerge/internal/sortedfile"
)

const (
	tempPrefix = "lakemerge-"
	tempSuffix = ".tmp"
)

// Stats describes a finished (or failed) run.
type Stats struct {
	Inputs       int
	Skipped      int
	Merges       int
	LinesWritten int64
	BytesWritten int64
	LinesDropped int64
}

// Sorter merges files holding one value type, ordered in one direction.
type Sorter[T any] struct {
	convert lineconv.Converter[T]
	compare lineconv.Comparator[T]
	cfg     Config
}

// NewSorter returns a Sorter using convert to parse lines and compare to
// order them.
func NewSorter[T any](convert lineconv.Converter[T], compare lineconv.Comparator[T], cfg Config) (*Sorter[T], error) {
	if convert == nil {
		return nil, errors.New("converter is required")
	}
	if compare == nil {
		return nil, errors.New("comparator is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid merge config: %w", err)
	}
	return &Sorter[T]{convert: convert, compare: compare, cfg: cfg}, nil
}

// MergeSortedFiles merges inputs into output. Inputs that are missing or not
// regular files are skipped with a warning. With one usable input the file
// is copied through the same normalization a merge applies.
func (s *Sorter[T]) MergeSortedFiles(ctx context.Context, output string, inputs []string) (Stats, error) {
	runID := idgen.NewRunID()
	ctx, ll := logctx.With(ctx, slog.String("run", runID))

	ctx, span := tracer.Start(ctx, "lakemerge.merge_sorted_files")
	defer span.End()
	span.SetAttributes(
		attribute.String("run", runID),
		attribute.String("output_path", output),
		attribute.Int("input_count", len(inputs)),
	)

	units := filterInputs(ctx, inputs)
	stats := Stats{Inputs: len(units), Skipped: len(inputs) - len(units)}
	if len(units) == 0 {
		span.SetStatus(codes.Error, "no valid inputs")
		return stats, ErrNoValidInputs
	}
	if err := checkDestination(output, units); err != nil {
		span.SetStatus(codes.Error, "destination check failed")
		return stats, err
	}
	if len(units) > 2 {
		s.sweepStaleTemps(ctx)
		s.checkTempSpace(ctx, units)
	}

	var err error
	if len(units) == 1 {
		var res Result
		res, err = s.copyFile(ctx, units[0], output)
		stats.LinesWritten = res.Lines
		stats.BytesWritten = res.Bytes
		stats.LinesDropped = res.Dropped()
	} else {
		var sum mergeSummary
		sum, err = newScheduler(s, output, runID, units).run(ctx)
		stats.Merges = sum.Merges
		stats.LinesWritten = sum.Final.Lines
		stats.BytesWritten = sum.Final.Bytes
		stats.LinesDropped = sum.Dropped
	}
	span.SetAttributes(
		attribute.Int("merges", stats.Merges),
		attribute.Int64("lines_written", stats.LinesWritten),
		attribute.Int64("lines_dropped", stats.LinesDropped),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		ll.Error("File merge was interrupted or an error has occurred; the result may be incorrect",
			slog.String("output", output),
			slog.Any("error", err))
		return stats, err
	}

	ll.Info("Merge complete",
		slog.String("output", output),
		slog.Int("inputs", stats.Inputs),
		slog.Int("skipped", stats.Skipped),
		slog.Int("merges", stats.Merges),
		slog.Int64("lines", stats.LinesWritten),
		slog.Int64("dropped", stats.LinesDropped))
	return stats, nil
}

// filterInputs keeps the paths that name existing regular files, in order.
func filterInputs(ctx context.Context, paths []string) []InputUnit {
	ll := logctx.FromContext(ctx)
	units := make([]InputUnit, 0, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, fs.ErrNotExist) {
				reason = "file does not exist"
			}
			ll.Warn("Skipping input file", slog.String("path", p), slog.String("reason", reason))
			continue
		}
		if !fi.Mode().IsRegular() {
			ll.Warn("Skipping input file", slog.String("path", p), slog.String("reason", "not a regular file"))
			continue
		}
		units = append(units, InputUnit{Path: p, Size: fi.Size()})
	}
	return units
}

// checkDestination fails fast when output cannot be written or would
// overwrite an input. The file is created if it does not exist.
func checkDestination(output string, inputs []InputUnit) error {
	fi, err := os.Stat(output)
	switch {
	case err == nil:
		if fi.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrDestinationAccess, output)
		}
		for _, in := range inputs {
			ifi, err := os.Stat(in.Path)
			if err == nil && os.SameFile(fi, ifi) {
				return fmt.Errorf("%w: %s", ErrOutputIsInput, in.Path)
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrDestinationAccess, err)
	}

	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDestinationAccess, err)
	}
	return f.Close()
}

// checkTempSpace warns when the temp filesystem looks too small to hold the
// intermediate results.
func (s *Sorter[T]) checkTempSpace(ctx context.Context, units []InputUnit) {
	var total int64
	for _, u := range units {
		total += u.Size
	}
	dir := s.cfg.tempDir()
	usage, err := helpers.DiskUsage(dir)
	if err != nil {
		logctx.FromContext(ctx).Debug("Unable to read temp dir usage", slog.String("path", dir), slog.Any("error", err))
		return
	}
	if usage.FreeBytes < uint64(total) {
		logctx.FromContext(ctx).Warn("Temp dir may not have room for intermediate files",
			slog.String("path", dir),
			slog.Uint64("freeBytes", usage.FreeBytes),
			slog.Int64("inputBytes", total))
	}
}

// sweepStaleTemps removes intermediate files abandoned by runs that were
// killed before they could clean up.
func (s *Sorter[T]) sweepStaleTemps(ctx context.Context) {
	if s.cfg.StaleTempAge == 0 {
		return
	}
	ll := logctx.FromContext(ctx)
	dir := s.cfg.tempDir()
	removed, err := helpers.RemoveStaleFiles(dir, tempPrefix+"*"+tempSuffix, s.cfg.StaleTempAge)
	for _, p := range removed {
		ll.Info("Removed stale intermediate file", slog.String("path", filepath.Base(p)), slog.String("dir", dir))
	}
	if err != nil {
		ll.Warn("Unable to sweep stale intermediate files", slog.String("dir", dir), slog.Any("error", err))
	}
}

func (s *Sorter[T]) copyFile(ctx context.Context, in InputUnit, output string) (Result, error) {
	r, err := sortedfile.Open(in.Path, s.convert, s.compare, s.cfg.readerOptions())
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = r.Close()
	}()

	return s.writeTarget(ctx, output, func(w *bufio.Writer) (Result, error) {
		return Copy(ctx, r, w)
	})
}

func (s *Sorter[T]) mergeFiles(ctx context.Context, left, right InputUnit, target string) (Result, error) {
	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMergeCanceled, context.Cause(ctx))
	}
	if k := s.cfg.TestingKnobs; k != nil && k.BeforeMerge != nil {
		if err := k.BeforeMerge(ctx, left, right, target); err != nil {
			return Result{}, err
		}
	}

	lr, err := sortedfile.Open(left.Path, s.convert, s.compare, s.cfg.readerOptions())
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = lr.Close()
	}()

	rr, err := sortedfile.Open(right.Path, s.convert, s.compare, s.cfg.readerOptions())
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = rr.Close()
	}()

	return s.writeTarget(ctx, target, func(w *bufio.Writer) (Result, error) {
		return Merge(ctx, lr, rr, s.compare, w)
	})
}

// writeTarget truncates target and hands fn a buffered writer on it.
func (s *Sorter[T]) writeTarget(ctx context.Context, target string, fn func(*bufio.Writer) (Result, error)) (Result, error) {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s for writing: %w", target, err)
	}

	res, err := fn(bufio.NewWriterSize(f, s.cfg.WriteBufferBytes))
	if cerr := f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close %s: %w", target, cerr)
	}

	mctx := context.WithoutCancel(ctx)
	linesWrittenCounter.Add(mctx, res.Lines)
	bytesWrittenCounter.Add(mctx, res.Bytes)
	return res, err
}
