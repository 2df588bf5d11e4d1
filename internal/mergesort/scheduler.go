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
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/lakemerge/internal/logctx"
)

var errRunAborted = errors.New("merge run aborted")

// mergeSummary is what a scheduler run reports back to the Sorter.
type mergeSummary struct {
	Merges  int
	Dropped int64
	Final   Result
}

// scheduler merges a set of files pairwise, always taking the two smallest
// pending units, until one unit remains at the destination path.
//
// mu guards pending, failed, errs, merges, dropped and final. temps is only
// touched by the goroutine running run.
type scheduler[T any] struct {
	sorter *Sorter[T]
	dest   string
	runID  string

	mu      sync.Mutex
	cond    *sync.Cond
	pending pendingSet
	failed  bool
	errs    *multierror.Error
	merges  int
	dropped int64
	final   Result

	temps []string
}

func newScheduler[T any](s *Sorter[T], dest, runID string, inputs []InputUnit) *scheduler[T] {
	sc := &scheduler[T]{
		sorter:  s,
		dest:    dest,
		runID:   runID,
		pending: append(make(pendingSet, 0, len(inputs)), inputs...),
	}
	sc.cond = sync.NewCond(&sc.mu)
	heap.Init(&sc.pending)
	return sc
}

// run performs exactly len(inputs)-1 merges unless something fails. Temporary
// files are removed before it returns, whatever the outcome.
func (sc *scheduler[T]) run(parent context.Context) (mergeSummary, error) {
	ll := logctx.FromContext(parent)

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	// Cancellation from outside counts as a failure and must wake the loop.
	stop := context.AfterFunc(ctx, func() { sc.fail(nil) })
	defer stop()

	g := &errgroup.Group{}
	g.SetLimit(sc.sorter.cfg.Workers)

	for remaining := sc.pending.Len() - 1; remaining > 0; remaining-- {
		left, right, ok := sc.takePair()
		if !ok {
			break
		}

		final := remaining == 1
		target := sc.dest
		if !final {
			tmp, err := sc.createTemp()
			if err != nil {
				sc.fail(err)
				cancel(err)
				break
			}
			target = tmp
		}

		if k := sc.sorter.cfg.TestingKnobs; k != nil && k.OnDispatch != nil {
			k.OnDispatch(left, right, target, final)
		}
		ll.Debug("Dispatching merge",
			slog.String("left", left.Path),
			slog.Int64("leftSize", left.Size),
			slog.String("right", right.Path),
			slog.Int64("rightSize", right.Size),
			slog.String("target", target),
			slog.Int("remaining", remaining))

		g.Go(func() error {
			return sc.mergePair(ctx, cancel, left, right, target)
		})
	}

	if sc.hasFailed() {
		cancel(errRunAborted)
	}
	// Failures are collected in sc.errs; the group's own error adds nothing.
	_ = g.Wait()

	sc.removeTemps(parent)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	summary := mergeSummary{Merges: sc.merges, Dropped: sc.dropped, Final: sc.final}
	if !sc.failed {
		return summary, nil
	}
	if err := sc.errs.ErrorOrNil(); err != nil {
		return summary, err
	}
	return summary, fmt.Errorf("%w: %w", ErrMergeCanceled, context.Cause(ctx))
}

// takePair blocks until two units are pending or the run has failed.
func (sc *scheduler[T]) takePair() (InputUnit, InputUnit, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for sc.pending.Len() < 2 && !sc.failed {
		sc.cond.Wait()
	}
	if sc.failed {
		return InputUnit{}, InputUnit{}, false
	}

	left := heap.Pop(&sc.pending).(InputUnit)
	right := heap.Pop(&sc.pending).(InputUnit)
	return left, right, true
}

// complete makes the output of a finished merge available for scheduling.
func (sc *scheduler[T]) complete(unit InputUnit, res Result, final bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.merges++
	sc.dropped += res.Dropped()
	if final {
		sc.final = res
	}
	heap.Push(&sc.pending, unit)
	sc.cond.Broadcast()
}

// fail marks the run as failed and wakes the scheduling loop. err may be nil
// when the failure is a cancellation.
func (sc *scheduler[T]) fail(err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if err != nil {
		sc.errs = multierror.Append(sc.errs, err)
	}
	sc.failed = true
	sc.cond.Broadcast()
}

func (sc *scheduler[T]) hasFailed() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.failed
}

func (sc *scheduler[T]) mergePair(ctx context.Context, cancel context.CancelCauseFunc, left, right InputUnit, target string) error {
	ll := logctx.FromContext(ctx)
	start := time.Now()
	final := target == sc.dest

	ctx, span := tracer.Start(ctx, "lakemerge.merge_pair")
	defer span.End()
	span.SetAttributes(
		attribute.String("left", left.Path),
		attribute.String("right", right.Path),
		attribute.Int64("input_bytes", left.Size+right.Size),
		attribute.Bool("final", final),
	)

	res, err := sc.sorter.mergeFiles(ctx, left, right, target)

	outcome := "success"
	switch {
	case err == nil:
		sc.complete(InputUnit{Path: target, Size: res.Bytes}, res, final)
		ll.Debug("Merge finished",
			slog.String("target", target),
			slog.Int64("lines", res.Lines),
			slog.Int64("bytes", res.Bytes),
			slog.Duration("duration", time.Since(start)))
	case errors.Is(err, ErrMergeCanceled):
		outcome = "canceled"
		err = nil
		ll.Debug("Merge canceled", slog.String("target", target))
	default:
		outcome = "failed"
		merr := &MergeError{Left: left.Path, Right: right.Path, Target: target, Err: err}
		ll.Error("Merge failed", slog.Any("error", merr))
		span.RecordError(merr)
		span.SetStatus(codes.Error, "merge failed")
		sc.fail(merr)
		cancel(merr)
		err = merr
	}

	span.SetAttributes(attribute.String("outcome", outcome), attribute.Int64("output_bytes", res.Bytes))
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	mergesCounter.Add(context.WithoutCancel(ctx), 1, attrs)
	mergeDuration.Record(context.WithoutCancel(ctx), time.Since(start).Seconds(), attrs)
	return err
}

func (sc *scheduler[T]) createTemp() (string, error) {
	f, err := os.CreateTemp(sc.sorter.cfg.tempDir(), tempPrefix+sc.runID+"-*"+tempSuffix)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	sc.temps = append(sc.temps, name)
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file %s: %w", name, err)
	}
	return name, nil
}

// removeTemps deletes every intermediate file. Failures are logged only;
// they do not change the outcome of the run.
func (sc *scheduler[T]) removeTemps(ctx context.Context) {
	var errs *multierror.Error
	for _, name := range sc.temps {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = multierror.Append(errs, err)
		}
	}
	sc.temps = nil

	if err := errs.ErrorOrNil(); err != nil {
		logctx.FromContext(ctx).Warn("Failed to remove temporary files", slog.Any("error", err))
	}
}
