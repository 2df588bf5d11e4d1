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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cardinalhq/oteltools/pkg/telemetry"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/host"
	iruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/lakemerge/internal/helpers"
	"github.com/cardinalhq/lakemerge/internal/idgen"
	"github.com/cardinalhq/lakemerge/internal/logctx"
)

var (
	commonAttributes attribute.Set

	meter = otel.Meter("github.com/cardinalhq/lakemerge")

	myInstanceID int64

	runDuration metric.Float64Histogram
)

// setupTelemetry configures the default logger and, when enabled, the
// OpenTelemetry SDK. The returned context is cancelled on SIGINT/SIGTERM
// and carries the configured logger.
func setupTelemetry(servicename string, addlAttrs *attribute.Set) (context.Context, func() error, error) {
	myInstanceID = idgen.InstanceID()

	// Catch signals to stop the process as gracefully as possible.
	doneCtx, doneCancel := handleSignals(context.Background())

	setupGlobalMetrics()

	attrs := []attribute.KeyValue{
		attribute.Int64("instanceID", myInstanceID),
	}
	if addlAttrs != nil {
		iter := addlAttrs.Iter()
		for iter.Next() {
			attrs = append(attrs, iter.Attribute())
		}
	}
	commonAttributes = attribute.NewSet(attrs...)

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if helpers.AnyBoolEnv("DEBUG", "LAKEMERGE_DEBUG") {
		opts.Level = slog.LevelDebug
	}

	handlers := []slog.Handler{slog.NewTextHandler(os.Stderr, opts)}
	var closers []func() error

	if path := os.Getenv("LAKEMERGE_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			doneCancel()
			return doneCtx, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closers = append(closers, f.Close)
	}

	otlp := os.Getenv("OTEL_SERVICE_NAME") != "" && helpers.GetBoolEnv("ENABLE_OTLP_TELEMETRY", false)
	if otlp {
		handlers = append(handlers, otelslog.NewHandler(servicename))
	}

	logger := slog.New(slogmulti.Fanout(handlers...)).With(
		slog.String("service", servicename),
		slog.Int64("instanceID", myInstanceID),
	)
	slog.SetDefault(logger)
	doneCtx = logctx.WithLogger(doneCtx, logger)

	if otlp {
		slog.Debug("OpenTelemetry exporting enabled")
		otelShutdown, err := telemetry.SetupOTelSDK(doneCtx)
		if err != nil {
			doneCancel()
			return doneCtx, nil, fmt.Errorf("failed to setup OpenTelemetry SDK: %w", err)
		}

		if err := iruntime.Start(iruntime.WithMinimumReadMemStatsInterval(time.Second * 10)); err != nil {
			slog.Warn("failed to start runtime metrics", "error", err.Error())
		}

		if err := host.Start(); err != nil {
			slog.Warn("failed to start host metrics", "error", err.Error())
		}

		closers = append([]func() error{func() error {
			slog.Debug("Shutting down OpenTelemetry SDK")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return otelShutdown(ctx)
		}}, closers...)
	}

	f := func() error {
		defer doneCancel()
		var firstErr error
		for _, closeFn := range closers {
			if err := closeFn(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	return doneCtx, f, nil
}

func setupGlobalMetrics() {
	m, err := meter.Float64Histogram(
		"lakemerge.run.duration",
		metric.WithUnit("s"),
		metric.WithDescription("The duration in seconds of a complete merge run"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create run.duration histogram: %w", err))
	}
	runDuration = m
}

func recordRun(ctx context.Context, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	runDuration.Record(context.WithoutCancel(ctx), elapsed.Seconds(),
		metric.WithAttributeSet(commonAttributes),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
