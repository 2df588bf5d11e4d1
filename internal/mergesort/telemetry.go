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
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/cardinalhq/lakemerge/internal/mergesort")

var (
	mergesCounter       otelmetric.Int64Counter
	linesWrittenCounter otelmetric.Int64Counter
	bytesWrittenCounter otelmetric.Int64Counter
	mergeDuration       otelmetric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/lakemerge/internal/mergesort")

	var err error
	mergesCounter, err = meter.Int64Counter(
		"lakemerge.merge.count",
		otelmetric.WithDescription("Number of two-way merges finished, by outcome"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create merge.count counter: %w", err))
	}

	linesWrittenCounter, err = meter.Int64Counter(
		"lakemerge.merge.lines.out",
		otelmetric.WithDescription("Number of lines written by merges and copies"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create merge.lines.out counter: %w", err))
	}

	bytesWrittenCounter, err = meter.Int64Counter(
		"lakemerge.merge.bytes.out",
		otelmetric.WithUnit("By"),
		otelmetric.WithDescription("Number of bytes written by merges and copies"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create merge.bytes.out counter: %w", err))
	}

	mergeDuration, err = meter.Float64Histogram(
		"lakemerge.merge.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("Duration in seconds of a single two-way merge"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create merge.duration histogram: %w", err))
	}
}
