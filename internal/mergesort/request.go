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
	"context"
	"errors"
	"fmt"

	"github.com/cardinalhq/lakemerge/internal/lineconv"
)

// Request is a validated merge request as produced by the command line.
type Request struct {
	OutputPath string
	InputPaths []string
	Ascending  bool
	ValueType  lineconv.ValueType
}

// Validate checks the shape of the request; it does not touch the filesystem.
func (r Request) Validate() error {
	var errs []error
	if r.OutputPath == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	if len(r.InputPaths) == 0 {
		errs = append(errs, errors.New("at least one input path is required"))
	}
	switch r.ValueType {
	case lineconv.ValueText, lineconv.ValueInteger:
	default:
		errs = append(errs, fmt.Errorf("unsupported value type %s", r.ValueType))
	}
	return errors.Join(errs...)
}

// MergeSortedFiles picks the converter and comparator for req and runs the merge.
func MergeSortedFiles(ctx context.Context, req Request, cfg Config) (Stats, error) {
	if err := req.Validate(); err != nil {
		return Stats{}, fmt.Errorf("invalid request: %w", err)
	}

	switch req.ValueType {
	case lineconv.ValueInteger:
		return mergeAs(ctx, req, cfg, lineconv.Integer, lineconv.Order[int64](req.Ascending))
	default:
		return mergeAs(ctx, req, cfg, lineconv.Text, lineconv.Order[string](req.Ascending))
	}
}

func mergeAs[T any](ctx context.Context, req Request, cfg Config, convert lineconv.Converter[T], compare lineconv.Comparator[T]) (Stats, error) {
	s, err := NewSorter(convert, compare, cfg)
	if err != nil {
		return Stats{}, err
	}
	return s.MergeSortedFiles(ctx, req.OutputPath, req.InputPaths)
}
