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
	"errors"
	"fmt"
)

var (
	// ErrNoValidInputs means every requested input was skipped.
	ErrNoValidInputs = errors.New("no valid input files")
	// ErrDestinationAccess means the output path is a directory or cannot be opened for writing.
	ErrDestinationAccess = errors.New("destination is not writable")
	// ErrOutputIsInput means the output path names one of the inputs.
	ErrOutputIsInput = errors.New("destination is also an input file")
	// ErrMergeCanceled is returned by a merge that stopped early because its
	// context was canceled. Output written so far is incomplete.
	ErrMergeCanceled = errors.New("merge canceled")
)

// MergeError is a fatal failure of one two-way merge.
type MergeError struct {
	Left   string
	Right  string
	Target string
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merging %s and %s into %s: %v", e.Left, e.Right, e.Target, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}
