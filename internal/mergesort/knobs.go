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

import "context"

// TestingKnobs lets tests observe and interfere with the scheduler.
type TestingKnobs struct {
	// OnDispatch, if set, is called from the scheduling loop each time a pair
	// is handed to a worker, before the worker starts.
	OnDispatch func(left, right InputUnit, target string, final bool)

	// BeforeMerge, if set, runs on the worker before the merge starts.
	// Returning an error fails the merge.
	BeforeMerge func(ctx context.Context, left, right InputUnit, target string) error
}
