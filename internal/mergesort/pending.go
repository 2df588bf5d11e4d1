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

// InputUnit is a file waiting to take part in a merge: an original input
// or an intermediate result. Units are replaced, never modified.
type InputUnit struct {
	Path string
	Size int64
}

// pendingSet is a min-heap of units by size, for use with container/heap.
// Ties fall back to path so the order is deterministic.
type pendingSet []InputUnit

func (p pendingSet) Len() int { return len(p) }

func (p pendingSet) Less(i, j int) bool {
	if p[i].Size != p[j].Size {
		return p[i].Size < p[j].Size
	}
	return p[i].Path < p[j].Path
}

func (p pendingSet) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p *pendingSet) Push(x any) { *p = append(*p, x.(InputUnit)) }

func (p *pendingSet) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	*p = old[:n-1]
	return x
}
