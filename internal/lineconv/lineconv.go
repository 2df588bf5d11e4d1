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

// Package lineconv maps raw text lines to typed values and orders them.
//
// A run selects one value type and one direction up front; the resulting
// Converter and Comparator are handed to every reader and merger explicitly.
package lineconv

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Converter turns a raw line into a typed value. ok is false when the line
// is not a valid record for the value type; callers drop and count it.
type Converter[T any] func(line string) (value T, ok bool)

// Comparator returns a negative number when a sorts before b, zero when they
// are equivalent, and a positive number otherwise.
type Comparator[T any] func(a, b T) int

// ValueType selects how lines are interpreted for a run.
type ValueType int

const (
	ValueText ValueType = iota
	ValueInteger
)

func (v ValueType) String() string {
	switch v {
	case ValueText:
		return "text"
	case ValueInteger:
		return "integer"
	default:
		return fmt.Sprintf("ValueType(%d)", int(v))
	}
}

// ParseValueType accepts "text"/"string" and "integer"/"int", case-insensitive.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "s":
		return ValueText, nil
	case "integer", "int", "i":
		return ValueInteger, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", s)
	}
}

// Text is the identity conversion; every line is valid.
func Text(line string) (string, bool) {
	return line, true
}

// Integer parses a base-10 signed 64-bit integer. Surrounding whitespace is
// not tolerated, matching a strict locale-independent parse.
func Integer(line string) (int64, bool) {
	v, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Ascending orders values from smallest to largest.
func Ascending[T cmp.Ordered]() Comparator[T] {
	return cmp.Compare[T]
}

// Descending orders values from largest to smallest.
func Descending[T cmp.Ordered]() Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(b, a)
	}
}

// Order returns Ascending or Descending.
func Order[T cmp.Ordered](ascending bool) Comparator[T] {
	if ascending {
		return Ascending[T]()
	}
	return Descending[T]()
}
