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

package lineconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	for _, line := range []string{"", "banana", "  spaced  ", "42"} {
		v, ok := Text(line)
		assert.True(t, ok)
		assert.Equal(t, line, v)
	}
}

func TestInteger(t *testing.T) {
	tests := []struct {
		line string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"7", 7, true},
		{"-15", -15, true},
		{"+3", 3, true},
		{"9223372036854775807", 9223372036854775807, true},
		{"-9223372036854775808", -9223372036854775808, true},
		{"9223372036854775808", 0, false},
		{"notanumber", 0, false},
		{"", 0, false},
		{" 3", 0, false},
		{"3 ", 0, false},
		{"1.5", 0, false},
		{"0x10", 0, false},
		{"1,000", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Integer(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComparators(t *testing.T) {
	asc := Ascending[int64]()
	desc := Descending[int64]()

	assert.Negative(t, asc(1, 2))
	assert.Positive(t, asc(2, 1))
	assert.Zero(t, asc(5, 5))

	assert.Positive(t, desc(1, 2))
	assert.Negative(t, desc(2, 1))
	assert.Zero(t, desc(5, 5))

	assert.Negative(t, Order[string](true)("apple", "banana"))
	assert.Positive(t, Order[string](false)("apple", "banana"))
}

func TestParseValueType(t *testing.T) {
	vt, err := ParseValueType("Integer")
	require.NoError(t, err)
	assert.Equal(t, ValueInteger, vt)

	vt, err = ParseValueType("string")
	require.NoError(t, err)
	assert.Equal(t, ValueText, vt)

	_, err = ParseValueType("float")
	assert.Error(t, err)

	assert.Equal(t, "text", ValueText.String())
	assert.Equal(t, "integer", ValueInteger.String())
	assert.Equal(t, "ValueType(9)", ValueType(9).String())
}
