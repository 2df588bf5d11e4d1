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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/lakemerge/internal/lineconv"
)

func TestRequestFromFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		valueType lineconv.ValueType
		ascending bool
	}{
		{"text default order", []string{"-s", "out", "a", "b"}, lineconv.ValueText, true},
		{"integer descending", []string{"-i", "-d", "out", "a"}, lineconv.ValueInteger, false},
		{"long flags", []string{"--integer", "--ascending", "out", "a"}, lineconv.ValueInteger, true},
		{"combined shorthand", []string{"-sd", "out", "a"}, lineconv.ValueText, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRootCmd()
			require.NoError(t, c.ParseFlags(tt.args))

			req, err := requestFromFlags(c.Flags(), c.Flags().Args())
			require.NoError(t, err)
			assert.Equal(t, tt.valueType, req.ValueType)
			assert.Equal(t, tt.ascending, req.Ascending)
			assert.Equal(t, "out", req.OutputPath)
			assert.NotEmpty(t, req.InputPaths)
		})
	}
}

func TestRequestFromFlagsNeedsInput(t *testing.T) {
	c := newRootCmd()
	require.NoError(t, c.ParseFlags([]string{"-s", "out"}))

	_, err := requestFromFlags(c.Flags(), c.Flags().Args())
	assert.Error(t, err)
}

func TestRootCommandRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no value type", []string{"out", "a"}},
		{"both value types", []string{"-s", "-i", "out", "a"}},
		{"both orders", []string{"-s", "-a", "-d", "out", "a"}},
		{"missing input", []string{"-s", "out"}},
		{"unknown flag", []string{"-s", "-x", "out", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRootCmd()
			c.SetArgs(tt.args)
			c.SetOut(io.Discard)
			c.SetErr(io.Discard)
			assert.Error(t, c.Execute())
		})
	}
}

func TestRootCommandMerges(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(a, []byte("9\n5\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("8\n2\n"), 0o644))

	c := newRootCmd()
	c.SetArgs([]string{"-i", "-d", "--temp-dir", dir, out, a, b})
	c.SetOut(io.Discard)
	c.SetErr(io.Discard)
	require.NoError(t, c.Execute())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "9\n8\n5\n2\n1\n", string(got))
}

func TestRootCommandFailsWithoutValidInputs(t *testing.T) {
	dir := t.TempDir()

	c := newRootCmd()
	c.SetArgs([]string{"-s", filepath.Join(dir, "out.txt"), filepath.Join(dir, "missing.txt")})
	c.SetOut(io.Discard)
	c.SetErr(io.Discard)
	assert.Error(t, c.Execute())
}
