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
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/lakemerge/internal/lineconv"
	"github.com/cardinalhq/lakemerge/internal/logctx"
)

func writeLines(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	if s == "" {
		return nil
	}
	require.True(t, strings.HasSuffix(s, "\n"), "output must end with a newline")
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// logContext returns a context whose logger writes into the returned buffer.
func logContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	ll := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logctx.WithLogger(context.Background(), ll), &buf
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TempDir = t.TempDir()
	cfg.Workers = 4
	return cfg
}

func intSorter(t *testing.T, cfg Config, ascending bool) *Sorter[int64] {
	t.Helper()
	s, err := NewSorter(lineconv.Integer, lineconv.Order[int64](ascending), cfg)
	require.NoError(t, err)
	return s
}

func textSorter(t *testing.T, cfg Config, ascending bool) *Sorter[string] {
	t.Helper()
	s, err := NewSorter(lineconv.Text, lineconv.Order[string](ascending), cfg)
	require.NoError(t, err)
	return s
}

func requireDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Empty(t, names, "temporary files left behind")
}

// normalize mirrors what a reader keeps from one file.
func normalize[T any](lines []string, convert lineconv.Converter[T], compare lineconv.Comparator[T]) []string {
	var out []string
	var prev T
	have := false
	for _, l := range lines {
		v, ok := convert(l)
		if !ok {
			continue
		}
		if have && compare(prev, v) > 0 {
			continue
		}
		out = append(out, l)
		prev = v
		have = true
	}
	return out
}
