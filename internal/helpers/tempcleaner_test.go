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

package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveStaleFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)

	stale := filepath.Join(dir, "lakemerge-run1-1.tmp")
	fresh := filepath.Join(dir, "lakemerge-run2-1.tmp")
	other := filepath.Join(dir, "keep.tmp")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
	}
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	staleDir := filepath.Join(dir, "lakemerge-dir.tmp")
	require.NoError(t, os.Mkdir(staleDir, 0o755))
	require.NoError(t, os.Chtimes(staleDir, old, old))

	removed, err := RemoveStaleFiles(dir, "lakemerge-*.tmp", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, removed)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
	assert.DirExists(t, staleDir)
}

func TestRemoveStaleFilesMissingDir(t *testing.T) {
	removed, err := RemoveStaleFiles(filepath.Join(t.TempDir(), "nope"), "*.tmp", time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
