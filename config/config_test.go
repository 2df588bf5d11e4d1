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

package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/lakemerge/internal/mergesort"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	want := mergesort.DefaultConfig()
	assert.Equal(t, want.Workers, cfg.Merge.Workers)
	assert.Equal(t, want.MaxLineBytes, cfg.Merge.MaxLineBytes)
	assert.Equal(t, "", cfg.Merge.TempDir)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LAKEMERGE_MERGE_WORKERS", "3")
	t.Setenv("LAKEMERGE_MERGE_TEMP_DIR", "/scratch")
	t.Setenv("LAKEMERGE_MERGE_WRITE_BUFFER_BYTES", "8192")
	t.Setenv("LAKEMERGE_MERGE_STALE_TEMP_AGE", "90m")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Merge.Workers)
	assert.Equal(t, "/scratch", cfg.Merge.TempDir)
	assert.Equal(t, 8192, cfg.Merge.WriteBufferBytes)
	assert.Equal(t, 90*time.Minute, cfg.Merge.StaleTempAge)
}

func TestLoadFlagsWinOverEnv(t *testing.T) {
	t.Setenv("LAKEMERGE_MERGE_WORKERS", "3")
	t.Setenv("LAKEMERGE_MERGE_TEMP_DIR", "/scratch")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("workers", 0, "")
	fs.String("temp-dir", "", "")
	require.NoError(t, fs.Parse([]string{"--workers", "7"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Merge.Workers)
	assert.Equal(t, "/scratch", cfg.Merge.TempDir, "unset flags must not override")
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("LAKEMERGE_MERGE_WORKERS", "0")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}
