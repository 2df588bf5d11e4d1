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
	"os"
	"runtime"
	"time"

	"github.com/cardinalhq/lakemerge/internal/sortedfile"
)

// Config controls how a merge run uses the machine.
type Config struct {
	// Workers bounds the number of two-way merges running at once.
	Workers int `mapstructure:"workers"`
	// TempDir holds intermediate merge results. Empty means os.TempDir().
	TempDir          string `mapstructure:"temp_dir"`
	ReadBufferBytes  int    `mapstructure:"read_buffer_bytes"`
	MaxLineBytes     int    `mapstructure:"max_line_bytes"`
	WriteBufferBytes int    `mapstructure:"write_buffer_bytes"`
	// StaleTempAge is how old an intermediate file left behind by a killed
	// run must be before it is swept. Zero disables sweeping.
	StaleTempAge time.Duration `mapstructure:"stale_temp_age"`

	TestingKnobs *TestingKnobs `mapstructure:"-"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Workers:          runtime.GOMAXPROCS(0),
		ReadBufferBytes:  sortedfile.DefaultReadBufferBytes,
		MaxLineBytes:     sortedfile.DefaultMaxLineBytes,
		WriteBufferBytes: 64 * 1024,
		StaleTempAge:     24 * time.Hour,
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.ReadBufferBytes <= 0 {
		errs = append(errs, fmt.Errorf("read_buffer_bytes must be positive, got %d", c.ReadBufferBytes))
	}
	if c.MaxLineBytes < c.ReadBufferBytes {
		errs = append(errs, fmt.Errorf("max_line_bytes (%d) must not be smaller than read_buffer_bytes (%d)",
			c.MaxLineBytes, c.ReadBufferBytes))
	}
	if c.WriteBufferBytes <= 0 {
		errs = append(errs, fmt.Errorf("write_buffer_bytes must be positive, got %d", c.WriteBufferBytes))
	}
	if c.StaleTempAge < 0 {
		errs = append(errs, fmt.Errorf("stale_temp_age must not be negative, got %s", c.StaleTempAge))
	}
	return errors.Join(errs...)
}

func (c Config) tempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}

func (c Config) readerOptions() sortedfile.Options {
	return sortedfile.Options{
		ReadBufferBytes: c.ReadBufferBytes,
		MaxLineBytes:    c.MaxLineBytes,
	}
}
