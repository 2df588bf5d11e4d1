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
	"time"

	"github.com/hashicorp/go-multierror"
)

// RemoveStaleFiles deletes regular files in dir whose names match pattern
// and that have not been modified for at least olderThan. It returns the
// paths it removed. Files that vanish while sweeping are ignored.
func RemoveStaleFiles(dir, pattern string, olderThan time.Duration) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)
	var removed []string
	var errs *multierror.Error
	for _, path := range matches {
		fi, err := os.Lstat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = multierror.Append(errs, err)
			}
			continue
		}
		if !fi.Mode().IsRegular() || fi.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				errs = multierror.Append(errs, err)
			}
			continue
		}
		removed = append(removed, path)
	}
	return removed, errs.ErrorOrNil()
}
