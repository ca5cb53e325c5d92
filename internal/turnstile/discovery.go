package turnstile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Discover returns the regular files in dir matching pattern, sorted by name
// so weekly files are consumed in publication order. Finding nothing is fatal.
func Discover(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &FatalInputError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &FatalInputError{Path: dir, Err: fmt.Errorf("%s is not a directory", dir)}
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, &FatalInputError{Path: dir, Err: fmt.Errorf("bad pattern %q: %w", pattern, err)}
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		files = append(files, m)
	}

	if len(files) == 0 {
		return nil, &FatalInputError{Path: filepath.Join(dir, pattern), Err: ErrNoInputFiles}
	}

	sort.Strings(files)
	return files, nil
}
