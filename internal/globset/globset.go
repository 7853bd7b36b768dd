// Package globset implements the include/exclude glob filtering an Entry
// Source applies to keys during enumeration.
package globset

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Set is a compiled include/exclude filter. A key is kept iff
// (includes empty OR any include matches) AND no exclude matches.
type Set struct {
	includes []string
	excludes []string
}

// New validates every pattern with doublestar.ValidatePattern and returns a
// compiled Set, or a Config-kind error describing the first bad pattern.
func New(includes, excludes []string) (*Set, error) {
	for _, p := range includes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("globset: invalid include pattern %q", p)
		}
	}
	for _, p := range excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("globset: invalid exclude pattern %q", p)
		}
	}
	return &Set{includes: includes, excludes: excludes}, nil
}

// Match reports whether key passes the filter.
func (s *Set) Match(key string) (bool, error) {
	if len(s.includes) > 0 {
		included := false
		for _, p := range s.includes {
			ok, err := doublestar.Match(p, key)
			if err != nil {
				return false, fmt.Errorf("globset: match include %q against %q: %w", p, key, err)
			}
			if ok {
				included = true
				break
			}
		}
		if !included {
			return false, nil
		}
	}

	for _, p := range s.excludes {
		ok, err := doublestar.Match(p, key)
		if err != nil {
			return false, fmt.Errorf("globset: match exclude %q against %q: %w", p, key, err)
		}
		if ok {
			return false, nil
		}
	}

	return true, nil
}
