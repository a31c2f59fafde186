// Package corpus builds the numbered document paths used by the command line:
// a pattern "spam" with count 3 names spam1.txt, spam2.txt and spam3.txt.
package corpus

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
)

// ErrInvalidCount is returned for counts that are not positive decimal integers
var ErrInvalidCount = errors.New("corpus: count must be a positive integer without leading zeros")

// Pattern names a numbered run of documents
type Pattern struct {
	Prefix string
	Count  int
}

// ParseCount parses a document count. Only digits are accepted, the value
// must be positive and must not start with 0.
func ParseCount(s string) (int, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCount, s)
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, s)
	}
	return n, nil
}

// Names returns the file names of p without a directory
func (p Pattern) Names(suffix string) []string {
	names := make([]string, p.Count)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d%s", p.Prefix, i+1, suffix)
	}
	return names
}

// Paths returns the file names of p inside dir. An empty dir yields bare names.
func (p Pattern) Paths(dir, suffix string) []string {
	names := p.Names(suffix)
	if dir == "" {
		return names
	}
	for i, name := range names {
		names[i] = filepath.Join(dir, name)
	}
	return names
}

// Groups returns the paths of every pattern, one group per pattern
func Groups(dir, suffix string, patterns ...Pattern) [][]string {
	groups := make([][]string, len(patterns))
	for i, p := range patterns {
		groups[i] = p.Paths(dir, suffix)
	}
	return groups
}
