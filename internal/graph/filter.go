package graph

import (
	"strings"

	"github.com/giraph/engine/internal/models"
)

// HeaderFilter discards spreadsheet columns that carry metadata instead of grades.
type HeaderFilter struct {
	exact    []string
	prefixes []string
}

// NewHeaderFilter builds a filter from exact names and prefixes; matching
// compares models.FoldName keys.
func NewHeaderFilter(exact, prefixes []string) HeaderFilter {
	f := HeaderFilter{}
	for _, e := range exact {
		f.exact = append(f.exact, models.FoldName(e))
	}
	for _, p := range prefixes {
		f.prefixes = append(f.prefixes, models.FoldName(p))
	}
	return f
}

// Skip reports whether the header should be ignored.
func (f HeaderFilter) Skip(header string) bool {
	h := models.FoldName(header)
	if h == "" {
		return true
	}
	for _, e := range f.exact {
		if h == e {
			return true
		}
	}
	for _, p := range f.prefixes {
		if p != "" && strings.HasPrefix(h, p) {
			return true
		}
	}
	return false
}
