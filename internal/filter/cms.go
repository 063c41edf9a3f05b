package filter

import (
	"strings"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// CMSMatchFilter only passes results identified as one of the given CMS
// names (case-insensitive).
type CMSMatchFilter struct {
	names map[string]struct{}
}

// NewCMSMatchFilter creates a filter from a comma-separated list of names.
func NewCMSMatchFilter(list string) *CMSMatchFilter {
	f := &CMSMatchFilter{names: make(map[string]struct{})}
	for _, n := range strings.Split(list, ",") {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			f.names[n] = struct{}{}
		}
	}
	return f
}

func (f *CMSMatchFilter) Name() string { return "match-cms" }

func (f *CMSMatchFilter) ShouldFilter(result *scanner.Result) bool {
	if !result.Identified {
		return true
	}
	_, ok := f.names[strings.ToLower(result.CMS)]
	return !ok
}
