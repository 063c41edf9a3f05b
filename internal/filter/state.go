package filter

import "github.com/maxvaer/cmsid/internal/scanner"

// IdentifiedFilter hides every target whose CMS was not identified.
type IdentifiedFilter struct{}

func (IdentifiedFilter) Name() string { return "only-identified" }

func (IdentifiedFilter) ShouldFilter(result *scanner.Result) bool {
	return !result.Identified
}

// InaccessibleFilter hides targets that failed the accessibility check.
type InaccessibleFilter struct{}

func (InaccessibleFilter) Name() string { return "hide-inaccessible" }

func (InaccessibleFilter) ShouldFilter(result *scanner.Result) bool {
	return !result.Accessible
}
