package output

import (
	"fmt"
	"sort"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// SortedWriter buffers results and replays them sorted by a field when
// WriteFooter is called. It wraps any other Writer.
type SortedWriter struct {
	inner   Writer
	sortBy  string
	results []*scanner.Result
}

// NewSortedWriter wraps inner and buffers results for sorted replay.
// sortBy is one of "url", "cms" or "duration".
func NewSortedWriter(inner Writer, sortBy string) (*SortedWriter, error) {
	switch sortBy {
	case "url", "cms", "duration":
	default:
		return nil, fmt.Errorf("unknown sort key %q (want url, cms or duration)", sortBy)
	}
	return &SortedWriter{inner: inner, sortBy: sortBy}, nil
}

func (w *SortedWriter) WriteHeader() error {
	return w.inner.WriteHeader()
}

func (w *SortedWriter) WriteResult(result *scanner.Result) error {
	cpy := *result
	w.results = append(w.results, &cpy)
	return nil
}

func (w *SortedWriter) WriteFooter(stats Stats) error {
	sort.SliceStable(w.results, func(i, j int) bool {
		a, b := w.results[i], w.results[j]
		switch w.sortBy {
		case "cms":
			// Identified targets first, grouped by name.
			if a.Identified != b.Identified {
				return a.Identified
			}
			return a.CMS < b.CMS
		case "duration":
			return a.Duration < b.Duration
		default:
			return a.URL < b.URL
		}
	})
	for _, r := range w.results {
		if err := w.inner.WriteResult(r); err != nil {
			return err
		}
	}
	return w.inner.WriteFooter(stats)
}

func (w *SortedWriter) Close() error {
	return w.inner.Close()
}
