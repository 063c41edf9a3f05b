package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// Stats holds aggregate scan statistics.
type Stats struct {
	Targets      int
	Identified   int
	Inaccessible int
	Duration     time.Duration
}

// Collect counts the outcomes in results.
func Collect(results []scanner.Result, d time.Duration) Stats {
	s := Stats{Targets: len(results), Duration: d}
	for _, r := range results {
		switch {
		case r.Identified:
			s.Identified++
		case !r.Accessible:
			s.Inaccessible++
		}
	}
	return s
}

// Writer is implemented by each output format.
type Writer interface {
	WriteHeader() error
	WriteResult(result *scanner.Result) error
	WriteFooter(stats Stats) error
	Close() error
}

// New builds the writer for format ("text", "json" or "csv"), wrapped in a
// SortedWriter when sortBy is set.
func New(format, outputFile string, noColor, quiet bool, sortBy string) (Writer, error) {
	var (
		w   Writer
		err error
	)
	switch format {
	case "", "text":
		w, err = NewTextWriter(outputFile, noColor, quiet)
	case "json":
		w, err = NewJSONWriter(outputFile)
	case "csv":
		w, err = NewCSVWriter(outputFile)
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or csv)", format)
	}
	if err != nil {
		return nil, err
	}
	if sortBy != "" {
		sw, err := NewSortedWriter(w, sortBy)
		if err != nil {
			w.Close()
			return nil, err
		}
		return sw, nil
	}
	return w, nil
}

// open returns stdout, or a newly created file when outputFile is set.
func open(outputFile string) (io.Writer, io.Closer, error) {
	if outputFile == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f, nil
}
