package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// CSVWriter writes results in CSV format.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter creates a CSV output writer.
func NewCSVWriter(outputFile string) (*CSVWriter, error) {
	w, closer, err := open(outputFile)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{w: csv.NewWriter(w), closer: closer}, nil
}

func (c *CSVWriter) WriteHeader() error {
	return c.w.Write([]string{"url", "accessible", "identified", "cms", "matched_path", "duration_seconds", "title", "error"})
}

func (c *CSVWriter) WriteResult(result *scanner.Result) error {
	return c.w.Write([]string{
		result.URL,
		strconv.FormatBool(result.Accessible),
		strconv.FormatBool(result.Identified),
		result.CMS,
		result.MatchedPath,
		strconv.FormatFloat(result.Seconds(), 'f', 2, 64),
		result.Title,
		result.Error,
	})
}

func (c *CSVWriter) WriteFooter(_ Stats) error {
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
