package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// Report is the document written by JSONWriter and returned by the HTTP API.
type Report struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"started_at"`
	Results   []scanner.Result `json:"results"`
	Summary   *Summary         `json:"summary,omitempty"`
}

// Summary is the JSON form of Stats.
type Summary struct {
	Targets         int     `json:"targets"`
	Identified      int     `json:"identified"`
	Inaccessible    int     `json:"inaccessible"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Summary converts s for a Report.
func (s Stats) Summary() *Summary {
	return &Summary{
		Targets:         s.Targets,
		Identified:      s.Identified,
		Inaccessible:    s.Inaccessible,
		DurationSeconds: s.Duration.Seconds(),
	}
}

// NewReport starts a report with a fresh run id.
func NewReport() *Report {
	return &Report{ID: uuid.NewString(), StartedAt: time.Now().UTC(), Results: []scanner.Result{}}
}

// JSONWriter buffers results and writes a single Report at the end.
type JSONWriter struct {
	w      io.Writer
	closer io.Closer
	report *Report
}

// NewJSONWriter creates a JSON output writer.
func NewJSONWriter(outputFile string) (*JSONWriter, error) {
	w, closer, err := open(outputFile)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{w: w, closer: closer, report: NewReport()}, nil
}

// RunID returns the id recorded in the report.
func (j *JSONWriter) RunID() string { return j.report.ID }

func (j *JSONWriter) WriteHeader() error { return nil }

func (j *JSONWriter) WriteResult(result *scanner.Result) error {
	j.report.Results = append(j.report.Results, *result)
	return nil
}

func (j *JSONWriter) WriteFooter(stats Stats) error {
	j.report.Summary = stats.Summary()
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(j.report)
}

func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
