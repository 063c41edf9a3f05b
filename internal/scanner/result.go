package scanner

import (
	"encoding/json"
	"time"
)

// Target is one base URL to identify (scheme + host, no signature path).
type Target struct {
	URL string
}

// Result is the outcome of scanning one target. Identified implies
// Accessible, and CMS is non-empty exactly when Identified is true.
type Result struct {
	URL         string        `json:"url"`
	Accessible  bool          `json:"accessible"`
	Identified  bool          `json:"identified"`
	CMS         string        `json:"cms,omitempty"`
	MatchedPath string        `json:"matched_path,omitempty"`
	Title       string        `json:"title,omitempty"`
	Probes      int           `json:"probes"`
	Error       string        `json:"error,omitempty"` // why the pre-check failed
	Duration    time.Duration `json:"-"`
}

// Seconds returns the wall-clock duration in fractional seconds.
func (r Result) Seconds() float64 {
	return r.Duration.Seconds()
}

type resultJSON struct {
	resultAlias
	DurationSeconds float64 `json:"duration_seconds"`
}

type resultAlias Result

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{resultAlias: resultAlias(r), DurationSeconds: r.Seconds()})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result(raw.resultAlias)
	r.Duration = time.Duration(raw.DurationSeconds * float64(time.Second))
	return nil
}
