package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maxvaer/cmsid/internal/scanner"
)

func sampleResults() []scanner.Result {
	return []scanner.Result{
		{URL: "http://c.example", Accessible: true, Identified: true, CMS: "WordPress", MatchedPath: "/robots.txt", Title: "Blog", Probes: 1, Duration: 1500 * time.Millisecond},
		{URL: "http://a.example", Accessible: false, Error: "HTTP 503", Duration: 20 * time.Millisecond},
		{URL: "http://b.example", Accessible: true, Probes: 12, Duration: 700 * time.Millisecond},
	}
}

// recorder is a Writer that remembers the order of WriteResult calls.
type recorder struct {
	urls   []string
	footer *Stats
}

func (r *recorder) WriteHeader() error { return nil }
func (r *recorder) WriteResult(res *scanner.Result) error {
	r.urls = append(r.urls, res.URL)
	return nil
}
func (r *recorder) WriteFooter(s Stats) error { r.footer = &s; return nil }
func (r *recorder) Close() error              { return nil }

func TestCollect(t *testing.T) {
	s := Collect(sampleResults(), time.Second)
	if s.Targets != 3 || s.Identified != 1 || s.Inaccessible != 1 {
		t.Errorf("Collect = %+v", s)
	}
}

func TestTextWriter(t *testing.T) {
	var out, footer bytes.Buffer
	w := &TextWriter{w: &out, footer: &footer, noColor: true}
	for _, r := range sampleResults() {
		r := r
		if err := w.WriteResult(&r); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.WriteFooter(Collect(sampleResults(), 2*time.Second)); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	checks := []struct {
		line  string
		wants []string
	}{
		{lines[0], []string{"WordPress", "1.50s", "http://c.example", "/robots.txt", "[Blog]"}},
		{lines[1], []string{"inaccessible", "0.02s", "http://a.example", "(HTTP 503)"}},
		{lines[2], []string{"unidentified", "0.70s", "http://b.example"}},
	}
	for _, c := range checks {
		for _, want := range c.wants {
			if !strings.Contains(c.line, want) {
				t.Errorf("line %q missing %q", c.line, want)
			}
		}
	}
	if strings.Contains(out.String(), "\033[") {
		t.Error("expected no ANSI codes with noColor")
	}
	if !strings.Contains(footer.String(), "Completed: 3 targets | Identified: 1 | Inaccessible: 1") {
		t.Errorf("footer = %q", footer.String())
	}
}

func TestTextWriterInterrupted(t *testing.T) {
	var out bytes.Buffer
	w := &TextWriter{w: &out, footer: &bytes.Buffer{}, noColor: true}
	r := scanner.Result{URL: "http://d.example", Accessible: true, Probes: 1, Error: "context canceled"}
	if err := w.WriteResult(&r); err != nil {
		t.Fatal(err)
	}
	line := out.String()
	if !strings.Contains(line, "interrupted") || !strings.Contains(line, "(context canceled)") {
		t.Errorf("line = %q", line)
	}
	if strings.Contains(line, "unidentified") {
		t.Error("cut-short scan reported as unidentified")
	}
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range sampleResults() {
		r := r
		w.WriteResult(&r)
	}
	if err := w.WriteFooter(Collect(sampleResults(), time.Second)); err != nil {
		t.Fatal(err)
	}
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, data)
	}
	if got.ID == "" || got.ID != w.RunID() {
		t.Errorf("id = %q, want %q", got.ID, w.RunID())
	}
	if len(got.Results) != 3 || got.Results[0].URL != "http://c.example" || got.Results[1].URL != "http://a.example" {
		t.Errorf("results out of order: %+v", got.Results)
	}
	if got.Results[0].Duration != 1500*time.Millisecond {
		t.Errorf("duration = %s", got.Results[0].Duration)
	}
	if got.Summary == nil || got.Summary.Identified != 1 {
		t.Errorf("summary = %+v", got.Summary)
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	w.WriteHeader()
	for _, r := range sampleResults() {
		r := r
		w.WriteResult(&r)
	}
	if err := w.WriteFooter(Stats{}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows", len(rows))
	}
	if strings.Join(rows[0], ",") != "url,accessible,identified,cms,matched_path,duration_seconds,title,error" {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"http://c.example", "true", "true", "WordPress", "/robots.txt", "1.50", "Blog", ""}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Errorf("row 1 col %d = %q, want %q", i, rows[1][i], want[i])
		}
	}
	if rows[2][7] != "HTTP 503" {
		t.Errorf("error column = %q", rows[2][7])
	}
}

func TestSortedWriter(t *testing.T) {
	tests := []struct {
		sortBy string
		want   []string
	}{
		{"url", []string{"http://a.example", "http://b.example", "http://c.example"}},
		{"cms", []string{"http://c.example", "http://a.example", "http://b.example"}},
		{"duration", []string{"http://a.example", "http://b.example", "http://c.example"}},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			rec := &recorder{}
			w, err := NewSortedWriter(rec, tt.sortBy)
			if err != nil {
				t.Fatal(err)
			}
			for _, r := range sampleResults() {
				r := r
				w.WriteResult(&r)
			}
			if len(rec.urls) != 0 {
				t.Fatal("results written before footer")
			}
			if err := w.WriteFooter(Stats{Targets: 3}); err != nil {
				t.Fatal(err)
			}
			if strings.Join(rec.urls, " ") != strings.Join(tt.want, " ") {
				t.Errorf("order = %v, want %v", rec.urls, tt.want)
			}
			if rec.footer == nil || rec.footer.Targets != 3 {
				t.Error("footer not forwarded")
			}
		})
	}
}

func TestNewRejectsUnknown(t *testing.T) {
	if _, err := New("xml", "", true, true, ""); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := New("json", filepath.Join(t.TempDir(), "x.json"), true, true, "status"); err == nil {
		t.Error("expected error for unknown sort key")
	}
}

func TestProgressRecord(t *testing.T) {
	p := NewProgress(3, true)
	p.Start()
	for _, r := range sampleResults() {
		p.Record(r)
	}
	p.Stop()
	if p.Completed() != 3 || p.identified.Load() != 1 || p.inaccessible.Load() != 1 {
		t.Errorf("completed=%d identified=%d inaccessible=%d",
			p.Completed(), p.identified.Load(), p.inaccessible.Load())
	}
}
