package resume

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// State tracks finished targets so an interrupted scan can be resumed.
// Completed results are kept in full so they can be reported again.
type State struct {
	Targets   int              `json:"targets"`
	Completed []scanner.Result `json:"completed"`

	mu   sync.Mutex
	path string
	done map[string]int // url -> index into Completed
}

// New creates a new empty resume state that will be saved to the given path.
func New(path string, targets int) *State {
	return &State{
		Targets: targets,
		path:    path,
		done:    make(map[string]int),
	}
}

// Load reads an existing resume state from disk. Returns nil if the file
// does not exist.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading resume file: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing resume file: %w", err)
	}

	s.path = path
	s.done = make(map[string]int, len(s.Completed))
	for i, r := range s.Completed {
		s.done[r.URL] = i
	}

	return &s, nil
}

// IsCompleted returns true if the given target was already scanned.
func (s *State) IsCompleted(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.done[url]
	return ok
}

// Lookup returns the stored result for url.
func (s *State) Lookup(url string) (scanner.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.done[url]
	if !ok {
		return scanner.Result{}, false
	}
	return s.Completed[i], true
}

// MarkCompleted records a finished result. A later result for the same
// URL replaces the earlier one.
func (s *State) MarkCompleted(r scanner.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.done[r.URL]; ok {
		s.Completed[i] = r
		return
	}
	s.done[r.URL] = len(s.Completed)
	s.Completed = append(s.Completed, r)
}

// Save writes the current state to disk.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializing resume state: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}

// FilterRemaining returns only targets that haven't been completed yet.
func (s *State) FilterRemaining(targets []scanner.Target) []scanner.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	var remaining []scanner.Target
	for _, t := range targets {
		if _, ok := s.done[t.URL]; !ok {
			remaining = append(remaining, t)
		}
	}
	return remaining
}

// Merge returns one result per target in input order. Stored results are
// used where present; the rest come from fresh, which must hold the
// results for FilterRemaining(targets) in the same order.
func (s *State) Merge(targets []scanner.Target, fresh []scanner.Result) []scanner.Result {
	byURL := make(map[string]scanner.Result, len(fresh))
	for _, r := range fresh {
		byURL[r.URL] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scanner.Result, len(targets))
	for i, t := range targets {
		if r, ok := byURL[t.URL]; ok {
			out[i] = r
			continue
		}
		if j, ok := s.done[t.URL]; ok {
			out[i] = s.Completed[j]
			continue
		}
		out[i] = scanner.Result{URL: t.URL, Error: "not scanned"}
	}
	return out
}

// Remove deletes the resume file (called on successful completion).
func (s *State) Remove() error {
	return os.Remove(s.path)
}
