package signature

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyTable is returned when a source yields no rules.
	ErrEmptyTable = errors.New("signature table is empty")
	// ErrUnknownMode is returned for a match mode other than keyword or md5.
	ErrUnknownMode = errors.New("unknown match mode")
)

// Mode selects how a rule's pattern is compared against a response body.
type Mode int

const (
	Keyword Mode = iota // pattern is a literal substring of the body
	Hash                // pattern is the hex MD5 of the raw body
)

// ParseMode accepts the textual forms used by signature stores. An empty
// value is rejected; a rule with no mode could never match.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keyword":
		return Keyword, nil
	case "md5", "hash":
		return Hash, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownMode, s)
	}
}

func (m Mode) String() string {
	if m == Hash {
		return "md5"
	}
	return "keyword"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Rule is a single CMS fingerprint: probe Path, compare the body with Pattern.
type Rule struct {
	Path    string `json:"path" yaml:"path"`
	Pattern string `json:"pattern" yaml:"pattern"`
	CMS     string `json:"cms" yaml:"cms"`
	Mode    Mode   `json:"mode" yaml:"mode"`
}

// Table is an ordered set of rules. Earlier rules take precedence when more
// than one would match the same response.
type Table []Rule

// Validate checks every rule and reports the first problem by position.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	for i, r := range t {
		if r.Pattern == "" {
			return fmt.Errorf("rule %d (%s): empty match pattern", i+1, r.Path)
		}
		if strings.TrimSpace(r.CMS) == "" {
			return fmt.Errorf("rule %d (%s): empty cms name", i+1, r.Path)
		}
		if r.Mode != Keyword && r.Mode != Hash {
			return fmt.Errorf("rule %d (%s): %w", i+1, r.Path, ErrUnknownMode)
		}
	}
	return nil
}

// Filter keeps only rules whose CMS name is in names (case-insensitive).
// An empty names list returns the table unchanged.
func (t Table) Filter(names []string) Table {
	if len(names) == 0 {
		return t
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	var out Table
	for _, r := range t {
		if _, ok := want[strings.ToLower(r.CMS)]; ok {
			out = append(out, r)
		}
	}
	return out
}

// CMSNames returns the distinct CMS names in declaration order.
func (t Table) CMSNames() []string {
	seen := make(map[string]struct{}, len(t))
	var names []string
	for _, r := range t {
		if _, ok := seen[r.CMS]; !ok {
			seen[r.CMS] = struct{}{}
			names = append(names, r.CMS)
		}
	}
	return names
}
