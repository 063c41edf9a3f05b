package targets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/maxvaer/cmsid/internal/netutil"
	"github.com/maxvaer/cmsid/internal/scanner"
)

// ErrNoTargets is returned when no source yields a single URL.
var ErrNoTargets = errors.New("no targets given (use -u, -r or --cidr)")

// Sources describes where targets come from. Any combination may be set.
type Sources struct {
	URL   string
	File  string // "-" reads Stdin
	CIDR  string
	Ports string
	Stdin io.Reader
}

// Normalize turns user input into a base URL: surrounding space trimmed,
// http:// prepended when no scheme is given, trailing slashes removed.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty target")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	s = strings.TrimRight(s, "/")

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid target %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid target %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid target %q: missing host", raw)
	}
	return s, nil
}

// Read returns the non-empty, non-comment lines of r.
func Read(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

// LoadFile reads a URL list from path, or from stdin when path is "-".
func LoadFile(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		lines, err := Read(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading targets from stdin: %w", err)
		}
		return lines, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading url list %s: %w", path, err)
	}
	defer f.Close()
	lines, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading url list %s: %w", path, err)
	}
	return lines, nil
}

// NormalizeAll normalizes every entry and keeps repeats, so the result
// lines up with raw by index.
func NormalizeAll(raw []string) ([]scanner.Target, error) {
	out := make([]scanner.Target, 0, len(raw))
	for _, r := range raw {
		u, err := Normalize(r)
		if err != nil {
			return nil, err
		}
		out = append(out, scanner.Target{URL: u})
	}
	return out, nil
}

// Dedupe normalizes every entry and drops repeats, keeping first-seen order.
func Dedupe(raw []string) ([]scanner.Target, error) {
	all, err := NormalizeAll(raw)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, t := range all {
		if _, ok := seen[t.URL]; ok {
			continue
		}
		seen[t.URL] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// Resolve collects targets from every configured source in the order
// -u, -r, --cidr.
func Resolve(src Sources) ([]scanner.Target, error) {
	var raw []string
	if src.URL != "" {
		raw = append(raw, src.URL)
	}
	if src.File != "" {
		lines, err := LoadFile(src.File, src.Stdin)
		if err != nil {
			return nil, err
		}
		raw = append(raw, lines...)
	}
	if src.CIDR != "" {
		urls, err := netutil.ExpandTargets(src.CIDR, src.Ports)
		if err != nil {
			return nil, err
		}
		raw = append(raw, urls...)
	}

	out, err := Dedupe(raw)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoTargets
	}
	return out, nil
}
