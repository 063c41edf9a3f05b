package config

import "time"

// SpoofedUserAgent is sent on signature probes when --ua is set.
const SpoofedUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/58.0.3029.110 Safari/537.3"

// DefaultTimeout is the per-request timeout for every probe.
const DefaultTimeout = time.Second

// Options holds all configuration for a cmsid scan.
type Options struct {
	// Target
	URL         string
	URLsFile    string // one URL per line, "-" for stdin
	CIDRTargets string
	Ports       string

	// Signatures
	SignaturesPath string   // empty = use embedded
	CMSNames       []string // restrict the table to these CMS names

	// Performance
	Threads          int // 0 = one worker per target
	Timeout          time.Duration
	Delay            time.Duration
	AdaptiveThrottle bool

	// HTTP
	SpoofUA   bool
	UserAgent string // overrides SpoofedUserAgent, implies SpoofUA
	Headers   map[string]string

	// Output
	OutputFile       string
	OutputFormat     string // "text", "json", "csv"
	Quiet            bool
	NoColor          bool
	SortBy           string
	OnlyIdentified   bool
	HideInaccessible bool
	MatchCMS         string
	OnResultCmd      string
	ResumeFile       string

	// Logging
	Verbose   bool
	LogFormat string // "text", "json"
	LogFile   string

	ConfigFile string
}

// ProbeHeaders returns the headers attached to signature probes. The
// accessibility pre-check never carries them.
func (o *Options) ProbeHeaders() map[string]string {
	headers := make(map[string]string, len(o.Headers)+1)
	for k, v := range o.Headers {
		headers[k] = v
	}
	switch {
	case o.UserAgent != "":
		headers["User-Agent"] = o.UserAgent
	case o.SpoofUA:
		headers["User-Agent"] = SpoofedUserAgent
	}
	return headers
}
