package scanner

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/maxvaer/cmsid/internal/config"
)

// OutcomeKind classifies a single probe.
type OutcomeKind int

const (
	Success      OutcomeKind = iota // HTTP 200, body read
	NotFound                        // any other status; nothing to evaluate
	Timeout                         // per-request timeout expired
	NetworkError                    // refused, DNS, TLS, reset, body read failure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case NotFound:
		return "not-found"
	case Timeout:
		return "timeout"
	default:
		return "network-error"
	}
}

// Outcome is the result of one GET.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Body       []byte // only set on Success
	Err        error  // set on Timeout and NetworkError
}

// Detail is a short human-readable reason for a failed probe.
func (o Outcome) Detail() string {
	switch o.Kind {
	case Success:
		return ""
	case NotFound:
		return fmt.Sprintf("HTTP %d", o.StatusCode)
	case Timeout:
		return "timeout"
	default:
		if o.Err != nil {
			return o.Err.Error()
		}
		return "network error"
	}
}

// Prober issues single bounded GET requests. It is safe for concurrent use;
// all tasks share one transport.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// NewProber creates a Prober from the provided options.
func NewProber(opts *config.Options) *Prober {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	conns := opts.Threads
	if conns <= 0 {
		conns = 100
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		MaxIdleConns:        conns,
		MaxIdleConnsPerHost: 4,
	}

	return &Prober{
		client:  &http.Client{Transport: transport},
		timeout: timeout,
	}
}

// Timeout returns the per-request timeout.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Probe sends one GET to url with headers. The timeout covers the whole
// exchange including reading the body. There are no retries.
func (p *Prober) Probe(ctx context.Context, url string, headers map[string]string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Kind: NetworkError, Err: err}
	}
	for k, v := range headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return failure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return Outcome{Kind: NotFound, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(fmt.Errorf("reading response body: %w", err))
	}
	return Outcome{Kind: Success, StatusCode: resp.StatusCode, Body: body}
}

func failure(err error) Outcome {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Outcome{Kind: Timeout, Err: err}
	}
	return Outcome{Kind: NetworkError, Err: err}
}
