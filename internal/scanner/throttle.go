package scanner

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Throttler spaces out the signature probes of a single target. With
// adaptive mode on it doubles the delay when that host answers 429/503 or
// keeps failing, and halves it back toward the base once it recovers.
//
// Each scan task owns its own Throttler, so it is not safe for concurrent use.
type Throttler struct {
	baseDelay    time.Duration
	currentDelay time.Duration
	consecutive  int // consecutive throttle signals
	adaptive     bool
	log          logrus.FieldLogger
}

// NewThrottler creates a throttler starting at baseDelay.
func NewThrottler(baseDelay time.Duration, adaptive bool, log logrus.FieldLogger) *Throttler {
	return &Throttler{
		baseDelay:    baseDelay,
		currentDelay: baseDelay,
		adaptive:     adaptive,
		log:          log,
	}
}

// Delay returns the current pause between probes.
func (t *Throttler) Delay() time.Duration {
	return t.currentDelay
}

// Wait sleeps for the current delay or until ctx is done.
func (t *Throttler) Wait(ctx context.Context) error {
	if t.currentDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.currentDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record updates the delay from a probe outcome.
func (t *Throttler) Record(o Outcome) {
	if !t.adaptive {
		return
	}
	switch {
	case o.StatusCode == http.StatusTooManyRequests || o.StatusCode == http.StatusServiceUnavailable:
		t.consecutive++
		t.backOff("rate limited", o.StatusCode)
	case o.Kind == Timeout || o.Kind == NetworkError:
		t.consecutive++
		if t.consecutive >= 3 {
			t.backOff("repeated errors", 0)
		}
	case t.consecutive > 0:
		t.consecutive = 0
		// Gradually recover: halve delay toward base, but not below base.
		newDelay := t.currentDelay / 2
		if newDelay < t.baseDelay {
			newDelay = t.baseDelay
		}
		if newDelay != t.currentDelay {
			t.currentDelay = newDelay
			t.log.WithField("delay", t.currentDelay).Debug("throttle recovering")
		}
	}
}

func (t *Throttler) backOff(reason string, status int) {
	newDelay := t.currentDelay * 2
	if newDelay < minBackoff {
		newDelay = minBackoff
	}
	if newDelay > maxBackoff {
		newDelay = maxBackoff
	}
	if newDelay == t.currentDelay {
		return
	}
	t.currentDelay = newDelay
	entry := t.log.WithField("delay", t.currentDelay)
	if status != 0 {
		entry = entry.WithField("status", status)
	}
	entry.Warnf("%s, backing off", reason)
}
