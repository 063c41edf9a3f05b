package scanner

import (
	"context"
	"time"

	"github.com/maxvaer/cmsid/internal/matcher"
	"github.com/maxvaer/cmsid/internal/signature"
)

// Scan identifies the CMS of a single target. It first checks that the
// base URL answers 200 (without the probe headers), then walks rules in
// order and stops at the first match. Probe failures never abort the walk;
// they count as a non-match for that rule.
func (e *Engine) Scan(ctx context.Context, target Target, rules signature.Table, headers map[string]string) Result {
	start := time.Now()
	res := Result{URL: target.URL}
	log := e.log.WithField("target", target.URL)

	if err := e.gate(ctx); err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	pre := e.prober.Probe(ctx, target.URL, nil)
	if pre.Kind != Success {
		res.Error = pre.Detail()
		res.Duration = time.Since(start)
		log.WithField("reason", res.Error).Debug("host not accessible")
		return res
	}
	res.Accessible = true
	res.Title = pageTitle(pre.Body)

	throttle := NewThrottler(e.cfg.Delay, e.cfg.AdaptiveThrottle, log)
	for i, rule := range rules {
		if i > 0 {
			if err := throttle.Wait(ctx); err != nil {
				break
			}
		}
		if err := e.gate(ctx); err != nil {
			break
		}

		probeURL := target.URL + rule.Path
		out := e.prober.Probe(ctx, probeURL, headers)
		res.Probes++
		throttle.Record(out)

		if out.Kind != Success {
			log.WithField("url", probeURL).WithField("outcome", out.Kind).Debug("probe")
			continue
		}
		if matcher.Matches(rule, out.Body) {
			res.Identified = true
			res.CMS = rule.CMS
			res.MatchedPath = rule.Path
			log.WithField("url", probeURL).WithField("cms", rule.CMS).Debug("signature matched")
			break
		}
		log.WithField("url", probeURL).Debug("no match")
	}

	// A walk cut short by cancellation is not a clean miss.
	if !res.Identified {
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			log.WithField("probes", res.Probes).Debug("scan interrupted")
		}
	}

	res.Duration = time.Since(start)
	return res
}

// gate blocks while the scan is paused.
func (e *Engine) gate(ctx context.Context) error {
	if e.cfg.Pauser != nil {
		if err := e.cfg.Pauser.Wait(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}
