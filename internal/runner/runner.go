package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/cmsid/internal/config"
	"github.com/maxvaer/cmsid/internal/filter"
	"github.com/maxvaer/cmsid/internal/hook"
	"github.com/maxvaer/cmsid/internal/output"
	"github.com/maxvaer/cmsid/internal/resume"
	"github.com/maxvaer/cmsid/internal/scanner"
	"github.com/maxvaer/cmsid/internal/signature"
	"github.com/maxvaer/cmsid/internal/targets"
	"github.com/maxvaer/cmsid/pkg/version"
)

// ErrNoRules is returned when --cms leaves no signature rules to probe.
var ErrNoRules = errors.New("no signature rules left after --cms filter")

// Run executes the full scan pipeline: resolve targets, load signatures,
// scan every target concurrently and report results in input order.
func Run(ctx context.Context, opts *config.Options, log logrus.FieldLogger) error {
	all, err := targets.Resolve(targets.Sources{
		URL:   opts.URL,
		File:  opts.URLsFile,
		CIDR:  opts.CIDRTargets,
		Ports: opts.Ports,
		Stdin: os.Stdin,
	})
	if err != nil {
		return err
	}

	rules, err := loadRules(ctx, opts)
	if err != nil {
		return err
	}
	log.WithField("rules", len(rules)).WithField("targets", len(all)).Debug("loaded signatures")

	chain := buildChain(opts)

	// Resume support.
	remaining := all
	var resumeState *resume.State
	if opts.ResumeFile != "" {
		existing, err := resume.Load(opts.ResumeFile)
		if err != nil {
			return fmt.Errorf("loading resume file: %w", err)
		}
		if existing != nil {
			resumeState = existing
			remaining = resumeState.FilterRemaining(all)
			if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[+] Resuming: skipping %d already completed targets\n", len(all)-len(remaining))
			}
		} else {
			resumeState = resume.New(opts.ResumeFile, len(all))
		}
	}

	out, err := output.New(opts.OutputFormat, opts.OutputFile, opts.NoColor, opts.Quiet, opts.SortBy)
	if err != nil {
		return fmt.Errorf("creating output writer: %w", err)
	}
	defer out.Close()

	if !opts.Quiet {
		printBanner(opts, len(all), len(rules))
	}

	if err := out.WriteHeader(); err != nil {
		return err
	}

	var hookRunner *hook.Runner
	if opts.OnResultCmd != "" {
		hookRunner = hook.NewRunner(opts.OnResultCmd, log)
	}

	prober := scanner.NewProber(opts)

	var pauser *scanner.Pauser
	cleanup := func() {}
	if opts.URLsFile != "-" {
		pauser, cleanup = startStdinToggle(opts.Quiet, log)
	}

	progress := output.NewProgress(len(all), opts.Quiet)
	em := newEmitter(ctx, out, chain, hookRunner, progress, len(all))

	// Position of each remaining target in the full list.
	origIndex := make([]int, 0, len(remaining))
	pos := make(map[string]int, len(all))
	for i, t := range all {
		pos[t.URL] = i
	}
	for _, t := range remaining {
		origIndex = append(origIndex, pos[t.URL])
	}
	if resumeState != nil {
		for i, t := range all {
			if stored, ok := resumeState.Lookup(t.URL); ok {
				progress.Record(stored)
				em.add(i, stored)
			}
		}
	}

	engine := scanner.NewEngine(prober, scanner.EngineConfig{
		Workers:          opts.Threads,
		Delay:            opts.Delay,
		AdaptiveThrottle: opts.AdaptiveThrottle,
		Pauser:           pauser,
		Logger:           log,
		OnResult: func(i int, r scanner.Result) {
			progress.Record(r)
			if resumeState != nil && ctx.Err() == nil {
				resumeState.MarkCompleted(r)
			}
			em.add(origIndex[i], r)
		},
	})

	progress.Start()
	start := time.Now()
	fresh := engine.ScanAll(ctx, remaining, rules, opts.ProbeHeaders())
	elapsed := time.Since(start)
	progress.Stop()
	cleanup()
	if pauser != nil {
		elapsed -= pauser.PausedDuration()
	}

	if ctx.Err() != nil {
		if resumeState != nil {
			if err := resumeState.Save(); err != nil {
				log.WithError(err).Error("saving resume state")
			} else if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "\n[*] Progress saved to %s, resume with --resume-file\n", opts.ResumeFile)
			}
		}
		return ctx.Err()
	}

	if err := em.err(); err != nil {
		return err
	}

	results := fresh
	if resumeState != nil {
		results = resumeState.Merge(all, fresh)
		if err := resumeState.Remove(); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("removing resume file")
		}
	}

	stats := output.Collect(results, elapsed)
	log.WithFields(logrus.Fields{
		"targets":      stats.Targets,
		"identified":   stats.Identified,
		"inaccessible": stats.Inaccessible,
		"duration":     elapsed.Round(time.Millisecond),
	}).Debug("scan complete")

	return out.WriteFooter(stats)
}

func loadRules(ctx context.Context, opts *config.Options) (signature.Table, error) {
	rules, err := signature.Load(ctx, opts.SignaturesPath)
	if err != nil {
		return nil, fmt.Errorf("loading signatures: %w", err)
	}
	rules = rules.Filter(opts.CMSNames)
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	return rules, nil
}

func buildChain(opts *config.Options) *filter.Chain {
	chain := filter.NewChain()
	if opts.OnlyIdentified {
		chain.Add(filter.IdentifiedFilter{})
	}
	if opts.HideInaccessible {
		chain.Add(filter.InaccessibleFilter{})
	}
	if opts.MatchCMS != "" {
		chain.Add(filter.NewCMSMatchFilter(opts.MatchCMS))
	}
	return chain
}

// emitter receives results in completion order and writes them in input
// order, holding back any result whose predecessors are still running.
type emitter struct {
	ctx      context.Context
	out      output.Writer
	chain    *filter.Chain
	hook     *hook.Runner
	progress *output.Progress

	mu       sync.Mutex
	next     int
	pending  map[int]scanner.Result
	firstErr error
}

func newEmitter(ctx context.Context, out output.Writer, chain *filter.Chain, h *hook.Runner, p *output.Progress, n int) *emitter {
	return &emitter{ctx: ctx, out: out, chain: chain, hook: h, progress: p, pending: make(map[int]scanner.Result, n)}
}

func (e *emitter) add(i int, r scanner.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[i] = r
	for {
		r, ok := e.pending[e.next]
		if !ok {
			return
		}
		delete(e.pending, e.next)
		e.next++
		e.write(&r)
	}
}

func (e *emitter) write(r *scanner.Result) {
	if e.firstErr != nil {
		return
	}
	if hidden, _ := e.chain.Apply(r); hidden {
		return
	}
	e.progress.ClearLine()
	if err := e.out.WriteResult(r); err != nil {
		e.firstErr = err
	}
	e.progress.Redraw()
	if e.hook != nil {
		_ = e.hook.Run(e.ctx, r)
	}
}

func (e *emitter) err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.firstErr
}

func printBanner(opts *config.Options, targetCount, ruleCount int) {
	const (
		cyan   = "\033[36m"
		white  = "\033[97m"
		dim    = "\033[2m"
		green  = "\033[32m"
		red    = "\033[31m"
		yellow = "\033[33m"
		reset  = "\033[0m"
	)

	c, w, d, g, r, y, rs := cyan, white, dim, green, red, yellow, reset
	if opts.NoColor {
		c, w, d, g, r, y, rs = "", "", "", "", "", "", ""
	}

	fmt.Fprintf(os.Stderr, `
%s                         _     __%s
%s   _________ ___  _____(_)___/ /%s
%s  / ___/ __ `+"`"+`__ \/ ___/ / __  / %s
%s / /__/ / / / / (__  ) / /_/ /  %s
%s \___/_/ /_/ /_/____/_/\__,_/   %s %sv%s%s
%s                                %s
%s    CMS Identification Scanner  %s
`,
		c, rs,
		c, rs,
		c, rs,
		c, rs,
		c, rs, d, version.Version, rs,
		c, rs,
		w, rs,
	)

	threads := "per target"
	if opts.Threads > 0 {
		threads = fmt.Sprintf("%d", opts.Threads)
	}
	ua := fmt.Sprintf("%sOFF%s", r, rs)
	if h := opts.ProbeHeaders()["User-Agent"]; h != "" {
		ua = fmt.Sprintf("%s%s%s", g, h, rs)
	}

	fmt.Fprintf(os.Stderr, "%s  ──────────────────────────────────────%s\n", d, rs)
	if targetCount == 1 {
		fmt.Fprintf(os.Stderr, "  %sTarget:%s       %s%s%s\n", d, rs, w, firstTarget(opts), rs)
	} else {
		fmt.Fprintf(os.Stderr, "  %sTargets:%s      %s%d%s\n", d, rs, w, targetCount, rs)
	}
	fmt.Fprintf(os.Stderr, "  %sSignatures:%s   %s%d rules%s\n", d, rs, w, ruleCount, rs)
	if len(opts.CMSNames) > 0 {
		fmt.Fprintf(os.Stderr, "  %sCMS:%s          %s%s%s\n", d, rs, w, strings.Join(opts.CMSNames, ", "), rs)
	}
	fmt.Fprintf(os.Stderr, "  %sWorkers:%s      %s%s%s\n", d, rs, y, threads, rs)
	fmt.Fprintf(os.Stderr, "  %sTimeout:%s      %s%s%s\n", d, rs, y, opts.Timeout, rs)
	fmt.Fprintf(os.Stderr, "  %sUser-Agent:%s   %s\n", d, rs, ua)
	fmt.Fprintf(os.Stderr, "%s  ──────────────────────────────────────%s\n\n", d, rs)
}

func firstTarget(opts *config.Options) string {
	if opts.URL != "" {
		return opts.URL
	}
	if opts.CIDRTargets != "" {
		return opts.CIDRTargets
	}
	return opts.URLsFile
}
