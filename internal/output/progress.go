package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// Progress tracks and displays scan progress on stderr.
type Progress struct {
	total        int
	completed    atomic.Int64
	identified   atomic.Int64
	inaccessible atomic.Int64
	start        time.Time
	done         chan struct{}
	stopped      chan struct{}
	quiet        bool
	mu           sync.Mutex // serializes writes to w
	w            io.Writer
}

// NewProgress creates a progress tracker. Call Start() to begin display updates.
func NewProgress(total int, quiet bool) *Progress {
	return &Progress{
		total:   total,
		start:   time.Now(),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		quiet:   quiet,
		w:       os.Stderr,
	}
}

// Start begins periodically printing progress to stderr.
func (p *Progress) Start() {
	if p.quiet {
		close(p.stopped)
		return
	}
	go func() {
		defer close(p.stopped)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.print()
			case <-p.done:
				p.print()
				p.mu.Lock()
				fmt.Fprint(p.w, "\n")
				p.mu.Unlock()
				return
			}
		}
	}()
}

// Record counts a finished target.
func (p *Progress) Record(r scanner.Result) {
	p.completed.Add(1)
	switch {
	case r.Identified:
		p.identified.Add(1)
	case !r.Accessible:
		p.inaccessible.Add(1)
	}
}

// Completed returns the number of finished targets.
func (p *Progress) Completed() int {
	return int(p.completed.Load())
}

// Stop ends the progress display and waits for the last line to be drawn.
func (p *Progress) Stop() {
	close(p.done)
	<-p.stopped
}

// ClearLine erases the progress line so a result can be printed cleanly.
func (p *Progress) ClearLine() {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprint(p.w, "\r\033[K")
	p.mu.Unlock()
}

// Redraw prints the progress line again after ClearLine.
func (p *Progress) Redraw() {
	if p.quiet {
		return
	}
	p.print()
}

func (p *Progress) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	completed := p.completed.Load()
	elapsed := time.Since(p.start).Seconds()
	rate := float64(0)
	if elapsed > 0 {
		rate = float64(completed) / elapsed
	}

	pct := float64(0)
	if p.total > 0 {
		pct = float64(completed) / float64(p.total) * 100
	}

	eta := ""
	if rate > 0 && completed < int64(p.total) {
		remaining := float64(int64(p.total)-completed) / rate
		eta = fmt.Sprintf("ETA: %s", time.Duration(remaining*float64(time.Second)).Round(time.Second))
	}

	fmt.Fprintf(p.w, "\r\033[K[%3.0f%%] %d/%d | %.1f targets/s | Identified: %d | Inaccessible: %d | %s",
		pct, completed, p.total, rate,
		p.identified.Load(), p.inaccessible.Load(), eta)
}
