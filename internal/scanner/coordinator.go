package scanner

import (
	"context"
	"sync"

	"github.com/maxvaer/cmsid/internal/signature"
)

// ScanAll scans every target concurrently and returns one Result per
// target, in input order. Without a worker limit each target gets its own
// goroutine; with EngineConfig.Workers set, that many workers pull target
// indices from a queue. Nothing started here outlives the call.
func (e *Engine) ScanAll(ctx context.Context, targets []Target, rules signature.Table, headers map[string]string) []Result {
	results := make([]Result, len(targets))
	if len(targets) == 0 {
		return results
	}

	workers := e.cfg.Workers
	if workers <= 0 || workers > len(targets) {
		workers = len(targets)
	}

	// Every index is queued even after ctx is done; a cancelled task
	// returns immediately, so the caller still gets len(targets) results.
	indices := make(chan int, workers)
	go func() {
		defer close(indices)
		for i := range targets {
			indices <- i
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				r := e.Scan(ctx, targets[i], rules, headers)
				results[i] = r
				if e.cfg.OnResult != nil {
					e.cfg.OnResult(i, r)
				}
			}
		}()
	}
	wg.Wait()

	return results
}
