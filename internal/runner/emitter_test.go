package runner

import (
	"context"
	"testing"

	"github.com/maxvaer/cmsid/internal/filter"
	"github.com/maxvaer/cmsid/internal/output"
	"github.com/maxvaer/cmsid/internal/scanner"
)

type recordWriter struct{ urls []string }

func (w *recordWriter) WriteHeader() error { return nil }
func (w *recordWriter) WriteResult(r *scanner.Result) error {
	w.urls = append(w.urls, r.URL)
	return nil
}
func (w *recordWriter) WriteFooter(output.Stats) error { return nil }
func (w *recordWriter) Close() error                   { return nil }

func TestEmitterWritesInInputOrder(t *testing.T) {
	out := &recordWriter{}
	chain := filter.NewChain()
	chain.Add(filter.InaccessibleFilter{})
	em := newEmitter(context.Background(), out, chain, nil, output.NewProgress(4, true), 4)

	em.add(2, scanner.Result{URL: "c", Accessible: true})
	em.add(1, scanner.Result{URL: "b"}) // inaccessible, filtered
	if len(out.urls) != 0 {
		t.Fatalf("wrote %v before index 0 arrived", out.urls)
	}
	em.add(0, scanner.Result{URL: "a", Accessible: true})
	em.add(3, scanner.Result{URL: "d", Accessible: true})

	want := []string{"a", "c", "d"}
	if len(out.urls) != len(want) {
		t.Fatalf("wrote %v, want %v", out.urls, want)
	}
	for i := range want {
		if out.urls[i] != want[i] {
			t.Errorf("[%d] = %s, want %s", i, out.urls[i], want[i])
		}
	}
	if err := em.err(); err != nil {
		t.Error(err)
	}
}
