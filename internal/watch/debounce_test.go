package watch

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"stockfeed/internal/provider"
)

type searchRecorder struct {
	mu      sync.Mutex
	queries []string
	results map[string][]provider.SearchResult
	applied chan string
}

func newSearchRecorder() *searchRecorder {
	return &searchRecorder{
		results: make(map[string][]provider.SearchResult),
		applied: make(chan string, 16),
	}
}

func (r *searchRecorder) search(_ context.Context, q string) []provider.SearchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	return r.results[q]
}

func (r *searchRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.queries))
	copy(out, r.queries)
	return out
}

func (r *searchRecorder) waitApplied(t *testing.T) string {
	t.Helper()
	select {
	case q := <-r.applied:
		return q
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for results")
		return ""
	}
}

func newTestDebouncer(r *searchRecorder, delay time.Duration) *SearchDebouncer {
	return NewSearchDebouncer(DebouncerConfig{
		Delay:  delay,
		Search: r.search,
		OnResults: func(q string, _ []provider.SearchResult) {
			r.applied <- q
		},
	})
}

func TestDebouncer_BurstCollapsesToLastQuery(t *testing.T) {
	r := newSearchRecorder()
	r.results["AAPL"] = []provider.SearchResult{{Symbol: "AAPL", Name: "Apple Inc."}}
	d := newTestDebouncer(r, 60*time.Millisecond)
	defer d.Close()

	d.Query("A")
	d.Query("AAP")
	d.Query("AAPL")
	if got := r.waitApplied(t); got != "AAPL" {
		t.Fatalf("applied %q", got)
	}
	if calls := r.calls(); !reflect.DeepEqual(calls, []string{"AAPL"}) {
		t.Fatalf("upstream saw %v, want just the final query", calls)
	}
	if res := d.Results(); len(res) != 1 || res[0].Symbol != "AAPL" {
		t.Fatalf("Results() = %v", res)
	}
}

func TestDebouncer_EmptyQueryClearsImmediately(t *testing.T) {
	r := newSearchRecorder()
	r.results["GTCO"] = []provider.SearchResult{{Symbol: "GTCO.LG"}}
	d := newTestDebouncer(r, 50*time.Millisecond)
	defer d.Close()

	d.Query("GTCO")
	r.waitApplied(t)

	d.Query("   ")
	if got := r.waitApplied(t); got != "" {
		t.Fatalf("applied %q, want immediate clear", got)
	}
	if res := d.Results(); len(res) != 0 {
		t.Fatalf("Results() = %v after clear", res)
	}
	// the clear must not wait out the debounce window
	if calls := r.calls(); len(calls) != 1 {
		t.Fatalf("upstream calls = %v", calls)
	}
}

func TestDebouncer_ClearCancelsPending(t *testing.T) {
	r := newSearchRecorder()
	d := newTestDebouncer(r, 40*time.Millisecond)
	defer d.Close()

	d.Query("DANG")
	d.Query("") // before the window elapses
	r.waitApplied(t)

	time.Sleep(100 * time.Millisecond)
	if calls := r.calls(); len(calls) != 0 {
		t.Fatalf("canceled query still went upstream: %v", calls)
	}
}

func TestDebouncer_RecentList(t *testing.T) {
	r := newSearchRecorder()
	for _, q := range []string{"one", "two", "three"} {
		r.results[q] = []provider.SearchResult{{Symbol: q}}
	}
	d := NewSearchDebouncer(DebouncerConfig{
		Delay:       5 * time.Millisecond,
		Search:      r.search,
		OnResults:   func(q string, _ []provider.SearchResult) { r.applied <- q },
		RecentLimit: 2,
	})
	defer d.Close()

	for _, q := range []string{"one", "two", "one", "three"} {
		d.Query(q)
		r.waitApplied(t)
	}
	// most recent first, deduped, capped at the limit
	if got := d.Recent(); !reflect.DeepEqual(got, []string{"three", "one"}) {
		t.Fatalf("Recent() = %v", got)
	}
}

func TestDebouncer_EmptyResultsNotRecorded(t *testing.T) {
	r := newSearchRecorder()
	d := newTestDebouncer(r, 5*time.Millisecond)
	defer d.Close()

	d.Query("NOMATCH")
	r.waitApplied(t)
	if got := d.Recent(); len(got) != 0 {
		t.Fatalf("no-hit query recorded in recents: %v", got)
	}
}

func TestDebouncer_CloseStopsPendingTimer(t *testing.T) {
	r := newSearchRecorder()
	d := newTestDebouncer(r, 30*time.Millisecond)
	d.Query("GTCO")
	d.Close()

	time.Sleep(80 * time.Millisecond)
	if calls := r.calls(); len(calls) != 0 {
		t.Fatalf("search fired after Close: %v", calls)
	}
}
