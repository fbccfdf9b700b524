package watch

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockfeed/internal/provider"
)

// SearchFunc runs one search call. Typically a closure over
// service.SearchSymbols.
type SearchFunc func(ctx context.Context, query string) []provider.SearchResult

type DebouncerConfig struct {
	// Delay is the quiet period after the last keystroke. Default 400ms.
	Delay  time.Duration
	Search SearchFunc
	// OnResults, when set, is called with every applied result set,
	// including the immediate clear for an empty query.
	OnResults func(query string, results []provider.SearchResult)
	// RecentLimit bounds the recency list. Default 10.
	RecentLimit int
	Logger      *zap.Logger
}

// SearchDebouncer turns a keystroke stream into at most one search call per
// quiet period. Clearing the query clears results immediately without
// waiting out the window. Successful non-empty results feed a bounded
// most-recent-first recency list, de-duplicated by exact query string.
type SearchDebouncer struct {
	cfg DebouncerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	results []provider.SearchResult
	recent  []string
}

func NewSearchDebouncer(cfg DebouncerConfig) *SearchDebouncer {
	if cfg.Delay <= 0 {
		cfg.Delay = 400 * time.Millisecond
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SearchDebouncer{cfg: cfg, ctx: ctx, cancel: cancel}
}

// Query feeds one keystroke's worth of input. The pending timer, if any,
// is reset; only the query in hand when the window elapses goes upstream.
func (d *SearchDebouncer) Query(q string) {
	q = strings.TrimSpace(q)

	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	my := d.gen

	if q == "" {
		d.results = nil
		cb := d.cfg.OnResults
		d.mu.Unlock()
		if cb != nil {
			cb("", []provider.SearchResult{})
		}
		return
	}

	d.timer = time.AfterFunc(d.cfg.Delay, func() {
		d.fire(my, q)
	})
	d.mu.Unlock()
}

// fire runs the actual search once the quiet period elapsed.
func (d *SearchDebouncer) fire(my uint64, q string) {
	d.mu.Lock()
	if my != d.gen || d.ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	d.wg.Add(1)
	defer d.wg.Done()
	results := d.cfg.Search(d.ctx, q)

	d.mu.Lock()
	if my != d.gen || d.ctx.Err() != nil {
		// a newer keystroke superseded this call while it was in flight
		d.mu.Unlock()
		return
	}
	d.results = results
	if len(results) > 0 {
		d.pushRecentLocked(q)
	}
	cb := d.cfg.OnResults
	d.mu.Unlock()
	if cb != nil {
		cb(q, results)
	}
}

// Results returns the last applied result set.
func (d *SearchDebouncer) Results() []provider.SearchResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]provider.SearchResult, len(d.results))
	copy(out, d.results)
	return out
}

// Recent returns the recency list, most recent first.
func (d *SearchDebouncer) Recent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.recent))
	copy(out, d.recent)
	return out
}

// Close cancels the pending timer and any in-flight search.
func (d *SearchDebouncer) Close() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
}

func (d *SearchDebouncer) pushRecentLocked(q string) {
	out := make([]string, 0, len(d.recent)+1)
	out = append(out, q)
	for _, r := range d.recent {
		if r == q {
			continue
		}
		out = append(out, r)
	}
	if len(out) > d.cfg.RecentLimit {
		out = out[:d.cfg.RecentLimit]
	}
	d.recent = out
}
