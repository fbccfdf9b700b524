// Package watch holds the consumption contracts the UI layer drives:
// fixed-interval quote polling and debounced search-as-you-type. Timers are
// owned here and cleared deterministically on teardown; stale in-flight
// results are discarded, never applied.
package watch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockfeed/internal/provider"
)

// QuoteFunc fetches the current quote for the watched symbol.
// Typically a closure over service.GetQuote.
type QuoteFunc func(ctx context.Context) (*provider.Quote, error)

// Snapshot is the state a consumer renders: last-good quote, in-flight
// flag, and a human-readable error set only when the fallback chain
// exhausted or a fault leaked through.
type Snapshot struct {
	Quote     *provider.Quote
	Loading   bool
	Err       string
	UpdatedAt time.Time
}

type PollerConfig struct {
	Interval time.Duration // default 30s
	Fetch    QuoteFunc
	// OnUpdate, when set, is called after every applied snapshot change.
	OnUpdate func(Snapshot)
	Logger   *zap.Logger
}

// QuotePoller issues an immediate fetch and then refetches on a fixed
// timer. A new tick supersedes the previous in-flight request: its result,
// if it ever arrives, is discarded rather than applied.
type QuotePoller struct {
	cfg PollerConfig

	mu             sync.Mutex
	snap           Snapshot
	gen            uint64
	inflightCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	kick   chan struct{}
}

func NewQuotePoller(cfg PollerConfig) *QuotePoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &QuotePoller{cfg: cfg, kick: make(chan struct{}, 1)}
}

// Start begins the polling loop. It returns immediately; the first fetch
// is already in flight when it does.
func (p *QuotePoller) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.poll()
	p.wg.Add(1)
	go p.run()
}

// Stop tears the poller down: the timer is cleared, any in-flight request
// is canceled and its result discarded. Blocks until the loop exits.
func (p *QuotePoller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Refetch forces an immediate out-of-band poll. Safe to call concurrently;
// coalesces when one is already pending.
func (p *QuotePoller) Refetch() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the current render state.
func (p *QuotePoller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *QuotePoller) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		case <-p.kick:
			p.poll()
		}
	}
}

// poll supersedes any in-flight fetch and starts a new one.
func (p *QuotePoller) poll() {
	p.mu.Lock()
	p.gen++
	my := p.gen
	if p.inflightCancel != nil {
		p.inflightCancel()
	}
	fctx, cancel := context.WithCancel(p.ctx)
	p.inflightCancel = cancel
	p.snap.Loading = true
	snap := p.snap
	cb := p.cfg.OnUpdate
	p.mu.Unlock()
	if cb != nil {
		cb(snap)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		q, err := p.cfg.Fetch(fctx)

		p.mu.Lock()
		if my != p.gen || p.ctx.Err() != nil {
			// superseded by a newer tick, or torn down: discard
			p.mu.Unlock()
			return
		}
		p.snap.Loading = false
		switch {
		case err != nil:
			p.snap.Err = err.Error()
		case q == nil:
			p.snap.Err = "no data available"
		default:
			p.snap.Err = ""
			p.snap.Quote = q
			p.snap.UpdatedAt = time.Now()
		}
		snap := p.snap
		cb := p.cfg.OnUpdate
		p.mu.Unlock()
		if cb != nil {
			cb(snap)
		}
	}()
}
