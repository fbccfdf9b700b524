// Package fallback walks an ordered chain of (candidate symbol, provider)
// pairs and returns the first hit. It is deliberately cache-agnostic:
// callers layer caching on top.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockfeed/internal/metrics"
	"stockfeed/internal/provider"
	"stockfeed/internal/symbols"
)

type Config struct {
	Resolver symbols.Resolver
	// Quotes and History are consulted in priority order.
	Quotes  []provider.QuoteFetcher
	History []provider.HistoryFetcher
	// Search has exactly one upstream.
	Search provider.Searcher
	// AttemptTimeout bounds each individual provider call. Default 5s.
	AttemptTimeout time.Duration
	Logger         *zap.Logger
}

type Orchestrator struct {
	cfg Config
}

func New(cfg Config) *Orchestrator {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg}
}

// Quote tries each resolver candidate against each quote provider in order,
// strictly sequentially, and returns the first successful quote. Exhaustion
// returns provider.ErrNotFound: "no data for this symbol" is an expected
// outcome, not a fault. Failed attempts are never retried here; the caller's
// next poll is the retry.
func (o *Orchestrator) Quote(ctx context.Context, ticker string, market symbols.Market) (*provider.Quote, error) {
	candidates := o.cfg.Resolver.Candidates(ticker, market)
	if len(candidates) == 0 {
		return nil, provider.ErrNotFound
	}
	rid := uuid.NewString()
	log := o.cfg.Logger.With(zap.String("request_id", rid), zap.String("kind", "quote"), zap.String("ticker", ticker))

	for _, sym := range candidates {
		for _, p := range o.cfg.Quotes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			q, err := func() (*provider.Quote, error) {
				attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
				defer cancel()
				start := time.Now()
				q, err := p.FetchQuote(attemptCtx, sym)
				metrics.AttemptLatency.Observe(time.Since(start).Seconds())
				return q, err
			}()
			metrics.ProviderAttempts.WithLabelValues(p.Name(), "quote", outcomeLabel(err)).Inc()
			if err == nil {
				log.Debug("quote resolved", zap.String("provider", p.Name()), zap.String("symbol", sym))
				return q, nil
			}
			logAttempt(log, p.Name(), sym, err)
		}
	}
	metrics.FallbackExhausted.WithLabelValues("quote").Inc()
	log.Info("all providers exhausted")
	return nil, provider.ErrNotFound
}

// History mirrors Quote over the history providers. An empty series from a
// provider is a success: the symbol exists but had no trading data in range.
func (o *Orchestrator) History(ctx context.Context, ticker string, rng provider.Range, market symbols.Market) ([]provider.HistoryPoint, error) {
	candidates := o.cfg.Resolver.Candidates(ticker, market)
	if len(candidates) == 0 {
		return nil, provider.ErrNotFound
	}
	rid := uuid.NewString()
	log := o.cfg.Logger.With(zap.String("request_id", rid), zap.String("kind", "history"), zap.String("ticker", ticker), zap.String("range", string(rng)))

	for _, sym := range candidates {
		for _, p := range o.cfg.History {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			points, err := func() ([]provider.HistoryPoint, error) {
				attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
				defer cancel()
				start := time.Now()
				points, err := p.FetchHistory(attemptCtx, sym, rng)
				metrics.AttemptLatency.Observe(time.Since(start).Seconds())
				return points, err
			}()
			metrics.ProviderAttempts.WithLabelValues(p.Name(), "history", outcomeLabel(err)).Inc()
			if err == nil {
				if points == nil {
					points = []provider.HistoryPoint{}
				}
				log.Debug("history resolved", zap.String("provider", p.Name()), zap.String("symbol", sym), zap.Int("points", len(points)))
				return points, nil
			}
			logAttempt(log, p.Name(), sym, err)
		}
	}
	metrics.FallbackExhausted.WithLabelValues("history").Inc()
	log.Info("all providers exhausted")
	return nil, provider.ErrNotFound
}

// Search degenerates to a single provider call. The error return lets the
// caller distinguish "no matches" from "provider down" for caching; both
// render as an empty list.
func (o *Orchestrator) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	if o.cfg.Search == nil {
		return []provider.SearchResult{}, nil
	}
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()
	results, err := o.cfg.Search.Search(attemptCtx, query)
	metrics.ProviderAttempts.WithLabelValues(o.cfg.Search.Name(), "search", outcomeLabel(err)).Inc()
	if err != nil {
		o.cfg.Logger.Warn("search failed",
			zap.String("provider", o.cfg.Search.Name()),
			zap.String("query", query),
			zap.Error(err))
		return nil, err
	}
	if results == nil {
		results = []provider.SearchResult{}
	}
	return results, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, provider.ErrNotFound):
		return "not_found"
	default:
		return "unavailable"
	}
}

func logAttempt(log *zap.Logger, providerName, sym string, err error) {
	if errors.Is(err, provider.ErrNotFound) {
		log.Debug("provider miss", zap.String("provider", providerName), zap.String("symbol", sym))
		return
	}
	log.Warn("provider unavailable", zap.String("provider", providerName), zap.String("symbol", sym), zap.Error(err))
}
