// Package service is the public surface of the aggregation layer. It owns
// the response cache: the orchestrator below it stays cache-agnostic, and
// callers above it never see a provider error, only values, empty
// collections and nils.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"stockfeed/internal/cache"
	"stockfeed/internal/metrics"
	"stockfeed/internal/provider"
	"stockfeed/internal/symbols"
)

// Fetcher is what the service drives; satisfied by *fallback.Orchestrator.
type Fetcher interface {
	Quote(ctx context.Context, ticker string, market symbols.Market) (*provider.Quote, error)
	History(ctx context.Context, ticker string, rng provider.Range, market symbols.Market) ([]provider.HistoryPoint, error)
	Search(ctx context.Context, query string) ([]provider.SearchResult, error)
}

type Config struct {
	Fetcher Fetcher
	Cache   *cache.Cache
	// TTLs per request kind. Quotes stay short to remain visually live
	// within free-tier rate limits; search mappings are near-static.
	QuoteTTL   time.Duration // default 60s
	HistoryTTL time.Duration // default 5m
	SearchTTL  time.Duration // default 1h
	// BatchConcurrency bounds GetQuotes fan-out. Default 8.
	BatchConcurrency int
	Logger           *zap.Logger
}

type Service struct {
	cfg Config
	sf  singleflight.Group
}

func New(cfg Config) *Service {
	if cfg.Cache == nil {
		cfg.Cache = cache.New()
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 60 * time.Second
	}
	if cfg.HistoryTTL <= 0 {
		cfg.HistoryTTL = 5 * time.Minute
	}
	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = time.Hour
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{cfg: cfg}
}

// GetQuote returns the current quote for ticker, or nil when every provider
// and candidate spelling misses. Not-found results are cached for the same
// TTL so a burst of lookups for a bad symbol costs one fallback chain.
// The only non-nil error is a caller-side context error.
func (s *Service) GetQuote(ctx context.Context, ticker string, market symbols.Market) (*provider.Quote, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return nil, nil
	}
	key := cache.QuoteKey(string(market), t)
	if v, ok := s.cfg.Cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("quote").Inc()
		return v.(*provider.Quote), nil
	}
	metrics.CacheMisses.WithLabelValues("quote").Inc()

	v, err, _ := s.sf.Do(key, func() (any, error) {
		q, err := s.cfg.Fetcher.Quote(ctx, t, market)
		if err != nil {
			if errors.Is(err, provider.ErrNotFound) {
				s.cfg.Cache.Put(key, (*provider.Quote)(nil), s.cfg.QuoteTTL)
				return (*provider.Quote)(nil), nil
			}
			return nil, err
		}
		s.cfg.Cache.Put(key, q, s.cfg.QuoteTTL)
		return q, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.cfg.Logger.Warn("quote fetch failed", zap.String("ticker", t), zap.Error(err))
		return nil, nil
	}
	return v.(*provider.Quote), nil
}

// GetQuotes fetches all tickers concurrently, each through its own
// independent fallback chain, and returns whatever succeeded. A ticker
// that resolves nowhere is simply absent from the map.
func (s *Service) GetQuotes(ctx context.Context, tickers []string, market symbols.Market) map[string]*provider.Quote {
	out := make(map[string]*provider.Quote, len(tickers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	seen := make(map[string]struct{}, len(tickers))
	for _, raw := range tickers {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}
		g.Go(func() error {
			q, err := s.GetQuote(gctx, ticker, market)
			if err != nil || q == nil {
				// partial results by design; a miss is not a group failure
				return nil
			}
			mu.Lock()
			out[ticker] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// GetHistory returns an ascending OHLCV series, possibly empty, never nil.
func (s *Service) GetHistory(ctx context.Context, ticker string, rng provider.Range, market symbols.Market) ([]provider.HistoryPoint, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return []provider.HistoryPoint{}, nil
	}
	key := cache.HistoryKey(string(market), t, string(rng))
	if v, ok := s.cfg.Cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("history").Inc()
		return v.([]provider.HistoryPoint), nil
	}
	metrics.CacheMisses.WithLabelValues("history").Inc()

	v, err, _ := s.sf.Do(key, func() (any, error) {
		points, err := s.cfg.Fetcher.History(ctx, t, rng, market)
		if err != nil {
			if errors.Is(err, provider.ErrNotFound) {
				empty := []provider.HistoryPoint{}
				s.cfg.Cache.Put(key, empty, s.cfg.HistoryTTL)
				return empty, nil
			}
			return nil, err
		}
		s.cfg.Cache.Put(key, points, s.cfg.HistoryTTL)
		return points, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.cfg.Logger.Warn("history fetch failed", zap.String("ticker", t), zap.Error(err))
		return []provider.HistoryPoint{}, nil
	}
	return v.([]provider.HistoryPoint), nil
}

// SearchSymbols returns matches for a free-text query, possibly empty.
// Provider failures yield an empty list and are not cached, so the next
// keystroke gets a fresh attempt.
func (s *Service) SearchSymbols(ctx context.Context, query string) []provider.SearchResult {
	q := strings.TrimSpace(query)
	if q == "" {
		return []provider.SearchResult{}
	}
	key := cache.SearchKey(q)
	if v, ok := s.cfg.Cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("search").Inc()
		return v.([]provider.SearchResult)
	}
	metrics.CacheMisses.WithLabelValues("search").Inc()

	v, err, _ := s.sf.Do(key, func() (any, error) {
		results, err := s.cfg.Fetcher.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		s.cfg.Cache.Put(key, results, s.cfg.SearchTTL)
		return results, nil
	})
	if err != nil {
		s.cfg.Logger.Warn("search failed", zap.String("query", q), zap.Error(err))
		return []provider.SearchResult{}
	}
	return v.([]provider.SearchResult)
}
