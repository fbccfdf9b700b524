// Command fetch is a one-shot probe for the aggregation layer: fetch a
// quote, a history series or search results from the real providers and
// print the canonical JSON. With -poll it keeps polling like a UI widget
// would, printing each applied snapshot.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stockfeed/internal/cache"
	"stockfeed/internal/config"
	"stockfeed/internal/fallback"
	"stockfeed/internal/httpx"
	"stockfeed/internal/provider"
	"stockfeed/internal/provider/fmp"
	"stockfeed/internal/provider/twelvedata"
	"stockfeed/internal/provider/yahoo"
	"stockfeed/internal/service"
	"stockfeed/internal/symbols"
	"stockfeed/internal/watch"
)

func main() {
	var (
		symbol     string
		market     string
		kind       string
		rng        string
		poll       bool
		configPath string
	)
	flag.StringVar(&symbol, "symbol", getenv("SYMBOL", "DANGCEM"), "ticker, or free-text query for -kind search")
	flag.StringVar(&market, "market", getenv("MARKET", "ngx"), "market flag: primary or ngx")
	flag.StringVar(&kind, "kind", "quote", "quote | history | search")
	flag.StringVar(&rng, "range", "1mo", "history range: 1d 5d 1mo 3mo 6mo 1y 5y max")
	flag.BoolVar(&poll, "poll", false, "keep polling the quote until interrupted")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	svc := service.New(service.Config{
		Fetcher:          buildOrchestrator(cfg, httpClient, logger),
		Cache:            cache.New(),
		QuoteTTL:         time.Duration(cfg.Cache.QuoteTTLSec) * time.Second,
		HistoryTTL:       time.Duration(cfg.Cache.HistoryTTLSec) * time.Second,
		SearchTTL:        time.Duration(cfg.Cache.SearchTTLSec) * time.Second,
		BatchConcurrency: cfg.Fallback.BatchConcurrency,
		Logger:           logger,
	})

	mkt := symbols.ParseMarket(market)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if poll {
		pollQuote(ctx, svc, cfg, symbol, mkt)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch kind {
	case "quote":
		q, err := svc.GetQuote(callCtx, symbol, mkt)
		if err != nil {
			logger.Fatal("quote", zap.Error(err))
		}
		if q == nil {
			fmt.Println("no data for", symbol)
			os.Exit(1)
		}
		printJSON(q)
	case "history":
		points, err := svc.GetHistory(callCtx, symbol, provider.ParseRange(rng), mkt)
		if err != nil {
			logger.Fatal("history", zap.Error(err))
		}
		printJSON(points)
	case "search":
		printJSON(svc.SearchSymbols(callCtx, symbol))
	default:
		fmt.Fprintln(os.Stderr, "unknown -kind:", kind)
		os.Exit(2)
	}
}

// pollQuote drives the same polling contract the UI uses, printing each
// snapshot as it is applied.
func pollQuote(ctx context.Context, svc *service.Service, cfg config.Config, symbol string, mkt symbols.Market) {
	p := watch.NewQuotePoller(watch.PollerConfig{
		Interval: time.Duration(cfg.Watch.PollIntervalSec) * time.Second,
		Fetch: func(ctx context.Context) (*provider.Quote, error) {
			return svc.GetQuote(ctx, symbol, mkt)
		},
		OnUpdate: func(s watch.Snapshot) {
			if s.Loading {
				return
			}
			if s.Err != "" {
				fmt.Printf("%s  %s: %s\n", time.Now().Format(time.TimeOnly), symbol, s.Err)
				return
			}
			fmt.Printf("%s  %s  %.2f (%+.2f%%)\n", time.Now().Format(time.TimeOnly), s.Quote.Symbol, s.Quote.Price, s.Quote.ChangePercent)
		},
	})
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// buildOrchestrator mirrors the server's provider priority: FMP, then
// Yahoo, then Twelve Data.
func buildOrchestrator(cfg config.Config, httpClient *httpx.Client, logger *zap.Logger) *fallback.Orchestrator {
	var quotes []provider.QuoteFetcher
	var history []provider.HistoryFetcher
	var search provider.Searcher

	if cfg.FMP.Enabled {
		p := fmp.New(fmp.Config{
			BaseURL:          cfg.FMP.Endpoint,
			APIKey:           cfg.FMP.APIKey,
			Currency:         cfg.FMP.Currency,
			SuffixCurrencies: map[string]string{cfg.Resolver.ExchangeSuffix: "NGN"},
			SearchLimit:      cfg.FMP.SearchLimit,
		}, httpClient)
		quotes = append(quotes, p)
		history = append(history, p)
		search = p
	}
	if cfg.Yahoo.Enabled {
		opts := []yahoo.Option{yahoo.WithHTTPClient(httpClient.HTTP)}
		if cfg.Yahoo.Endpoint != "" {
			opts = append(opts, yahoo.WithBaseURL(cfg.Yahoo.Endpoint))
		}
		p := yahoo.NewClient(opts...)
		quotes = append(quotes, p)
		history = append(history, p)
	}
	if cfg.TwelveData.Enabled {
		p := twelvedata.New(twelvedata.Config{
			BaseURL:    cfg.TwelveData.Endpoint,
			APIKey:     cfg.TwelveData.APIKey,
			OutputSize: cfg.TwelveData.OutputSize,
		}, httpClient)
		quotes = append(quotes, p)
		history = append(history, p)
	}

	return fallback.New(fallback.Config{
		Resolver:       symbols.Resolver{Suffix: cfg.Resolver.ExchangeSuffix},
		Quotes:         quotes,
		History:        history,
		Search:         search,
		AttemptTimeout: time.Duration(cfg.Fallback.AttemptTimeoutSec) * time.Second,
		Logger:         logger,
	})
}
