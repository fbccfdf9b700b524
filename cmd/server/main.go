package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if cfg.FMP.Enabled && cfg.FMP.APIKey == "" {
		logger.Warn("fmp.enabled=true but FMP_API_KEY not set")
	}
	if cfg.TwelveData.Enabled && cfg.TwelveData.APIKey == "" {
		logger.Warn("twelvedata.enabled=true but TWELVEDATA_API_KEY not set")
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

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/quote", handleQuote(svc))
	mux.HandleFunc("/api/quotes", handleQuotes(svc))
	mux.HandleFunc("/api/history", handleHistory(svc))
	mux.HandleFunc("/api/search", handleSearch(svc))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildOrchestrator assembles the fallback chain in fixed priority order:
// FMP first (richest equity coverage), Yahoo as the unauthenticated
// fallback, Twelve Data last when enabled.
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
