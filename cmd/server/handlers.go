package main

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"stockfeed/internal/provider"
	"stockfeed/internal/service"
	"stockfeed/internal/symbols"
)

type errorResponse struct {
	Error string `json:"error"`
}

type quotesResponse struct {
	Quotes map[string]*provider.Quote `json:"quotes"`
}

type historyResponse struct {
	Symbol string                  `json:"symbol"`
	Range  string                  `json:"range"`
	Points []provider.HistoryPoint `json:"points"`
}

type searchResponse struct {
	Results []provider.SearchResult `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// handleQuote serves GET /api/quote?symbol=&market=. A symbol no provider
// knows gets a 404 with a JSON body; that is a renderable state, not a
// server fault.
func handleQuote(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
		if symbol == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing symbol query param"})
			return
		}
		market := symbols.ParseMarket(r.URL.Query().Get("market"))
		q, err := svc.GetQuote(r.Context(), symbol, market)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request canceled"})
			return
		}
		if q == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no data for symbol"})
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

type quotesPostBody struct {
	Symbols []string `json:"symbols"`
	Market  string   `json:"market"`
}

// handleQuotes serves GET/POST /api/quotes. Partial results are the
// contract: symbols that resolve nowhere are absent from the map.
func handleQuotes(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tickers []string
		var market symbols.Market
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query().Get("symbols")
			if strings.TrimSpace(q) == "" {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing symbols query param"})
				return
			}
			tickers = splitCSV(q)
			market = symbols.ParseMarket(r.URL.Query().Get("market"))
		case http.MethodPost:
			var b quotesPostBody
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&b); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
				return
			}
			tickers = b.Symbols
			market = symbols.ParseMarket(b.Market)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		if len(tickers) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbols cannot be empty"})
			return
		}
		if len(tickers) > 100 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many symbols (max 100)"})
			return
		}
		writeJSON(w, http.StatusOK, quotesResponse{Quotes: svc.GetQuotes(r.Context(), tickers, market)})
	}
}

// handleHistory serves GET /api/history?symbol=&range=&market=. An empty
// series is a 200 with an empty points array.
func handleHistory(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
		if symbol == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing symbol query param"})
			return
		}
		rng := provider.ParseRange(r.URL.Query().Get("range"))
		market := symbols.ParseMarket(r.URL.Query().Get("market"))
		points, err := svc.GetHistory(r.Context(), symbol, rng, market)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request canceled"})
			return
		}
		writeJSON(w, http.StatusOK, historyResponse{Symbol: strings.ToUpper(symbol), Range: string(rng), Points: points})
	}
}

// handleSearch serves GET /api/search?q=. Failures and empty queries both
// render as an empty result list.
func handleSearch(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		results := svc.SearchSymbols(r.Context(), r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, searchResponse{Results: results})
	}
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses responses when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		// Prefer best speed to reduce CPU usage since payloads are JSON
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
