package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stockfeed/internal/provider"
	"stockfeed/internal/service"
	"stockfeed/internal/symbols"
)

type fakeFetcher struct {
	quotes  map[string]*provider.Quote
	series  map[string][]provider.HistoryPoint
	results []provider.SearchResult
}

func (f fakeFetcher) Quote(_ context.Context, ticker string, _ symbols.Market) (*provider.Quote, error) {
	if q, ok := f.quotes[ticker]; ok {
		return q, nil
	}
	return nil, provider.ErrNotFound
}

func (f fakeFetcher) History(_ context.Context, ticker string, _ provider.Range, _ symbols.Market) ([]provider.HistoryPoint, error) {
	if s, ok := f.series[ticker]; ok {
		return s, nil
	}
	return nil, provider.ErrNotFound
}

func (f fakeFetcher) Search(_ context.Context, _ string) ([]provider.SearchResult, error) {
	return f.results, nil
}

func newTestService(f fakeFetcher) *service.Service {
	return service.New(service.Config{Fetcher: f})
}

func TestHandleQuote_OK(t *testing.T) {
	svc := newTestService(fakeFetcher{quotes: map[string]*provider.Quote{
		"DANGCEM": {Symbol: "DANGCEM.LG", Price: 455.9, Currency: "NGN", Source: "FMP"},
	}})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/quote?symbol=dangcem&market=ngx", nil)
	handleQuote(svc)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var q provider.Quote
	if err := json.Unmarshal(rr.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Symbol != "DANGCEM.LG" || q.Price != 455.9 {
		t.Fatalf("unexpected: %+v", q)
	}
}

func TestHandleQuote_UnknownSymbolIs404(t *testing.T) {
	svc := newTestService(fakeFetcher{})
	rr := httptest.NewRecorder()
	handleQuote(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/quote?symbol=NOPE", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("want a JSON error body")
	}
}

func TestHandleQuote_MissingSymbolIs400(t *testing.T) {
	svc := newTestService(fakeFetcher{})
	rr := httptest.NewRecorder()
	handleQuote(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/quote", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestHandleQuote_MethodNotAllowed(t *testing.T) {
	svc := newTestService(fakeFetcher{})
	rr := httptest.NewRecorder()
	handleQuote(svc)(rr, httptest.NewRequest(http.MethodPost, "/api/quote?symbol=X", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestHandleQuotes_PartialResults(t *testing.T) {
	svc := newTestService(fakeFetcher{quotes: map[string]*provider.Quote{
		"AAA": {Symbol: "AAA", Price: 1},
		"CCC": {Symbol: "CCC", Price: 3},
	}})
	rr := httptest.NewRecorder()
	handleQuotes(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=AAA,BBB,CCC", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp quotesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Quotes) != 2 {
		t.Fatalf("want 2 quotes, got %+v", resp.Quotes)
	}
	if _, ok := resp.Quotes["BBB"]; ok {
		t.Fatal("unresolved symbol must be absent, not null")
	}
}

func TestHandleQuotes_PostBody(t *testing.T) {
	svc := newTestService(fakeFetcher{quotes: map[string]*provider.Quote{
		"GTCO": {Symbol: "GTCO.LG", Price: 44.5},
	}})
	rr := httptest.NewRecorder()
	body := strings.NewReader(`{"symbols":["gtco"],"market":"ngx"}`)
	handleQuotes(svc)(rr, httptest.NewRequest(http.MethodPost, "/api/quotes", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp quotesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q := resp.Quotes["GTCO"]; q == nil || q.Symbol != "GTCO.LG" {
		t.Fatalf("unexpected: %+v", resp.Quotes)
	}
}

func TestHandleQuotes_RejectsUnknownFieldsAndEmpty(t *testing.T) {
	svc := newTestService(fakeFetcher{})

	rr := httptest.NewRecorder()
	handleQuotes(svc)(rr, httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(`{"symbols":["A"],"junk":1}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handleQuotes(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/quotes", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing symbols: status=%d", rr.Code)
	}
}

func TestHandleQuotes_TooManySymbols(t *testing.T) {
	svc := newTestService(fakeFetcher{})
	// the cap fires before any fetching happens
	parts := make([]string, 101)
	for i := range parts {
		parts[i] = fmt.Sprintf("S%03d", i)
	}
	rr := httptest.NewRecorder()
	handleQuotes(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/quotes?symbols="+strings.Join(parts, ","), nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestHandleHistory_EmptySeriesIs200(t *testing.T) {
	svc := newTestService(fakeFetcher{series: map[string][]provider.HistoryPoint{}})
	rr := httptest.NewRecorder()
	handleHistory(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/history?symbol=NOPE&range=1mo", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp historyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Points == nil || len(resp.Points) != 0 {
		t.Fatalf("want empty array, got %v", resp.Points)
	}
	if resp.Range != "1mo" {
		t.Fatalf("range %q", resp.Range)
	}
}

func TestHandleHistory_BadRangeDefaults(t *testing.T) {
	svc := newTestService(fakeFetcher{series: map[string][]provider.HistoryPoint{
		"MSFT": {{Close: 410}},
	}})
	rr := httptest.NewRecorder()
	handleHistory(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/history?symbol=msft&range=bogus", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp historyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Range != "1mo" || resp.Symbol != "MSFT" {
		t.Fatalf("resp %+v", resp)
	}
}

func TestHandleSearch(t *testing.T) {
	svc := newTestService(fakeFetcher{results: []provider.SearchResult{
		{Symbol: "DANGCEM.LG", Name: "Dangote Cement Plc", Exchange: "NSE"},
	}})
	rr := httptest.NewRecorder()
	handleSearch(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/search?q=dangote", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp searchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Symbol != "DANGCEM.LG" {
		t.Fatalf("results %+v", resp.Results)
	}
}

func TestHandleSearch_EmptyQueryIsEmptyList(t *testing.T) {
	svc := newTestService(fakeFetcher{results: []provider.SearchResult{{Symbol: "X"}}})
	rr := httptest.NewRecorder()
	handleSearch(svc)(rr, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp searchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("results %+v", resp.Results)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, ,b,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %v", got)
	}
}
