// Package fmp adapts the Financial Modeling Prep REST API. It is the
// highest-priority quote/history source and the only search source.
package fmp

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"stockfeed/internal/httpx"
	"stockfeed/internal/provider"
)

type Config struct {
	Name     string
	BaseURL  string
	APIKey   string
	Currency string // reported when the API omits one
	// SuffixCurrencies overrides Currency per exchange suffix,
	// e.g. {".LG": "NGN"}.
	SuffixCurrencies map[string]string
	SearchLimit      int
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "FMP"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://financialmodelingprep.com/api/v3"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

type quoteRow struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	ChangesPercentage float64 `json:"changesPercentage"`
	Change            float64 `json:"change"`
	DayLow            float64 `json:"dayLow"`
	DayHigh           float64 `json:"dayHigh"`
	PreviousClose     float64 `json:"previousClose"`
	Open              float64 `json:"open"`
	Volume            int64   `json:"volume"`
	Exchange          string  `json:"exchange"`
}

func (p *Provider) FetchQuote(ctx context.Context, symbol string) (*provider.Quote, error) {
	var rows []quoteRow
	u := fmt.Sprintf("%s/quote/%s?apikey=%s", p.cfg.BaseURL, url.PathEscape(symbol), url.QueryEscape(p.cfg.APIKey))
	if err := p.client.GetJSON(ctx, u, &rows); err != nil {
		return nil, provider.WrapTransport(p.cfg.Name, err)
	}
	if len(rows) == 0 {
		return nil, provider.ErrNotFound
	}
	r := rows[0]
	// zero price means the API has no data for the symbol
	if r.Price == 0 {
		return nil, provider.ErrNotFound
	}
	q := &provider.Quote{
		Symbol:        r.Symbol,
		Name:          r.Name,
		Price:         r.Price,
		PreviousClose: r.PreviousClose,
		Open:          r.Open,
		DayHigh:       r.DayHigh,
		DayLow:        r.DayLow,
		Volume:        r.Volume,
		Currency:      p.currencyFor(r.Symbol),
		Exchange:      r.Exchange,
		Source:        p.cfg.Name,
		FetchedAt:     time.Now().UTC(),
	}
	q.Derive()
	return q, nil
}

type historyResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume int64   `json:"volume"`
	} `json:"historical"`
}

func (p *Provider) FetchHistory(ctx context.Context, symbol string, rng provider.Range) ([]provider.HistoryPoint, error) {
	from := rangeStart(rng, time.Now().UTC())
	u := fmt.Sprintf("%s/historical-price-full/%s?apikey=%s", p.cfg.BaseURL, url.PathEscape(symbol), url.QueryEscape(p.cfg.APIKey))
	if !from.IsZero() {
		u += "&from=" + from.Format("2006-01-02")
	}
	var resp historyResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, provider.WrapTransport(p.cfg.Name, err)
	}
	if resp.Symbol == "" && len(resp.Historical) == 0 {
		// FMP answers an unknown symbol with an empty object
		return nil, provider.ErrNotFound
	}
	points := make([]provider.HistoryPoint, 0, len(resp.Historical))
	seen := make(map[int64]struct{}, len(resp.Historical))
	for _, h := range resp.Historical {
		ts, err := time.ParseInLocation("2006-01-02", h.Date, time.UTC)
		if err != nil {
			continue
		}
		if _, dup := seen[ts.Unix()]; dup {
			continue
		}
		seen[ts.Unix()] = struct{}{}
		points = append(points, provider.HistoryPoint{
			Timestamp: ts,
			Open:      h.Open,
			High:      h.High,
			Low:       h.Low,
			Close:     h.Close,
			Volume:    h.Volume,
		})
	}
	// API serves newest first; callers get ascending order
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points, nil
}

type searchRow struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	StockExchange     string `json:"stockExchange"`
	ExchangeShortName string `json:"exchangeShortName"`
}

func (p *Provider) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	u := fmt.Sprintf("%s/search?query=%s&limit=%d&apikey=%s",
		p.cfg.BaseURL, url.QueryEscape(query), p.cfg.SearchLimit, url.QueryEscape(p.cfg.APIKey))
	var rows []searchRow
	if err := p.client.GetJSON(ctx, u, &rows); err != nil {
		return nil, provider.WrapTransport(p.cfg.Name, err)
	}
	out := make([]provider.SearchResult, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == "" {
			continue
		}
		exch := r.ExchangeShortName
		if exch == "" {
			exch = r.StockExchange
		}
		out = append(out, provider.SearchResult{Symbol: r.Symbol, Name: r.Name, Exchange: exch})
	}
	return out, nil
}

func (p *Provider) currencyFor(symbol string) string {
	for suffix, cur := range p.cfg.SuffixCurrencies {
		if strings.HasSuffix(symbol, suffix) {
			return cur
		}
	}
	return p.cfg.Currency
}

// rangeStart converts a Range into the earliest date to request.
// The zero time means "no lower bound" (max range).
func rangeStart(rng provider.Range, now time.Time) time.Time {
	switch rng {
	case provider.Range1D:
		return now.AddDate(0, 0, -1)
	case provider.Range5D:
		return now.AddDate(0, 0, -5)
	case provider.Range1M:
		return now.AddDate(0, -1, 0)
	case provider.Range3M:
		return now.AddDate(0, -3, 0)
	case provider.Range6M:
		return now.AddDate(0, -6, 0)
	case provider.Range1Y:
		return now.AddDate(-1, 0, 0)
	case provider.Range5Y:
		return now.AddDate(-5, 0, 0)
	default:
		return time.Time{}
	}
}
