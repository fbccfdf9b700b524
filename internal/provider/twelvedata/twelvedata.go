// Package twelvedata adapts the Twelve Data REST API. All numeric fields
// arrive string-encoded; errors arrive as a 200 with an error envelope.
package twelvedata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"stockfeed/internal/httpx"
	"stockfeed/internal/provider"
)

type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	// OutputSize caps time_series rows per request.
	OutputSize int
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "TwelveData"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twelvedata.com"
	}
	if cfg.OutputSize <= 0 {
		cfg.OutputSize = 300
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// errEnvelope is present on every failed call, with HTTP 200.
type errEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (p *Provider) checkEnvelope(e errEnvelope) error {
	if e.Status != "error" {
		return nil
	}
	switch e.Code {
	case 404:
		return provider.ErrNotFound
	case 429:
		return provider.Unavailable(p.cfg.Name, "rate limited", fmt.Errorf("%s", e.Message))
	default:
		return provider.Unavailable(p.cfg.Name, fmt.Sprintf("api error %d", e.Code), fmt.Errorf("%s", e.Message))
	}
}

type quoteResponse struct {
	errEnvelope
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Exchange      string `json:"exchange"`
	Currency      string `json:"currency"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Close         string `json:"close"`
	Volume        string `json:"volume"`
	PreviousClose string `json:"previous_close"`
}

func (p *Provider) FetchQuote(ctx context.Context, symbol string) (*provider.Quote, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s&apikey=%s", p.cfg.BaseURL, url.QueryEscape(symbol), url.QueryEscape(p.cfg.APIKey))
	var resp quoteResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, provider.WrapTransport(p.cfg.Name, err)
	}
	if err := p.checkEnvelope(resp.errEnvelope); err != nil {
		return nil, err
	}
	price, err := parseFloat(resp.Close)
	if err != nil {
		return nil, provider.Unavailable(p.cfg.Name, "parse error", err)
	}
	if price == 0 {
		return nil, provider.ErrNotFound
	}
	// secondary fields are best-effort; a malformed one degrades to zero
	prevClose, _ := parseFloat(resp.PreviousClose)
	open, _ := parseFloat(resp.Open)
	high, _ := parseFloat(resp.High)
	low, _ := parseFloat(resp.Low)
	volume, _ := strconv.ParseInt(resp.Volume, 10, 64)
	q := &provider.Quote{
		Symbol:        resp.Symbol,
		Name:          resp.Name,
		Price:         price,
		PreviousClose: prevClose,
		Open:          open,
		DayHigh:       high,
		DayLow:        low,
		Volume:        volume,
		Currency:      resp.Currency,
		Exchange:      resp.Exchange,
		Source:        p.cfg.Name,
		FetchedAt:     time.Now().UTC(),
	}
	q.Derive()
	return q, nil
}

type seriesResponse struct {
	errEnvelope
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

func (p *Provider) FetchHistory(ctx context.Context, symbol string, rng provider.Range) ([]provider.HistoryPoint, error) {
	interval, size := seriesParams(rng, p.cfg.OutputSize)
	u := fmt.Sprintf("%s/time_series?symbol=%s&interval=%s&outputsize=%d&apikey=%s",
		p.cfg.BaseURL, url.QueryEscape(symbol), interval, size, url.QueryEscape(p.cfg.APIKey))
	var resp seriesResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, provider.WrapTransport(p.cfg.Name, err)
	}
	if err := p.checkEnvelope(resp.errEnvelope); err != nil {
		return nil, err
	}
	points := make([]provider.HistoryPoint, 0, len(resp.Values))
	seen := make(map[int64]struct{}, len(resp.Values))
	for _, v := range resp.Values {
		ts, err := parseDatetime(v.Datetime)
		if err != nil {
			continue
		}
		if _, dup := seen[ts.Unix()]; dup {
			continue
		}
		closeV, err := parseFloat(v.Close)
		if err != nil {
			continue
		}
		seen[ts.Unix()] = struct{}{}
		open, _ := parseFloat(v.Open)
		high, _ := parseFloat(v.High)
		low, _ := parseFloat(v.Low)
		volume, _ := strconv.ParseInt(v.Volume, 10, 64)
		points = append(points, provider.HistoryPoint{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeV,
			Volume:    volume,
		})
	}
	// API serves newest first
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	return strconv.ParseFloat(s, 64)
}

func parseDatetime(s string) (time.Time, error) {
	if ts, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		return ts, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// seriesParams maps a Range onto a Twelve Data interval and row count.
func seriesParams(rng provider.Range, maxSize int) (string, int) {
	var interval string
	var size int
	switch rng {
	case provider.Range1D:
		interval, size = "5min", 78
	case provider.Range5D:
		interval, size = "30min", 65
	case provider.Range1M:
		interval, size = "1day", 22
	case provider.Range3M:
		interval, size = "1day", 66
	case provider.Range6M:
		interval, size = "1day", 132
	case provider.Range1Y:
		interval, size = "1day", 252
	case provider.Range5Y:
		interval, size = "1week", 261
	default:
		interval, size = "1month", maxSize
	}
	if size > maxSize {
		size = maxSize
	}
	return interval, size
}
