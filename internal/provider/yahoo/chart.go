package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stockfeed/internal/provider"
)

// chartResponse is the v8 chart envelope. Indicator arrays are positional
// against Timestamp and may contain nulls for halted sessions.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Currency             string  `json:"currency"`
		Symbol               string  `json:"symbol"`
		ExchangeName         string  `json:"exchangeName"`
		LongName             string  `json:"longName"`
		ShortName            string  `json:"shortName"`
		RegularMarketPrice   float64 `json:"regularMarketPrice"`
		ChartPreviousClose   float64 `json:"chartPreviousClose"`
		PreviousClose        float64 `json:"previousClose"`
		RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  int64   `json:"regularMarketVolume"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// fetchChart performs one chart call and returns the first result.
func (c *Client) fetchChart(ctx context.Context, symbol, rng, interval string) (*chartResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.chartURL(symbol, rng, interval), http.NoBody)
	if err != nil {
		return nil, provider.Unavailable(c.name, "bad request", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.WrapTransport(c.name, err)
	}
	defer res.Body.Close()

	// Yahoo answers unknown symbols with a 404 and an error envelope.
	if res.StatusCode == http.StatusNotFound {
		return nil, provider.ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
		return nil, provider.Unavailable(c.name, fmt.Sprintf("http %d", res.StatusCode), fmt.Errorf("%s", b))
	}

	var cr chartResponse
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return nil, provider.Unavailable(c.name, "parse error", err)
	}
	if cr.Chart.Error != nil {
		return nil, provider.ErrNotFound
	}
	if len(cr.Chart.Result) == 0 {
		return nil, provider.ErrNotFound
	}
	return &cr.Chart.Result[0], nil
}

// FetchQuote builds a quote from one-day chart metadata.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*provider.Quote, error) {
	r, err := c.fetchChart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}
	m := r.Meta
	if m.RegularMarketPrice == 0 {
		// zero price is the API's way of saying it has nothing
		return nil, provider.ErrNotFound
	}
	prevClose := m.ChartPreviousClose
	if m.PreviousClose != 0 {
		prevClose = m.PreviousClose
	}
	name := m.LongName
	if name == "" {
		name = m.ShortName
	}
	var open float64
	if qs := r.Indicators.Quote; len(qs) > 0 {
		for _, v := range qs[0].Open {
			if v != nil {
				open = *v
				break
			}
		}
	}
	q := &provider.Quote{
		Symbol:        m.Symbol,
		Name:          name,
		Price:         m.RegularMarketPrice,
		PreviousClose: prevClose,
		Open:          open,
		DayHigh:       m.RegularMarketDayHigh,
		DayLow:        m.RegularMarketDayLow,
		Volume:        m.RegularMarketVolume,
		Currency:      m.Currency,
		Exchange:      m.ExchangeName,
		Source:        c.name,
		FetchedAt:     time.Now().UTC(),
	}
	q.Derive()
	return q, nil
}

// FetchHistory builds an ascending OHLCV series from the chart arrays.
// Null indicator slots and duplicate timestamps are skipped.
func (c *Client) FetchHistory(ctx context.Context, symbol string, rng provider.Range) ([]provider.HistoryPoint, error) {
	r, err := c.fetchChart(ctx, symbol, string(rng), intervalFor(rng))
	if err != nil {
		return nil, err
	}
	if len(r.Indicators.Quote) == 0 {
		return []provider.HistoryPoint{}, nil
	}
	iq := r.Indicators.Quote[0]
	points := make([]provider.HistoryPoint, 0, len(r.Timestamp))
	var lastTS int64 = -1
	for i, ts := range r.Timestamp {
		if ts == lastTS {
			continue
		}
		p := provider.HistoryPoint{Timestamp: time.Unix(ts, 0).UTC()}
		ok := false
		if i < len(iq.Close) && iq.Close[i] != nil {
			p.Close = *iq.Close[i]
			ok = true
		}
		if !ok {
			continue
		}
		if i < len(iq.Open) && iq.Open[i] != nil {
			p.Open = *iq.Open[i]
		}
		if i < len(iq.High) && iq.High[i] != nil {
			p.High = *iq.High[i]
		}
		if i < len(iq.Low) && iq.Low[i] != nil {
			p.Low = *iq.Low[i]
		}
		if i < len(iq.Volume) && iq.Volume[i] != nil {
			p.Volume = *iq.Volume[i]
		}
		points = append(points, p)
		lastTS = ts
	}
	return points, nil
}

// intervalFor picks a sample interval that keeps the series size sane
// for each range.
func intervalFor(rng provider.Range) string {
	switch rng {
	case provider.Range1D:
		return "5m"
	case provider.Range5D:
		return "30m"
	case provider.Range5Y:
		return "1wk"
	case provider.RangeMax:
		return "1mo"
	default:
		return "1d"
	}
}
