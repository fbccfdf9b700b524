package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Quote is the normalized snapshot all providers parse into.
// Constructed fresh on every successful fetch and never mutated;
// a newer fetch supersedes it wholesale.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	PreviousClose float64   `json:"previous_close"`
	Open          float64   `json:"open"`
	DayHigh       float64   `json:"day_high"`
	DayLow        float64   `json:"day_low"`
	Volume        int64     `json:"volume"`
	Currency      string    `json:"currency"`
	Exchange      string    `json:"exchange,omitempty"`
	Source        string    `json:"source"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Derive fills Change and ChangePercent from Price and PreviousClose.
// A zero previous close yields a zero percent change, never NaN or Inf.
func (q *Quote) Derive() {
	q.Change = q.Price - q.PreviousClose
	if q.PreviousClose != 0 {
		q.ChangePercent = q.Change / q.PreviousClose * 100
	} else {
		q.ChangePercent = 0
	}
	if math.IsNaN(q.ChangePercent) || math.IsInf(q.ChangePercent, 0) {
		q.ChangePercent = 0
	}
}

// HistoryPoint is one OHLCV sample.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// SearchResult is one symbol lookup hit, in provider relevance order.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange,omitempty"`
}

// Range selects how far back a history request reaches.
type Range string

const (
	Range1D  Range = "1d"
	Range5D  Range = "5d"
	Range1M  Range = "1mo"
	Range3M  Range = "3mo"
	Range6M  Range = "6mo"
	Range1Y  Range = "1y"
	Range5Y  Range = "5y"
	RangeMax Range = "max"
)

// ParseRange maps a request string onto a known Range, defaulting to 1mo.
func ParseRange(s string) Range {
	switch Range(s) {
	case Range1D, Range5D, Range1M, Range3M, Range6M, Range1Y, Range5Y, RangeMax:
		return Range(s)
	}
	return Range1M
}

// ErrNotFound signals the provider has no data for the symbol. This covers
// zero or absent price fields: upstream APIs use zero to mean "no data",
// not a zero-priced instrument.
var ErrNotFound = errors.New("symbol not found")

// UnavailableError marks an infrastructure-level provider failure: timeout,
// non-2xx status, malformed payload. The fallback chain treats it like a
// miss and moves on.
type UnavailableError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s unavailable: %s", e.Provider, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err into an UnavailableError for the named provider.
func Unavailable(providerName, reason string, err error) *UnavailableError {
	return &UnavailableError{Provider: providerName, Reason: reason, Err: err}
}

// QuoteFetcher fetches the current quote for an already-resolved,
// provider-specific symbol. Implementations do not retry or cache.
type QuoteFetcher interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}

// HistoryFetcher fetches an OHLCV series, ascending by timestamp.
// An empty series for a valid symbol is a legitimate result.
type HistoryFetcher interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, rng Range) ([]HistoryPoint, error)
}

// Searcher resolves free-text queries to candidate symbols.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]SearchResult, error)
}
