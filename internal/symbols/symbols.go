package symbols

import "strings"

// Market flags which exchange a bare ticker belongs to.
type Market string

const (
	// MarketPrimary is the default market; tickers pass through unchanged.
	MarketPrimary Market = "primary"
	// MarketNGX marks the Nigerian Exchange; tickers get the suffix appended.
	MarketNGX Market = "ngx"
)

// ParseMarket maps request strings onto a Market, defaulting to primary.
func ParseMarket(s string) Market {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ngx", "ng", "lagos":
		return MarketNGX
	}
	return MarketPrimary
}

// DefaultSuffix is the provider-facing suffix for NGX-listed tickers.
const DefaultSuffix = ".LG"

// Resolver expands a bare ticker into the ordered list of provider-facing
// candidate spellings, most likely to succeed first.
type Resolver struct {
	// Suffix appended for the secondary exchange. Empty means DefaultSuffix.
	Suffix string
}

// Candidates returns provider symbols to try in order. For NGX tickers the
// suffixed spelling comes first and the bare ticker second, which covers
// cross-listed or mis-flagged symbols. Empty input yields an empty list.
// Pure function, no I/O.
func (r Resolver) Candidates(ticker string, market Market) []string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return nil
	}
	if market != MarketNGX {
		return []string{t}
	}
	suffix := r.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if strings.HasSuffix(t, suffix) {
		return []string{t}
	}
	return []string{t + suffix, t}
}
