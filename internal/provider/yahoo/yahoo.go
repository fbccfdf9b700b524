// Package yahoo adapts the unauthenticated Yahoo Finance v8 chart API.
// It serves quotes (from chart metadata) and OHLCV history, and acts as
// the fallback when the keyed providers miss.
package yahoo

import (
	"net/http"
	"net/url"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=yahoo.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Yahoo Finance chart API.
type Client struct {
	name       string
	baseURL    string
	httpClient HTTPClient
	header     http.Header
}

// Option is a configuration option for the client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new Yahoo Finance chart client.
func NewClient(options ...Option) *Client {
	c := &Client{
		name:       "Yahoo",
		baseURL:    "https://query1.finance.yahoo.com",
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	c.header.Set("User-Agent", "stockfeed/1.0")
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

func (c *Client) chartURL(symbol string, rng, interval string) string {
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", interval)
	q.Set("includePrePost", "false")
	return c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()
}
