// Package market fetches index quotes from a Finnhub-style quote API and
// classifies the daily move into a site-facing status.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the Finnhub REST endpoint.
const DefaultBaseURL = "https://finnhub.io/api/v1"

// DefaultSymbol is the S&P 500 ETF, used as an index proxy.
const DefaultSymbol = "SPY"

// Quote is a single index quote. ChangePercent is nil when the provider
// omitted the "dp" field.
type Quote struct {
	Symbol        string
	Current       float64
	ChangePercent *float64
	FetchedAt     time.Time
}

type quoteDTO struct {
	Current       float64  `json:"c"`
	ChangePercent *float64 `json:"dp"`
}

// Client talks to the quote API. The zero value is not usable; use NewClient.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used by tests and self-hosted proxies).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient builds a quote client with a 10 second total request timeout.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        10,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the quote provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// GetQuote fetches the current quote for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("token", c.apiKey)
	reqURL := c.baseURL + "/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Quote{}, fmt.Errorf("read quote response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Quote{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var dto quoteDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return Quote{}, fmt.Errorf("decode quote response: %w", err)
	}
	return Quote{
		Symbol:        symbol,
		Current:       dto.Current,
		ChangePercent: dto.ChangePercent,
		FetchedAt:     time.Now(),
	}, nil
}
