package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		require.Equal(t, "SPY", r.URL.Query().Get("symbol"))
		require.Equal(t, "test-key", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"c": 512.34, "dp": -3.21}`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))
	q, err := c.GetQuote(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", q.Symbol)
	assert.Equal(t, 512.34, q.Current)
	require.NotNil(t, q.ChangePercent)
	assert.Equal(t, -3.21, *q.ChangePercent)
	assert.False(t, q.FetchedAt.IsZero())
}

func TestGetQuoteMissingChangePercent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c": 498.10}`))
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL))
	q, err := c.GetQuote(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Nil(t, q.ChangePercent)
}

func TestGetQuoteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient("bad", WithBaseURL(server.URL))
	_, err := c.GetQuote(context.Background(), "SPY")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Invalid API key")
}

func TestGetQuoteBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL))
	_, err := c.GetQuote(context.Background(), "SPY")
	assert.ErrorContains(t, err, "decode quote response")
}

func TestGetQuoteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.GetQuote(context.Background(), "SPY")
	require.Error(t, err)
}

func TestGetQuoteContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewClient("k", WithBaseURL(server.URL))
	_, err := c.GetQuote(ctx, "SPY")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
