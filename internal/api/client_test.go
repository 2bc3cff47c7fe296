package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const samplePairs = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "ethereum",
      "dexId": "uniswap",
      "pairAddress": "0xabc",
      "baseToken": {"address": "0x1", "name": "Wrapped Ether", "symbol": "WETH"},
      "quoteToken": {"address": "0x2", "name": "USD Coin", "symbol": "USDC"},
      "priceUsd": "2500.12",
      "volume": {"h24": 1000000.5},
      "priceChange": {"h1": 0.25, "h24": -1.5},
      "liquidity": {"usd": 5000000}
    }
  ]
}`

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("")

		if c.baseURL != DefaultBaseURL {
			t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("https://api.example.com",
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
			WithUserAgent("pairstream/test"),
		)
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 10)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
		if c.userAgent != "pairstream/test" {
			t.Errorf("userAgent = %q", c.userAgent)
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "Not Found"}
	if err.Error() != "dexscreener api error 404: Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code     int
		expected bool
	}{
		{500, true},
		{503, true},
		{429, true},
		{400, false},
		{404, false},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.code}
		if got := err.IsRetryable(); got != tt.expected {
			t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

// TestGetPair tests the pair lookup endpoint.
func TestGetPair(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ethereum/0xabc" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/ethereum/0xabc")
			}
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q", r.Header.Get("Accept"))
			}
			w.Write([]byte(samplePairs))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		resp, err := c.GetPair(context.Background(), "ethereum", "0xabc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Pairs) != 1 {
			t.Fatalf("len(Pairs) = %d, want 1", len(resp.Pairs))
		}
		p := resp.Pairs[0]
		if p.PriceUsd != "2500.12" {
			t.Errorf("PriceUsd = %q, want %q", p.PriceUsd, "2500.12")
		}
		if p.BaseToken.Symbol != "WETH" || p.QuoteToken.Symbol != "USDC" {
			t.Errorf("tokens = %s/%s", p.BaseToken.Symbol, p.QuoteToken.Symbol)
		}
		if p.Liquidity == nil || p.Liquidity.USD != 5000000 {
			t.Errorf("Liquidity = %+v", p.Liquidity)
		}
		if p.PriceChange.H24 != -1.5 {
			t.Errorf("PriceChange.H24 = %v, want -1.5", p.PriceChange.H24)
		}
	})

	t.Run("null pairs decodes to empty list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":null}`))
		}))
		defer server.Close()

		resp, err := NewClient(server.URL).GetPair(context.Background(), "ethereum", "0xabc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Pairs == nil || len(resp.Pairs) != 0 {
			t.Errorf("Pairs = %v, want empty non-nil slice", resp.Pairs)
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).GetPair(context.Background(), "ethereum", "0xabc")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
		}
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).GetPair(context.Background(), "ethereum", "0xabc")
		if !errors.Is(err, ErrDecode) {
			t.Errorf("error = %v, want ErrDecode", err)
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(3, 10*time.Millisecond))
		body, err := c.doWithRetry(context.Background(), "/test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q", string(body))
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry on 4xx (except 429)", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), "/test"); err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), "/test")
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error = %v, want max retries exceeded", err)
		}
		// 1 initial + 2 retries
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("context cancellation during retry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(5, time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.doWithRetry(ctx, "/test")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want context deadline exceeded", err)
		}
	})
}

func TestParsePairsResponse(t *testing.T) {
	resp, err := ParsePairsResponse([]byte(`{"schemaVersion":"1.0.0"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Pairs == nil {
		t.Error("Pairs should be non-nil")
	}

	if _, err := ParsePairsResponse([]byte(`[1,2`)); !errors.Is(err, ErrDecode) {
		t.Errorf("error = %v, want ErrDecode", err)
	}
}
