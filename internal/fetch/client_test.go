// internal/fetch/client_test.go
package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		MinInterval:   time.Millisecond,
		UserAgents:    []string{"TestAgent/1.0"},
	}
}

func TestHTTPFetcherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Listing Content</body></html>"))
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetcher(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewHTTPFetcher() error: %v", err)
	}
	defer fetcher.Close()

	body, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected successful fetch, got error: %v", err)
	}
	if !strings.Contains(body, "Listing Content") {
		t.Errorf("Expected body to contain 'Listing Content', got: %s", body)
	}
}

func TestHTTPFetcherRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("Success after retries"))
	}))
	defer server.Close()

	fetcher, _ := NewHTTPFetcher(testConfig(), nil)
	defer fetcher.Close()

	body, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got error: %v", err)
	}
	if body != "Success after retries" {
		t.Errorf("Expected retried body, got: %s", body)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestHTTPFetcherExhaustsRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	config := testConfig()
	config.RetryAttempts = 2

	fetcher, _ := NewHTTPFetcher(config, nil)
	defer fetcher.Close()

	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", attempts)
	}

	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("Expected *StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", statusErr.StatusCode)
	}
}

func TestHTTPFetcherDoesNotRetryClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher, _ := NewHTTPFetcher(testConfig(), nil)
	defer fetcher.Close()

	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if attempts != 1 {
		t.Errorf("Expected a single attempt for a non-retryable status, got %d", attempts)
	}
}

func TestHTTPFetcherRotatesUserAgents(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	config := testConfig()
	config.UserAgents = []string{"Agent/1", "Agent/2"}

	fetcher, _ := NewHTTPFetcher(config, nil)
	defer fetcher.Close()

	for i := 0; i < 3; i++ {
		if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
	}

	want := []string{"Agent/1", "Agent/2", "Agent/1"}
	for i, ua := range want {
		if agents[i] != ua {
			t.Errorf("request %d User-Agent = %q, want %q", i, agents[i], ua)
		}
	}
}

func TestHTTPFetcherRegionHeader(t *testing.T) {
	var region string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		region = r.Header.Get("X-Proxy-Region")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	config := testConfig()
	config.ProxyRegion = "gb"

	fetcher, _ := NewHTTPFetcher(config, nil)
	defer fetcher.Close()

	if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if region != "gb" {
		t.Errorf("Expected region header 'gb', got %q", region)
	}
}

func TestHTTPFetcherCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher, _ := NewHTTPFetcher(testConfig(), nil)
	defer fetcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fetcher.Fetch(ctx, server.URL); err == nil {
		t.Error("Expected error from a cancelled context")
	}
}

func TestHTTPFetcherInvalidProxy(t *testing.T) {
	config := testConfig()
	config.ProxyServer = "http://[::1]:namedport"

	if _, err := NewHTTPFetcher(config, nil); err == nil {
		t.Error("Expected error for an unparseable proxy server")
	}
}

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{522, true},
		{200, false},
		{301, false},
		{404, false},
		{403, false},
	}
	for _, tt := range tests {
		if got := IsRetryableStatus(tt.code); got != tt.expected {
			t.Errorf("IsRetryableStatus(%d) = %v, want %v", tt.code, got, tt.expected)
		}
	}
}
