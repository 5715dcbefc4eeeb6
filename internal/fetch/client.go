// internal/fetch/client.go
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/propdata/agentharvest/internal/utils"
)

// Config defines the HTTP fetch path.
type Config struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	MaxDelay      time.Duration
	MinInterval   time.Duration // pacing between requests
	UserAgents    []string
	Headers       map[string]string

	// ProxyServer and ProxyRegion are opaque hints handed to the
	// transport; the crawl logic never inspects them.
	ProxyServer string
	ProxyRegion string
}

// HTTPFetcher is the default fetch path: a paced, retrying HTTP client
// with rotating user agents.
type HTTPFetcher struct {
	client        *http.Client
	limiter       *rate.Limiter
	userAgents    []string
	currentUA     int
	retryAttempts int
	retryDelay    time.Duration
	maxDelay      time.Duration
	headers       map[string]string
	region        string
	log           utils.Logger
}

// NewHTTPFetcher creates the HTTP fetch path with the given
// configuration, filling in defaults for anything unset.
func NewHTTPFetcher(config Config, log utils.Logger) (*HTTPFetcher, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.MinInterval == 0 {
		config.MinInterval = time.Second
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = defaultUserAgents()
	}
	if log == nil {
		log = utils.NewLogger()
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if config.ProxyServer != "" {
		proxyURL, err := url.Parse(config.ProxyServer)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy server: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		limiter:       rate.NewLimiter(rate.Every(config.MinInterval), 1),
		userAgents:    config.UserAgents,
		retryAttempts: config.RetryAttempts,
		retryDelay:    config.RetryDelay,
		maxDelay:      config.MaxDelay,
		headers:       config.Headers,
		region:        config.ProxyRegion,
		log:           log,
	}, nil
}

func (f *HTTPFetcher) Name() string { return "http" }

// Fetch retrieves the page body, retrying transient failures with
// exponential backoff. Non-retryable status codes fail immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if _, err := url.Parse(pageURL); err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.retryAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("pacing interrupted: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		f.setRequestHeaders(req)

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w",
				attempt+1, f.retryAttempts+1, err)
			if attempt < f.retryAttempts {
				if werr := f.waitForRetry(ctx, attempt); werr != nil {
					return "", werr
				}
				continue
			}
			break
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				lastErr = fmt.Errorf("failed to read body (attempt %d/%d): %w",
					attempt+1, f.retryAttempts+1, readErr)
				if attempt < f.retryAttempts {
					if werr := f.waitForRetry(ctx, attempt); werr != nil {
						return "", werr
					}
					continue
				}
				break
			}
			return string(body), nil
		}

		lastErr = &StatusError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Attempts:   attempt + 1,
		}
		if !IsRetryableStatus(resp.StatusCode) {
			break
		}
		if attempt < f.retryAttempts {
			if werr := f.waitForRetry(ctx, attempt); werr != nil {
				return "", werr
			}
		}
	}

	return "", lastErr
}

// Close is a no-op for the HTTP path; connections are pooled by the
// transport.
func (f *HTTPFetcher) Close() error { return nil }

func (f *HTTPFetcher) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	if f.region != "" {
		req.Header.Set("X-Proxy-Region", f.region)
	}
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}
}

// nextUserAgent rotates through the pool. The fetcher is only ever
// called from the single crawl worker, so no locking is needed.
func (f *HTTPFetcher) nextUserAgent() string {
	ua := f.userAgents[f.currentUA]
	f.currentUA = (f.currentUA + 1) % len(f.userAgents)
	return ua
}

// waitForRetry sleeps for an exponentially growing, jittered delay,
// honouring cancellation.
func (f *HTTPFetcher) waitForRetry(ctx context.Context, attempt int) error {
	delay := f.retryDelay * time.Duration(1<<uint(attempt))
	delay += time.Duration(rand.Int63n(int64(delay/2) + 1))
	if delay > f.maxDelay {
		delay = f.maxDelay
	}

	f.log.WithFields(map[string]interface{}{
		"attempt": attempt + 1,
		"delay":   delay.String(),
	}).Debug("backing off before retry")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// defaultUserAgents returns a pool of current browser user agent
// strings.
func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}
}
