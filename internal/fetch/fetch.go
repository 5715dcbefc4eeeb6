// internal/fetch/fetch.go

// Package fetch retrieves listing pages. The plain HTTP client is the
// default path; the browser client is the escalated path used after a
// soft block. Both return the page body as text and leave all content
// interpretation to the extraction tiers.
package fetch

import (
	"context"
	"fmt"
)

// Fetcher returns the content of one page. Implementations may retry
// internally; callers treat a returned error as the page being
// unreachable after all attempts.
type Fetcher interface {
	// Fetch returns the page body for the URL.
	Fetch(ctx context.Context, pageURL string) (string, error)
	// Name identifies the fetch path in logs and metrics.
	Name() string
	// Close releases any held resources.
	Close() error
}

// StatusError is a non-success HTTP response that survived the retry
// budget.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
	Attempts   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s, attempts: %d)", e.StatusCode, e.Status, e.URL, e.Attempts)
}

// IsRetryableStatus reports whether a status code warrants another
// attempt. Server-side errors and rate-limit responses are retried;
// everything else fails the page immediately.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 429, 500, 502, 503, 504, 520, 521, 522, 523, 524:
		return true
	}
	return false
}
