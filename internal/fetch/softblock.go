// internal/fetch/softblock.go
package fetch

import "strings"

// blockMarkers are phrases that identify an anti-automation challenge
// page. Matching is case-insensitive substring search over the body.
var blockMarkers = []string{
	"captcha",
	"are you a human",
	"verify you are a human",
	"checking your browser",
	"enable javascript and cookies to continue",
	"unusual traffic from your",
	"access denied",
	"request blocked",
	"robot check",
	"cf-challenge",
}

// IsSoftBlock reports whether the body is a challenge page rather than
// the requested content. A match means the page should be re-fetched
// once through the escalated path, not treated as a hard failure.
func IsSoftBlock(body string) bool {
	if body == "" {
		return false
	}
	lower := strings.ToLower(body)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
