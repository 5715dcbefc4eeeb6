// internal/normalize/text.go
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonNumeric    = regexp.MustCompile(`[^0-9.]`)

	// UK postcode shapes, tried in order: full code with its internal
	// space, full code without the space, outward code alone at the end
	// of the string. The spaced form must be tried first or a valid full
	// code would be truncated to its outward half.
	postcodeFull    = regexp.MustCompile(`(?i)\b[A-Z]{1,2}[0-9][0-9A-Z]?\s+[0-9][A-Z]{2}\b`)
	postcodeNoSpace = regexp.MustCompile(`(?i)\b[A-Z]{1,2}[0-9][0-9A-Z]?[0-9][A-Z]{2}\b`)
	postcodeOutward = regexp.MustCompile(`(?i)\b[A-Z]{1,2}[0-9][0-9A-Z]?$`)

	// UK phone run: either a +44 country prefix or a leading 0 area
	// group, optionally parenthesised, followed by the subscriber digits
	// with optional spacing.
	phonePattern = regexp.MustCompile(`(?:\+44[\s-]?\(?\d{2,5}\)?|\(?0\d{2,4}\)?)(?:[\s-]?\d){5,9}`)

	rejectedSchemes = []string{"data:", "mailto:", "tel:", "javascript:"}
)

// CleanText collapses all whitespace runs (including non-breaking spaces)
// to single spaces and trims. Empty input stays empty.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// AbsoluteURL resolves v against the site origin (scheme://host). It
// accepts a plain string or a URL-like map exposing href/url/value.
// data:, mailto:, tel: and javascript: pseudo-links resolve to "".
// Protocol-relative URLs get https:; absolute URLs pass through; anything
// else is joined to the origin with exactly one separating slash.
func AbsoluteURL(v interface{}, origin string) string {
	var raw string
	switch t := v.(type) {
	case string:
		raw = t
	case map[string]interface{}:
		for _, k := range []string{"href", "url", "value"} {
			if s, ok := t[k].(string); ok && s != "" {
				raw = s
				break
			}
		}
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	lower := strings.ToLower(raw)
	for _, scheme := range rejectedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}

	origin = strings.TrimRight(origin, "/")
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return origin + raw
}

// Number parses v into a float. Finite numbers pass through; strings are
// stripped of every non-digit, non-dot rune before parsing. Anything
// unparseable returns nil.
func Number(v interface{}) *float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		f := t
		return &f
	case float32:
		return Number(float64(t))
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case string:
		cleaned := nonNumeric.ReplaceAllString(t, "")
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// Int parses v like Number and rounds to the nearest integer.
func Int(v interface{}) *int {
	f := Number(v)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

// PostalCode pulls the first UK postcode out of free text, upper-cased.
// No match returns "".
func PostalCode(text string) string {
	if text == "" {
		return ""
	}
	for _, re := range []*regexp.Regexp{postcodeFull, postcodeNoSpace, postcodeOutward} {
		if m := re.FindString(text); m != "" {
			return strings.ToUpper(CleanText(m))
		}
	}
	return ""
}

// Phone normalizes a UK phone number out of noisy text: a literal tel:
// prefix is stripped, the first UK-shaped digit run is taken, and internal
// whitespace collapses to single spaces. No match returns "".
func Phone(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "tel:")
	m := phonePattern.FindString(text)
	if m == "" {
		return ""
	}
	return CleanText(strings.ReplaceAll(m, "-", " "))
}

// TitleCase renders s in British-English title casing.
func TitleCase(s string) string {
	if s == "" {
		return ""
	}
	return cases.Title(language.BritishEnglish).String(strings.ToLower(s))
}
