// internal/crawler/pagination.go
package crawler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nextLinkSelectors locate an explicit next-page link, in priority
// order.
var nextLinkSelectors = []string{
	`link[rel="next"]`,
	`a[rel="next"]`,
	`a[aria-label="Next page"]`,
	`a[aria-label="Next"]`,
}

// paginationParams are the two interchangeable page-number query
// parameters the site uses, probed in priority order. When neither is
// present yet, the last one is inserted.
var paginationParams = []string{"index", "page"}

// NextPageURL derives the successor of the current page. An explicit
// next link in the markup wins; otherwise the pagination parameter
// already on the URL is incremented; otherwise one is inserted.
// pageNum is the 1-based index of the current page. Returns "" when no
// successor can be derived.
func NextPageURL(current *url.URL, doc *goquery.Document, pageNum int) string {
	if current == nil {
		return ""
	}

	if doc != nil {
		for _, sel := range nextLinkSelectors {
			href, ok := doc.Find(sel).First().Attr("href")
			if !ok {
				continue
			}
			href = strings.TrimSpace(href)
			if href == "" || href == "#" {
				continue
			}
			next, err := current.Parse(href)
			if err != nil {
				continue
			}
			return next.String()
		}
	}

	query := current.Query()
	for _, param := range paginationParams {
		if !query.Has(param) {
			continue
		}
		value, err := strconv.Atoi(query.Get(param))
		if err != nil {
			value = pageNum
		}
		query.Set(param, strconv.Itoa(value+1))
		next := *current
		next.RawQuery = query.Encode()
		return next.String()
	}

	insert := paginationParams[len(paginationParams)-1]
	query.Set(insert, strconv.Itoa(pageNum+1))
	next := *current
	next.RawQuery = query.Encode()
	return next.String()
}

// DataURL maps a page URL onto the payload-only endpoint for the given
// build token, keeping the query string. Returns "" without a token.
func DataURL(pageURL *url.URL, buildID string) string {
	if pageURL == nil || buildID == "" {
		return ""
	}

	path := strings.TrimSuffix(pageURL.Path, "/")
	if path == "" {
		path = "/index"
	}

	data := url.URL{
		Scheme:   pageURL.Scheme,
		Host:     pageURL.Host,
		Path:     "/_next/data/" + buildID + path + ".json",
		RawQuery: pageURL.RawQuery,
	}
	return data.String()
}
