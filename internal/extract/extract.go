// internal/extract/extract.go
package extract

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/propdata/agentharvest/internal/agents"
	"github.com/propdata/agentharvest/internal/utils"
)

// Page is one fetched document handed to the extraction tiers. The HTML
// parse is shared across tiers and happens at most once.
type Page struct {
	URL  *url.URL
	Body string

	doc    *goquery.Document
	docErr error
	parsed bool
}

// NewPage wraps a fetched body for extraction.
func NewPage(pageURL *url.URL, body string) *Page {
	return &Page{URL: pageURL, Body: body}
}

// Origin returns scheme://host of the page for relative URL resolution.
func (p *Page) Origin() string {
	if p.URL == nil {
		return ""
	}
	return p.URL.Scheme + "://" + p.URL.Host
}

// JSONBody reports whether the body is a bare JSON document, as returned
// by the data-only endpoint, rather than markup.
func (p *Page) JSONBody() bool {
	trimmed := strings.TrimLeft(p.Body, " \t\r\n")
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// Document parses the body as HTML on first use.
func (p *Page) Document() (*goquery.Document, error) {
	if !p.parsed {
		p.parsed = true
		p.doc, p.docErr = goquery.NewDocumentFromReader(strings.NewReader(p.Body))
	}
	return p.doc, p.docErr
}

// Result is one tier's output for one page.
type Result struct {
	Records []agents.Record

	// BuildID is the payload build/version token when the page exposed
	// one next to its agent list; the controller uses it to reach the
	// data-only endpoint on later pages.
	BuildID string
}

// Extractor is one tier in the fallback chain.
type Extractor interface {
	// Name identifies the tier in logs and metrics.
	Name() string
	// Source is the provenance tag stamped on records from this tier.
	Source() agents.Source
	// Extract pulls agent records out of a page. An empty result is
	// normal and means the next tier gets its turn.
	Extract(ctx context.Context, page *Page) (*Result, error)
}

// Registry holds the tiers in strict priority order.
type Registry struct {
	tiers []Extractor
	log   utils.Logger
}

// NewRegistry builds a registry over the given tiers, highest priority
// first.
func NewRegistry(log utils.Logger, tiers ...Extractor) *Registry {
	if log == nil {
		log = utils.NewLogger()
	}
	return &Registry{tiers: tiers, log: log}
}

// Default returns the standard chain: structured payload, then linked
// data, then markup heuristics.
func Default(log utils.Logger) *Registry {
	return NewRegistry(log,
		NewPayloadExtractor(),
		NewLinkedDataExtractor(),
		NewMarkupExtractor(),
	)
}

// ExtractFirst runs the tiers in order and returns the first result with
// at least one record; later tiers are not run. Tier errors count as
// empty results and never fail the page. A build token discovered by an
// empty tier is still carried on the returned result.
func (r *Registry) ExtractFirst(ctx context.Context, page *Page) *Result {
	buildID := ""
	for _, tier := range r.tiers {
		select {
		case <-ctx.Done():
			return &Result{BuildID: buildID}
		default:
		}

		res, err := tier.Extract(ctx, page)
		if err != nil {
			r.log.WithField("tier", tier.Name()).Debugf("extraction failed: %v", err)
			continue
		}
		if res == nil {
			continue
		}
		if buildID == "" {
			buildID = res.BuildID
		}
		if len(res.Records) > 0 {
			res.BuildID = buildID
			r.log.WithFields(map[string]interface{}{
				"tier":    tier.Name(),
				"records": len(res.Records),
			}).Debug("tier produced records")
			return res
		}
	}
	return &Result{BuildID: buildID}
}

// Tiers exposes the configured tier names, in order.
func (r *Registry) Tiers() []string {
	names := make([]string, len(r.tiers))
	for i, t := range r.tiers {
		names[i] = t.Name()
	}
	return names
}
