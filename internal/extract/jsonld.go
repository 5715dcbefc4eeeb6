// internal/extract/jsonld.go
package extract

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/propdata/agentharvest/internal/agents"
	"github.com/propdata/agentharvest/internal/normalize"
)

// allowedTypes is the organization/business type allow-list. A node whose
// declared type intersects it is a candidate.
var allowedTypes = map[string]bool{
	"RealEstateAgent":     true,
	"LocalBusiness":       true,
	"Organization":        true,
	"ProfessionalService": true,
	"Corporation":         true,
}

// wrapperKeys are the graph-linking properties that box entities inside
// list or reference nodes. They are descended first so boxed entities
// keep document order; every other object value is walked after them.
var wrapperKeys = []string{"@graph", "itemListElement", "item", "mainEntity", "about", "hasPart"}

// LinkedDataExtractor reads agent records out of the page's
// application/ld+json blocks.
type LinkedDataExtractor struct{}

// NewLinkedDataExtractor creates the linked-data tier.
func NewLinkedDataExtractor() *LinkedDataExtractor { return &LinkedDataExtractor{} }

func (e *LinkedDataExtractor) Name() string { return "json-ld" }

func (e *LinkedDataExtractor) Source() agents.Source { return agents.SourceJSONLD }

func (e *LinkedDataExtractor) Extract(ctx context.Context, page *Page) (*Result, error) {
	res := &Result{}

	doc, err := page.Document()
	if err != nil {
		return res, nil
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var root interface{}
		if err := json.Unmarshal([]byte(s.Text()), &root); err != nil {
			// malformed block: skip it, never the page
			return
		}
		visited := make(map[uintptr]bool)
		res.Records = append(res.Records, typedNodes(root, page.Origin(), visited)...)
	})

	return res, nil
}

// typedNodes walks a linked-data structure depth-first, collecting nodes
// whose declared type is on the allow-list. Visited tracking keys on
// container identity so self-referential graphs terminate.
func typedNodes(node interface{}, origin string, visited map[uintptr]bool) []agents.Record {
	var out []agents.Record

	switch t := node.(type) {
	case []interface{}:
		if len(t) == 0 {
			return nil
		}
		ptr := reflect.ValueOf(t).Pointer()
		if visited[ptr] {
			return nil
		}
		visited[ptr] = true
		for _, el := range t {
			out = append(out, typedNodes(el, origin, visited)...)
		}

	case map[string]interface{}:
		ptr := reflect.ValueOf(t).Pointer()
		if visited[ptr] {
			return nil
		}
		visited[ptr] = true

		if typeAllowed(t) {
			if rec := normalize.Record(t, origin, agents.SourceJSONLD); rec != nil {
				out = append(out, *rec)
			}
		}

		for _, k := range wrapperKeys {
			if v, ok := t[k]; ok {
				out = append(out, typedNodes(v, origin, visited)...)
			}
		}

		keys := make([]string, 0, len(t))
		for k := range t {
			if !wrapperKey(k) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch t[k].(type) {
			case map[string]interface{}, []interface{}:
				out = append(out, typedNodes(t[k], origin, visited)...)
			}
		}
	}

	return out
}

func wrapperKey(k string) bool {
	for _, w := range wrapperKeys {
		if k == w {
			return true
		}
	}
	return false
}

// typeAllowed checks the node's declared type, single value or list,
// tolerating schema.org URL and CURIE spellings.
func typeAllowed(m map[string]interface{}) bool {
	switch t := m["@type"].(type) {
	case string:
		return allowedTypes[bareTypeName(t)]
	case []interface{}:
		for _, el := range t {
			if s, ok := el.(string); ok && allowedTypes[bareTypeName(s)] {
				return true
			}
		}
	}
	return false
}

func bareTypeName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, "/#:"); i >= 0 {
		s = s[i+1:]
	}
	return s
}
