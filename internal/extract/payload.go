// internal/extract/payload.go
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

// walkBudget caps how many container nodes the generic walk visits, so
// pathological or adversarial payloads terminate.
const walkBudget = 20000

// Key classes for the agent-likeness test. An object is a candidate iff
// it carries a name-like key AND at least one corroborating key. The name
// side stays permissive and the corroboration side conjunctive: a lone
// "name" key (a city object, say) is not a candidate.
var (
	candidateNameKeys = []string{
		"name", "branchName", "branch_name", "companyName", "company_name",
		"displayName", "display_name",
	}
	candidateURLKeys = []string{
		"url", "profileUrl", "profile_url", "href", "link", "website",
	}
	candidateAddressKeys = []string{
		"address", "displayAddress", "display_address", "postcode", "postalCode",
	}
	candidateIDKeys = []string{
		"agentId", "agent_id", "branchId", "branch_id", "id",
	}
)

// payloadScriptSelectors locate embedded JSON documents in markup.
var payloadScriptSelectors = []string{
	`script#__NEXT_DATA__`,
	`script[type="application/json"]`,
}

// fastPathPaths are the known spellings of the agents.results payload
// shape, probed before any generic walking.
var fastPathPaths = [][]string{
	{"props", "pageProps", "agents", "results"},
	{"pageProps", "agents", "results"},
	{"agents", "results"},
}

// buildTokenKeys name the build/version token found alongside the fast
// path list.
var buildTokenKeys = []string{"buildId", "buildID", "version"}

// PayloadExtractor is the highest-priority tier: it reads agent records
// out of embedded JSON payloads (or a bare JSON body from the data-only
// endpoint).
type PayloadExtractor struct{}

// NewPayloadExtractor creates the structured-payload tier.
func NewPayloadExtractor() *PayloadExtractor { return &PayloadExtractor{} }

func (e *PayloadExtractor) Name() string { return "payload" }

func (e *PayloadExtractor) Source() agents.Source { return agents.SourceAPI }

func (e *PayloadExtractor) Extract(ctx context.Context, page *Page) (*Result, error) {
	res := &Result{}
	for _, root := range e.documents(page) {
		records, token := extractFromDocument(root, page.Origin())
		res.Records = append(res.Records, records...)
		if res.BuildID == "" {
			res.BuildID = token
		}
	}
	return res, nil
}

// documents parses every embedded JSON block, or the bare body for a
// data-endpoint response. A block that fails to parse is skipped; the
// page is never aborted over one bad block.
func (e *PayloadExtractor) documents(page *Page) []interface{} {
	if page.JSONBody() {
		var root interface{}
		if err := json.Unmarshal([]byte(page.Body), &root); err != nil {
			return nil
		}
		return []interface{}{root}
	}

	doc, err := page.Document()
	if err != nil {
		return nil
	}

	var roots []interface{}
	seen := make(map[string]bool)
	for _, sel := range payloadScriptSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" || seen[text] {
				return
			}
			seen[text] = true
			var root interface{}
			if err := json.Unmarshal([]byte(text), &root); err != nil {
				return
			}
			roots = append(roots, root)
		})
	}
	return roots
}

// extractFromDocument takes one parsed JSON document and returns its
// agent records plus any build token. When the well-known fast-path
// shape is present its list is used directly; the generic walk is the
// fallback.
func extractFromDocument(root interface{}, origin string) ([]agents.Record, string) {
	token := findBuildToken(root)

	if list, ok := fastPathList(root); ok {
		var out []agents.Record
		for _, el := range list {
			m, isMap := el.(map[string]interface{})
			if !isMap {
				continue
			}
			if rec := normalize.Record(m, origin, agents.SourceAPI); rec != nil {
				out = append(out, *rec)
			}
		}
		return out, token
	}

	return walkForAgents(root, origin), token
}

// fastPathList probes the known payload paths and returns the results
// list when one resolves.
func fastPathList(root interface{}) ([]interface{}, bool) {
	for _, path := range fastPathPaths {
		cur := root
		found := true
		for _, key := range path {
			m, isMap := cur.(map[string]interface{})
			if !isMap {
				found = false
				break
			}
			next, exists := m[key]
			if !exists {
				found = false
				break
			}
			cur = next
		}
		if !found {
			continue
		}
		if list, isList := cur.([]interface{}); isList {
			return list, true
		}
	}
	return nil, false
}

// findBuildToken looks for the build/version token at the payload root
// and the containers the fast-path list hangs off.
func findBuildToken(root interface{}) string {
	m, ok := root.(map[string]interface{})
	if !ok {
		return ""
	}
	containers := []map[string]interface{}{m}
	if props, isMap := m["props"].(map[string]interface{}); isMap {
		containers = append(containers, props)
	}
	if ag, isMap := m["agents"].(map[string]interface{}); isMap {
		containers = append(containers, ag)
	}
	for _, c := range containers {
		for _, key := range buildTokenKeys {
			if s, isStr := c[key].(string); isStr && s != "" {
				return s
			}
		}
	}
	return ""
}

// walkForAgents traverses an arbitrary object graph breadth-first,
// collecting candidates. The visited set keys on container identity, not
// value, so shared and cyclic references terminate; the step budget
// bounds everything else. Child properties are walked in sorted key
// order so output order is stable.
func walkForAgents(root interface{}, origin string) []agents.Record {
	var out []agents.Record
	queue := []interface{}{root}
	visited := make(map[uintptr]bool)
	steps := 0

	for len(queue) > 0 && steps < walkBudget {
		node := queue[0]
		queue = queue[1:]

		switch t := node.(type) {
		case []interface{}:
			if len(t) == 0 {
				continue
			}
			ptr := reflect.ValueOf(t).Pointer()
			if visited[ptr] {
				continue
			}
			visited[ptr] = true
			steps++
			queue = append(queue, t...)

		case map[string]interface{}:
			ptr := reflect.ValueOf(t).Pointer()
			if visited[ptr] {
				continue
			}
			visited[ptr] = true
			steps++

			if looksLikeAgent(t) {
				if rec := normalize.Record(t, origin, agents.SourceAPI); rec != nil {
					out = append(out, *rec)
				}
			}

			// containers that are not themselves candidates can still
			// hold candidates, so children are enqueued regardless
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				switch t[k].(type) {
				case map[string]interface{}, []interface{}:
					queue = append(queue, t[k])
				}
			}
		}
	}
	return out
}

func looksLikeAgent(m map[string]interface{}) bool {
	if !hasAnyKey(m, candidateNameKeys) {
		return false
	}
	return hasAnyKey(m, candidateURLKeys) ||
		hasAnyKey(m, candidateAddressKeys) ||
		hasAnyKey(m, candidateIDKeys)
}

func hasAnyKey(m map[string]interface{}, keys []string) bool {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}
