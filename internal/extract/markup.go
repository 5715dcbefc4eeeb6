// internal/extract/markup.go
package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/propdata/agentharvest/internal/agents"
	"github.com/propdata/agentharvest/internal/normalize"
)

// cardSelectors pick out agent cards, attribute markers before class
// markers. The first selector with any match wins for the whole page.
var cardSelectors = []string{
	`[data-test="agent-card"]`,
	`[data-testid="agent-card"]`,
	`[data-test="agentCard"]`,
	`.agent-card`,
	`.agentCard`,
	`.branch-card`,
	`.agent-result`,
}

// profilePathHints are URL path shapes that mark an agent profile link.
var profilePathHints = []string{
	"/find-agents/", "/estate-agents/", "/letting-agents/", "/agent/", "/branch/",
}

// blockAncestors is the ancestor filter for the anchor fallback: the
// nearest of these around a profile link is taken as the card.
const blockAncestors = "li, article, section, div"

// Loose-text patterns. Counts and ratings rarely sit in structured
// markup, so they are recovered from the card's rendered text; misses
// are normal.
var (
	forSaleRe = regexp.MustCompile(`(?i)(\d[\d,]*)\s+(?:propert\w+\s+)?for\s+sale`)
	toRentRe  = regexp.MustCompile(`(?i)(\d[\d,]*)\s+(?:propert\w+\s+)?to\s+(?:rent|let)`)
	ratingRe  = regexp.MustCompile(`(?i)(\d(?:\.\d)?)\s*(?:/|out\s+of)\s*5`)
	reviewsRe = regexp.MustCompile(`(?i)(\d[\d,]*)\s+reviews?`)
)

// MarkupExtractor is the lowest tier: card heuristics over rendered
// markup, used only when both JSON tiers come up empty.
type MarkupExtractor struct{}

// NewMarkupExtractor creates the markup tier.
func NewMarkupExtractor() *MarkupExtractor { return &MarkupExtractor{} }

func (e *MarkupExtractor) Name() string { return "markup" }

func (e *MarkupExtractor) Source() agents.Source { return agents.SourceHTML }

func (e *MarkupExtractor) Extract(ctx context.Context, page *Page) (*Result, error) {
	res := &Result{}

	doc, err := page.Document()
	if err != nil {
		return res, nil
	}

	seenURL := make(map[string]bool)
	for _, card := range findCards(doc) {
		rec := normalize.Record(cardCandidate(card, page), page.Origin(), agents.SourceHTML)
		if rec == nil {
			// card without a usable name, not an error
			continue
		}
		// the same profile link often appears twice inside one page
		if rec.URL != "" {
			if seenURL[rec.URL] {
				continue
			}
			seenURL[rec.URL] = true
		}
		res.Records = append(res.Records, *rec)
	}

	return res, nil
}

// findCards returns the page's card containers: the first matching
// selector from the priority list, else the nearest block ancestor of
// each agent-profile anchor.
func findCards(doc *goquery.Document) []*goquery.Selection {
	for _, sel := range cardSelectors {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}
		var cards []*goquery.Selection
		found.Each(func(_ int, s *goquery.Selection) {
			cards = append(cards, s)
		})
		return cards
	}

	var cards []*goquery.Selection
	seen := make(map[*html.Node]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !profileLink(href) {
			return
		}
		card := a.Closest(blockAncestors)
		if card.Length() == 0 {
			return
		}
		node := card.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true
		cards = append(cards, card)
	})
	return cards
}

func profileLink(href string) bool {
	href = strings.ToLower(href)
	for _, hint := range profilePathHints {
		if strings.Contains(href, hint) {
			return true
		}
	}
	return false
}

// cardCandidate pulls each field out of a card with its own sub-selector
// priority list and assembles a raw candidate for the record normalizer.
func cardCandidate(card *goquery.Selection, page *Page) map[string]interface{} {
	raw := make(map[string]interface{})

	for _, sel := range []string{"h1", "h2", "h3", "h4", `[itemprop="name"]`, `[class*="name"]`} {
		if txt := normalize.CleanText(card.Find(sel).First().Text()); txt != "" {
			raw["name"] = txt
			break
		}
	}

	var profile string
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if profileLink(href) {
			profile = href
			return false
		}
		return true
	})
	if profile == "" {
		profile, _ = card.Find("a[href]").First().Attr("href")
	}
	if profile != "" {
		raw["url"] = profile
	}

	for _, sel := range []string{"address", `[itemprop="address"]`, `[class*="address"]`} {
		if txt := normalize.CleanText(card.Find(sel).First().Text()); txt != "" {
			raw["address"] = txt
			break
		}
	}

	if href, ok := card.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		raw["phone"] = href
	}

	pageHost := ""
	if page.URL != nil {
		pageHost = page.URL.Host
	}
	card.Find(`a[href^="http"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		if u.Host != "" && u.Host != pageHost {
			raw["website"] = href
			return false
		}
		return true
	})
	if _, ok := raw["website"]; !ok {
		card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if !strings.Contains(strings.ToLower(a.Text()), "website") {
				return true
			}
			if href, exists := a.Attr("href"); exists {
				raw["website"] = href
				return false
			}
			return true
		})
	}

	var logo string
	card.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		alt, _ := img.Attr("alt")
		if strings.Contains(strings.ToLower(alt), "logo") {
			logo = imgSrc(img)
			return false
		}
		if logo == "" {
			logo = imgSrc(img)
		}
		return true
	})
	if logo != "" {
		raw["logo"] = logo
	}

	text := card.Text()
	if m := forSaleRe.FindStringSubmatch(text); m != nil {
		raw["forSaleCount"] = m[1]
	}
	if m := toRentRe.FindStringSubmatch(text); m != nil {
		raw["toRentCount"] = m[1]
	}
	if m := ratingRe.FindStringSubmatch(text); m != nil {
		raw["rating"] = m[1]
	}
	if m := reviewsRe.FindStringSubmatch(text); m != nil {
		raw["reviewCount"] = m[1]
	}

	return raw
}

func imgSrc(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := img.Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}
