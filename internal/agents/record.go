// internal/agents/record.go
package agents

import (
	"time"
)

// Source identifies the extraction tier that produced a record.
type Source string

const (
	SourceAPI    Source = "api"     // embedded structured-data payload
	SourceJSONLD Source = "json-ld" // linked-data graph block
	SourceHTML   Source = "html"    // markup heuristics
)

// Record is the canonical agent-branch record emitted by the pipeline.
// Every field except Name is optional; empty string / nil pointer stands
// for "not provided by the source".
type Record struct {
	AgentID         string    `json:"agentId,omitempty"`
	Name            string    `json:"name"`
	BranchName      string    `json:"branchName,omitempty"`
	CompanyName     string    `json:"companyName,omitempty"`
	URL             string    `json:"url,omitempty"`
	Address         string    `json:"address,omitempty"`
	PostalCode      string    `json:"postalCode,omitempty"`
	Locality        string    `json:"locality,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Website         string    `json:"website,omitempty"`
	Logo            string    `json:"logo,omitempty"`
	Rating          *float64  `json:"rating,omitempty"`
	ReviewCount     *int      `json:"reviewCount,omitempty"`
	ListingsForSale *int      `json:"listingsForSale,omitempty"`
	ListingsToRent  *int      `json:"listingsToRent,omitempty"`
	Source          Source    `json:"source"`
	ScrapedAt       time.Time `json:"scrapedAt"`

	// Key is the identity key derived once at normalization time.
	// It never changes afterward and never leaves the process.
	Key string `json:"-"`
}

// IdentityKey derives the stable identity for a record: the source-provided
// id wins, then the profile URL, then the name|address pair. A record with
// none of the three gets an empty key and counts as unidentifiable.
func IdentityKey(agentID, pageURL, name, address string) string {
	switch {
	case agentID != "":
		return agentID
	case pageURL != "":
		return pageURL
	case name != "" && address != "":
		return name + "|" + address
	default:
		return ""
	}
}

// Identifiable reports whether the record carries a usable identity key.
func (r *Record) Identifiable() bool {
	return r.Key != ""
}
