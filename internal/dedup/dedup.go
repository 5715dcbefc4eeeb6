// internal/dedup/dedup.go

// Package dedup reconciles agent records by identity key, both inside a
// single extraction batch and across a whole crawl run. Reconciliation
// is first-seen-wins: a later record with a known key is discarded even
// when its field values differ.
package dedup

import "github.com/propdata/agentharvest/internal/agents"

// Collapse removes duplicates from one extraction batch, keeping the
// first occurrence of each identity key and preserving input order.
// Records without an identity key cannot be reconciled and are dropped.
func Collapse(records []agents.Record) []agents.Record {
	seen := make(map[string]bool, len(records))
	out := make([]agents.Record, 0, len(records))

	for _, rec := range records {
		if !rec.Identifiable() {
			continue
		}
		if seen[rec.Key] {
			continue
		}
		seen[rec.Key] = true
		out = append(out, rec)
	}

	return out
}

// Set tracks identity keys already saved during one run.
type Set struct {
	keys map[string]bool
}

// NewSet returns an empty run-scoped key set.
func NewSet() *Set {
	return &Set{keys: make(map[string]bool)}
}

// Add records the key and reports whether it was newly added. Empty
// keys are never added.
func (s *Set) Add(key string) bool {
	if key == "" || s.keys[key] {
		return false
	}
	s.keys[key] = true
	return true
}

// Has reports whether the key has been added.
func (s *Set) Has(key string) bool {
	return s.keys[key]
}

// Len returns the number of distinct keys seen.
func (s *Set) Len() int {
	return len(s.keys)
}
