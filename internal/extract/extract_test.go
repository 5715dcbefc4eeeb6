// internal/extract/extract_test.go
package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/propdata/agentharvest/internal/agents"
)

type stubTier struct {
	name   string
	source agents.Source
	result *Result
	err    error
	calls  int
}

func (s *stubTier) Name() string          { return s.name }
func (s *stubTier) Source() agents.Source { return s.source }

func (s *stubTier) Extract(ctx context.Context, page *Page) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func stubRecord(name string) agents.Record {
	return agents.Record{Name: name, Key: "name|" + name}
}

func TestRegistryFirstNonEmptyTierWins(t *testing.T) {
	first := &stubTier{name: "payload", source: agents.SourceAPI,
		result: &Result{Records: []agents.Record{stubRecord("From Payload")}}}
	second := &stubTier{name: "markup", source: agents.SourceHTML,
		result: &Result{Records: []agents.Record{stubRecord("From Markup")}}}

	reg := NewRegistry(nil, first, second)
	res := reg.ExtractFirst(context.Background(), testPage(t, "https://example.test/", "<html></html>"))

	if len(res.Records) != 1 || res.Records[0].Name != "From Payload" {
		t.Fatalf("got %+v, want the payload tier's record", res.Records)
	}
	if second.calls != 0 {
		t.Errorf("lower tier ran %d times after a higher tier produced records", second.calls)
	}
}

func TestRegistryFallsThroughEmptyTiers(t *testing.T) {
	first := &stubTier{name: "payload", source: agents.SourceAPI, result: &Result{}}
	second := &stubTier{name: "json-ld", source: agents.SourceJSONLD, err: errors.New("bad block")}
	third := &stubTier{name: "markup", source: agents.SourceHTML,
		result: &Result{Records: []agents.Record{stubRecord("Markup Card")}}}

	reg := NewRegistry(nil, first, second, third)
	res := reg.ExtractFirst(context.Background(), testPage(t, "https://example.test/", "<html></html>"))

	if len(res.Records) != 1 || res.Records[0].Name != "Markup Card" {
		t.Fatalf("got %+v, want the markup record after two empty tiers", res.Records)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Errorf("tier calls = %d/%d/%d, want 1/1/1", first.calls, second.calls, third.calls)
	}
}

func TestRegistryAllEmpty(t *testing.T) {
	first := &stubTier{name: "payload", source: agents.SourceAPI, result: &Result{}}
	second := &stubTier{name: "markup", source: agents.SourceHTML, result: &Result{}}

	reg := NewRegistry(nil, first, second)
	res := reg.ExtractFirst(context.Background(), testPage(t, "https://example.test/", "<html></html>"))

	if res == nil {
		t.Fatal("ExtractFirst returned nil, want an empty result")
	}
	if len(res.Records) != 0 {
		t.Errorf("got %d records, want 0", len(res.Records))
	}
}

func TestRegistryCarriesBuildTokenFromEmptyTier(t *testing.T) {
	first := &stubTier{name: "payload", source: agents.SourceAPI,
		result: &Result{BuildID: "tok-19fA3"}}
	second := &stubTier{name: "markup", source: agents.SourceHTML,
		result: &Result{Records: []agents.Record{stubRecord("Card")}}}

	reg := NewRegistry(nil, first, second)
	res := reg.ExtractFirst(context.Background(), testPage(t, "https://example.test/", "<html></html>"))

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if res.BuildID != "tok-19fA3" {
		t.Errorf("BuildID = %q, want the token from the empty payload tier", res.BuildID)
	}
}

func TestRegistryBuildTokenWhenNothingExtracts(t *testing.T) {
	only := &stubTier{name: "payload", source: agents.SourceAPI,
		result: &Result{BuildID: "tok-x"}}

	reg := NewRegistry(nil, only)
	res := reg.ExtractFirst(context.Background(), testPage(t, "https://example.test/", "<html></html>"))

	if len(res.Records) != 0 || res.BuildID != "tok-x" {
		t.Errorf("got %d records, BuildID %q; want 0 records with the token kept", len(res.Records), res.BuildID)
	}
}

func TestDefaultTierOrder(t *testing.T) {
	got := Default(nil).Tiers()
	want := []string{"payload", "json-ld", "markup"}
	if len(got) != len(want) {
		t.Fatalf("Tiers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tier %d = %q, want %q", i, got[i], want[i])
		}
	}
}
