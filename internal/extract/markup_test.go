// internal/extract/markup_test.go
package extract

import (
	"context"
	"testing"
)

func TestMarkupAttributeCard(t *testing.T) {
	body := `<html><body>
	<div data-test="agent-card">
		<h3>Acme Estates Camden</h3>
		<a href="/estate-agents/acme-camden">View branch</a>
		<p class="agent-address">12 Camden High Street, London NW1 0JH</p>
		<a href="tel:+442079460018">Call us</a>
		<span>12 properties for sale</span>
		<span>8 to rent</span>
		<span>4.5/5 (31 reviews)</span>
	</div>
	</body></html>`

	res, err := NewMarkupExtractor().Extract(context.Background(), testPage(t, "https://example.test/find-agents/camden", body))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}

	rec := res.Records[0]
	if rec.Name != "Acme Estates Camden" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.Source != "html" {
		t.Errorf("Source = %q, want html", rec.Source)
	}
	if rec.URL != "https://example.test/estate-agents/acme-camden" {
		t.Errorf("URL = %q", rec.URL)
	}
	if rec.PostalCode != "NW1 0JH" {
		t.Errorf("PostalCode = %q", rec.PostalCode)
	}
	if rec.Phone != "+442079460018" {
		t.Errorf("Phone = %q", rec.Phone)
	}
	if rec.ListingsForSale == nil || *rec.ListingsForSale != 12 {
		t.Errorf("ListingsForSale = %v, want 12", rec.ListingsForSale)
	}
	if rec.ListingsToRent == nil || *rec.ListingsToRent != 8 {
		t.Errorf("ListingsToRent = %v, want 8", rec.ListingsToRent)
	}
	if rec.Rating == nil || *rec.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", rec.Rating)
	}
	if rec.ReviewCount == nil || *rec.ReviewCount != 31 {
		t.Errorf("ReviewCount = %v, want 31", rec.ReviewCount)
	}
}

func TestMarkupClassCard(t *testing.T) {
	body := `<html><body>
	<div class="agent-card"><h2>Northside Lettings</h2><a href="/branch/northside">Profile</a></div>
	<div class="agent-card"><h2>Southside Sales</h2><a href="/branch/southside">Profile</a></div>
	</body></html>`

	res, _ := NewMarkupExtractor().Extract(context.Background(), testPage(t, "https://example.test/", body))
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	if res.Records[0].Name != "Northside Lettings" || res.Records[1].Name != "Southside Sales" {
		t.Errorf("card order lost: %q, %q", res.Records[0].Name, res.Records[1].Name)
	}
}

func TestMarkupAnchorFallback(t *testing.T) {
	body := `<html><body><ul>
	<li>
		<h3>Fallback Homes</h3>
		<a href="/find-agents/fallback-homes">Fallback Homes</a>
		<a href="tel:020 7946 0018">020 7946 0018</a>
	</li>
	<li><a href="/about">About us</a></li>
	</ul></body></html>`

	res, _ := NewMarkupExtractor().Extract(context.Background(), testPage(t, "https://example.test/find-agents/london", body))
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1 from the anchor fallback", len(res.Records))
	}
	rec := res.Records[0]
	if rec.Name != "Fallback Homes" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.URL != "https://example.test/find-agents/fallback-homes" {
		t.Errorf("URL = %q", rec.URL)
	}
	if rec.Phone == "" {
		t.Error("Phone is empty, want the tel: link value")
	}
}

func TestMarkupDuplicateProfileCollapsed(t *testing.T) {
	body := `<html><body>
	<div class="agent-card"><h3>Acme</h3><a href="/branch/acme">Acme</a></div>
	<div class="agent-card"><h3>Acme</h3><a href="/branch/acme">Acme again</a></div>
	</body></html>`

	res, _ := NewMarkupExtractor().Extract(context.Background(), testPage(t, "https://example.test/", body))
	if len(res.Records) != 1 {
		t.Errorf("got %d records, want 1 after profile URL dedup", len(res.Records))
	}
}

func TestMarkupNamelessCardSkipped(t *testing.T) {
	body := `<html><body>
	<div class="agent-card"><p class="agent-address">1 High St, Leeds LS1 1AB</p></div>
	<div class="agent-card"><h3>Named Agency</h3></div>
	</body></html>`

	res, _ := NewMarkupExtractor().Extract(context.Background(), testPage(t, "https://example.test/", body))
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want only the named card", len(res.Records))
	}
	if res.Records[0].Name != "Named Agency" {
		t.Errorf("Name = %q", res.Records[0].Name)
	}
}

func TestMarkupWebsiteAndLogo(t *testing.T) {
	body := `<html><body>
	<div class="agent-card">
		<h3>Acme</h3>
		<a href="https://example.test/branch/acme">Profile</a>
		<a href="https://www.acme-homes.example">Visit site</a>
		<img src="/img/photo.jpg" alt="Branch front">
		<img data-src="/img/acme.png" alt="Acme logo">
	</div>
	</body></html>`

	res, _ := NewMarkupExtractor().Extract(context.Background(), testPage(t, "https://example.test/", body))
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if rec.Website != "https://www.acme-homes.example" {
		t.Errorf("Website = %q", rec.Website)
	}
	if rec.Logo != "https://example.test/img/acme.png" {
		t.Errorf("Logo = %q", rec.Logo)
	}
}

func TestProfileLink(t *testing.T) {
	tests := []struct {
		href     string
		expected bool
	}{
		{"/estate-agents/acme-camden", true},
		{"/find-agents/leeds", true},
		{"/Branch/12", true},
		{"/about", false},
		{"https://example.test/agent/7", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := profileLink(tt.href); got != tt.expected {
			t.Errorf("profileLink(%q) = %v, want %v", tt.href, got, tt.expected)
		}
	}
}
