// test/integration_test.go
package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/propdata/agentharvest/internal/crawler"
	"github.com/propdata/agentharvest/internal/fetch"
	"github.com/propdata/agentharvest/internal/output"
	"github.com/propdata/agentharvest/internal/utils"
)

const listingPageOne = `<html><body>
<div class="agent-card">
  <h3>Acme Estates - Camden</h3>
  <a href="/estate-agents/acme-camden">View branch</a>
  <a href="tel:020 7946 0123">Call</a>
</div>
<div class="agent-card">
  <h3>Solo Lettings</h3>
  <a href="/estate-agents/solo">View branch</a>
</div>
<a rel="next" href="?page=2">Next</a>
</body></html>`

const listingPageTwo = `<html><body>
<div class="agent-card">
  <h3>Solo Lettings</h3>
  <a href="/estate-agents/solo">View branch</a>
</div>
<div class="agent-card">
  <h3>Harbour Homes</h3>
  <a href="/estate-agents/harbour">View branch</a>
</div>
</body></html>`

func listingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprint(w, listingPageOne)
		case "2":
			fmt.Fprint(w, listingPageTwo)
		default:
			fmt.Fprint(w, `<html><body><p>No more agents</p></body></html>`)
		}
	}))
}

func harvestToFile(t *testing.T, server *httptest.Server, wanted int) (*crawler.Summary, string) {
	t.Helper()

	log := utils.NewLoggerWithLevel(utils.ErrorLevel)

	fetcher, err := fetch.NewHTTPFetcher(fetch.Config{
		Timeout:     5 * time.Second,
		MinInterval: time.Millisecond,
	}, log)
	if err != nil {
		t.Fatalf("failed to build fetcher: %v", err)
	}
	defer fetcher.Close()

	outFile := filepath.Join(t.TempDir(), "agents.jsonl")
	sink, err := output.NewWriter(output.Config{
		Format: output.FormatJSONL,
		File:   outFile,
	}, log)
	if err != nil {
		t.Fatalf("failed to build writer: %v", err)
	}

	controller := crawler.New(crawler.Config{
		Fetcher:       fetcher,
		Sink:          sink,
		Log:           log,
		ResultsWanted: wanted,
		PageDelay:     time.Millisecond,
		BlockWait:     time.Millisecond,
	})

	summary, err := controller.Run(context.Background(), []string{server.URL + "/find-agents/london"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	return summary, outFile
}

func TestHarvestEndToEnd(t *testing.T) {
	server := listingServer(t)
	defer server.Close()

	summary, outFile := harvestToFile(t, server, 50)

	// Page three comes back empty, which ends the target.
	if summary.PagesFetched != 3 {
		t.Errorf("expected 3 pages fetched, got %d", summary.PagesFetched)
	}
	if summary.Saved != 3 {
		t.Errorf("expected 3 records saved, got %d", summary.Saved)
	}
	if summary.Duplicates != 1 {
		t.Errorf("expected 1 duplicate skipped, got %d", summary.Duplicates)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 output lines, got %d", len(lines))
	}

	names := make(map[string]bool)
	for _, line := range lines {
		var record map[string]interface{}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		name, _ := record["name"].(string)
		names[name] = true

		if record["source"] != "html" {
			t.Errorf("expected source html, got %v", record["source"])
		}
		if _, ok := record["scrapedAt"]; !ok {
			t.Errorf("record missing scrapedAt: %s", line)
		}
		if _, ok := record["key"]; ok {
			t.Errorf("identity key leaked into output: %s", line)
		}
	}

	for _, want := range []string{"Acme Estates - Camden", "Solo Lettings", "Harbour Homes"} {
		if !names[want] {
			t.Errorf("expected record for %q, names were %v", want, names)
		}
	}
}

func TestHarvestStopsAtResultBudget(t *testing.T) {
	server := listingServer(t)
	defer server.Close()

	summary, outFile := harvestToFile(t, server, 2)

	if summary.PagesFetched != 1 {
		t.Errorf("expected budget to stop after first page, got %d pages", summary.PagesFetched)
	}
	if summary.Saved != 2 {
		t.Errorf("expected 2 records saved, got %d", summary.Saved)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 output lines, got %d", len(lines))
	}
}
