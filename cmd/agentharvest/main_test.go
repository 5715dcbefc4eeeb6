// cmd/agentharvest/main_test.go
package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/propdata/agentharvest/internal/crawler"
)

func TestCLIVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2026-08-01"
	gitCommit = "abc123"

	output := captureOutput(func() {
		printVersion()
	})

	if !strings.Contains(output, "test-version") {
		t.Errorf("version output should contain version, got: %s", output)
	}
	if !strings.Contains(output, "2026-08-01") {
		t.Errorf("version output should contain build time, got: %s", output)
	}
	if !strings.Contains(output, "abc123") {
		t.Errorf("version output should contain git commit, got: %s", output)
	}
}

func TestCLIHelp(t *testing.T) {
	output := captureOutput(func() {
		printUsage()
	})

	commands := []string{"run", "validate", "template", "version", "help"}
	for _, cmd := range commands {
		if !strings.Contains(output, cmd) {
			t.Errorf("help output should contain command %q, got: %s", cmd, output)
		}
	}
}

func TestCLITemplate(t *testing.T) {
	output := captureOutput(func() {
		generateTemplate(nil)
	})

	if !strings.Contains(output, "start_urls") {
		t.Errorf("template should contain start_urls, got: %s", output)
	}
	if !strings.Contains(output, "format: jsonl") {
		t.Errorf("basic template should use jsonl output, got: %s", output)
	}

	output = captureOutput(func() {
		generateTemplate([]string{"--type", "sqlite"})
	})

	if !strings.Contains(output, "format: sqlite") {
		t.Errorf("sqlite template should use sqlite output, got: %s", output)
	}
}

func TestPrintSummary(t *testing.T) {
	summary := &crawler.Summary{
		Targets:      1,
		PagesFetched: 3,
		Extracted:    30,
		Saved:        25,
		Duplicates:   5,
		Elapsed:      1200 * time.Millisecond,
	}

	output := captureOutput(func() {
		printSummary(summary)
	})

	if !strings.Contains(output, "Records saved:      25") {
		t.Errorf("summary should report saved count, got: %s", output)
	}
	if !strings.Contains(output, "Duplicates skipped: 5") {
		t.Errorf("summary should report duplicates, got: %s", output)
	}
	if strings.Contains(output, "Soft blocks") {
		t.Errorf("summary should omit zero soft blocks, got: %s", output)
	}
	if strings.Contains(output, "Fetch errors") {
		t.Errorf("summary should omit zero fetch errors, got: %s", output)
	}
}

// captureOutput captures stdout during function execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	f()
	w.Close()
	os.Stdout = old
	out := <-outC

	return out
}
