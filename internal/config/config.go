// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads a .env file into the process environment when one
// exists, so ${VAR} interpolation in the config can see its values.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Environment
// variables in the raw text are expanded first, unknown keys are
// rejected, then defaults and validation apply.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// SaveToWriter writes the configuration as YAML.
func SaveToWriter(config *Config, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}

// Seeds returns the merged seed URL list: start_url first, then
// start_urls, trimmed, with duplicates removed in order.
func (c *Config) Seeds() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		u := strings.TrimSpace(raw)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	add(c.StartURL)
	for _, u := range c.StartURLs {
		add(u)
	}
	return out
}

// assumedPageYield mirrors the crawl controller's page-budget estimate.
const assumedPageYield = 10

// applyDefaults fills in the zero values
func applyDefaults(config *Config) {
	if config.Name == "" {
		config.Name = "agentharvest"
	}

	if config.ResultsWanted <= 0 {
		config.ResultsWanted = 50
	}
	if config.MaxPages <= 0 {
		config.MaxPages = (config.ResultsWanted + assumedPageYield - 1) / assumedPageYield
	}
	if config.PageDelay <= 0 {
		config.PageDelay = 1
	}
	if config.BlockWait <= 0 {
		config.BlockWait = 5
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.Fetch.Timeout <= 0 {
		config.Fetch.Timeout = 30
	}
	if config.Fetch.RetryAttempts <= 0 {
		config.Fetch.RetryAttempts = 3
	}
	if config.Fetch.RetryDelay <= 0 {
		config.Fetch.RetryDelay = 1
	}
	if config.Fetch.MaxDelay <= 0 {
		config.Fetch.MaxDelay = 30
	}
	if config.Fetch.MinInterval <= 0 {
		config.Fetch.MinInterval = 1
	}

	if config.Browser.Headless == nil {
		headless := true
		config.Browser.Headless = &headless
	}
	if config.Browser.NavTimeout <= 0 {
		config.Browser.NavTimeout = 60
	}
	if config.Browser.Wait <= 0 {
		config.Browser.Wait = 2
	}

	if config.Output.Format == "" {
		config.Output.Format = "jsonl"
	}
	if config.Output.Sheet == "" {
		config.Output.Sheet = "Agents"
	}

	if config.Monitoring.Address == "" {
		config.Monitoring.Address = ":9090"
	}
}

// Template returns a starter configuration for the template
// subcommand. Known kinds are "basic" and "sqlite"; anything else gets
// the basic template.
func Template(kind string) *Config {
	config := &Config{
		Name:        "uk-agents",
		Description: "Harvest estate and letting agent branches from a directory listing",
		StartURLs: []string{
			"https://www.example.co.uk/find-agents/london",
		},
		ResultsWanted: 50,
		LogLevel:      "info",
		Output: OutputConfig{
			Format: "jsonl",
			File:   "agents.jsonl",
		},
	}

	switch strings.ToLower(kind) {
	case "sqlite":
		config.Output = OutputConfig{
			Format: "sqlite",
			DSN:    "agents.db",
			Table:  "agents",
		}
	}

	applyDefaults(config)
	return config
}
