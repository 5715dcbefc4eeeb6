// internal/config/validation.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoStartURLs reports a run with nothing to crawl. It is the one
// configuration problem callers branch on: without seed URLs the whole
// run fails, where most other issues only degrade it.
var ErrNoStartURLs = errors.New("no start URLs configured")

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (ve ValidationError) Error() string {
	if ve.Value == "" {
		return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
	}
	return fmt.Sprintf("%s: %s (%q)", ve.Field, ve.Message, ve.Value)
}

// validFormats are the sinks the output package can build.
var validFormats = map[string]bool{
	"jsonl":      true,
	"json":       true,
	"csv":        true,
	"excel":      true,
	"sqlite":     true,
	"postgresql": true,
	"mysql":      true,
	"mongodb":    true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// databaseFormats need a DSN rather than a file path.
var databaseFormats = map[string]bool{
	"sqlite":     true,
	"postgresql": true,
	"mysql":      true,
	"mongodb":    true,
}

// Validate checks the configuration after defaults have been applied.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Seeds()) == 0 {
		errs = append(errs, ErrNoStartURLs)
	}
	for _, seed := range c.Seeds() {
		if err := validateSeedURL(seed); err != nil {
			errs = append(errs, err)
		}
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Value:   c.LogLevel,
			Message: "must be one of debug, info, warn, error",
		})
	}

	errs = append(errs, c.Output.validate()...)

	if c.Proxy.Server != "" {
		if _, err := url.Parse(c.Proxy.Server); err != nil {
			errs = append(errs, ValidationError{
				Field:   "proxy.server",
				Value:   c.Proxy.Server,
				Message: fmt.Sprintf("invalid proxy URL: %v", err),
			})
		}
	}

	return errors.Join(errs...)
}

func validateSeedURL(seed string) error {
	parsed, err := url.Parse(seed)
	if err != nil {
		return ValidationError{
			Field:   "start_urls",
			Value:   seed,
			Message: fmt.Sprintf("invalid URL: %v", err),
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ValidationError{
			Field:   "start_urls",
			Value:   seed,
			Message: "URL must include protocol (http:// or https://)",
		}
	}
	if parsed.Host == "" {
		return ValidationError{
			Field:   "start_urls",
			Value:   seed,
			Message: "URL must include hostname",
		}
	}
	return nil
}

func (o OutputConfig) validate() []error {
	var errs []error

	format := strings.ToLower(o.Format)
	if !validFormats[format] {
		errs = append(errs, ValidationError{
			Field:   "output.format",
			Value:   o.Format,
			Message: "unsupported output format",
		})
		return errs
	}

	if databaseFormats[format] && o.DSN == "" {
		errs = append(errs, ValidationError{
			Field:   "output.dsn",
			Message: fmt.Sprintf("%s output requires a DSN", format),
		})
	}
	if format == "excel" && o.File == "" {
		errs = append(errs, ValidationError{
			Field:   "output.file",
			Message: "excel output requires a file path",
		})
	}

	return errs
}
