// internal/output/types.go

// Package output persists canonical agent records. Writers are
// append-only and order-preserving within a batch; the database sinks
// key their uniqueness constraint on the record's identity key, so
// re-running a harvest does not duplicate rows.
package output

import (
	"context"
	"fmt"
	"regexp"

	"github.com/propdata/agentharvest/internal/agents"
)

// Format selects a sink implementation.
type Format string

const (
	FormatJSONL      Format = "jsonl"
	FormatJSON       Format = "json"
	FormatCSV        Format = "csv"
	FormatExcel      Format = "excel"
	FormatSQLite     Format = "sqlite"
	FormatPostgreSQL Format = "postgresql"
	FormatMySQL      Format = "mysql"
	FormatMongoDB    Format = "mongodb"
)

// ValidFormats returns all supported format values
func ValidFormats() []Format {
	return []Format{
		FormatJSONL, FormatJSON, FormatCSV, FormatExcel,
		FormatSQLite, FormatPostgreSQL, FormatMySQL, FormatMongoDB,
	}
}

// IsValid checks if the output format is supported
func (f Format) IsValid() bool {
	for _, valid := range ValidFormats() {
		if f == valid {
			return true
		}
	}
	return false
}

// Config selects and addresses a sink.
type Config struct {
	Format Format

	// File is the destination for the file-based formats; empty means
	// stdout where the format can stream
	File string

	// DSN is the connection string (or database path) for the
	// database formats
	DSN string

	// Table names the SQL table; defaults to "agents"
	Table string

	// Database and Collection address the MongoDB sink
	Database   string
	Collection string

	// Sheet names the Excel worksheet; defaults to "Agents"
	Sheet string
}

// Writer is the sink interface the crawl controller writes through.
type Writer interface {
	Write(ctx context.Context, records []agents.Record) error
	Close() error
}

// columns is the tabular projection of a record, shared by the CSV,
// Excel and database sinks. record_key leads so the database sinks can
// hang their uniqueness constraint on it.
var columns = []string{
	"record_key",
	"agent_id",
	"name",
	"branch_name",
	"company_name",
	"url",
	"address",
	"postal_code",
	"locality",
	"phone",
	"website",
	"logo",
	"rating",
	"review_count",
	"listings_for_sale",
	"listings_to_rent",
	"source",
	"scraped_at",
}

// rowValues flattens a record in columns order. Absent optional
// numerics become nil so the database sinks store NULL.
func rowValues(rec agents.Record) []interface{} {
	return []interface{}{
		rec.Key,
		rec.AgentID,
		rec.Name,
		rec.BranchName,
		rec.CompanyName,
		rec.URL,
		rec.Address,
		rec.PostalCode,
		rec.Locality,
		rec.Phone,
		rec.Website,
		rec.Logo,
		optionalFloat(rec.Rating),
		optionalInt(rec.ReviewCount),
		optionalInt(rec.ListingsForSale),
		optionalInt(rec.ListingsToRent),
		string(rec.Source),
		rec.ScrapedAt.UTC(),
	}
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// sqlIdentifierRegex: starts with letter or underscore, contains
// letters, digits, underscores
var sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName rejects table names that cannot be embedded safely
// in DDL and insert statements.
func validateTableName(table string) error {
	if table == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !sqlIdentifierRegex.MatchString(table) {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// placeholders renders n comma-separated "?" markers.
func placeholders(n int) string {
	out := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ", "...)
		}
		out = append(out, '?')
	}
	return string(out)
}

// pgPlaceholders renders "$1, $2, ..." up to n.
func pgPlaceholders(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += fmt.Sprintf("$%d", i)
	}
	return out
}
