// internal/output/postgresql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/propdata/agentharvest/internal/agents"
	"github.com/propdata/agentharvest/internal/utils"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS %s (
	record_key TEXT PRIMARY KEY,
	agent_id TEXT,
	name TEXT NOT NULL,
	branch_name TEXT,
	company_name TEXT,
	url TEXT,
	address TEXT,
	postal_code TEXT,
	locality TEXT,
	phone TEXT,
	website TEXT,
	logo TEXT,
	rating DOUBLE PRECISION,
	review_count INTEGER,
	listings_for_sale INTEGER,
	listings_to_rent INTEGER,
	source TEXT,
	scraped_at TIMESTAMPTZ
)`

// PostgresWriter writes records to a PostgreSQL table, ignoring rows
// whose identity key is already present.
type PostgresWriter struct {
	db     *sql.DB
	table  string
	insert string
	log    utils.Logger
}

// NewPostgresWriter connects and ensures the table exists.
func NewPostgresWriter(config Config, log utils.Logger) (*PostgresWriter, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("postgresql output requires a DSN")
	}
	table := config.Table
	if table == "" {
		table = "agents"
	}
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	if log == nil {
		log = utils.NewComponentLogger("postgres-output")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	quoted := pq.QuoteIdentifier(table)
	if _, err := db.Exec(fmt.Sprintf(postgresSchema, quoted)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	log.WithField("table", table).Debug("postgresql sink ready")

	return &PostgresWriter{
		db:     db,
		table:  table,
		insert: postgresInsertSQL(quoted),
		log:    log,
	}, nil
}

func (w *PostgresWriter) Write(ctx context.Context, records []agents.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, w.insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rowValues(rec)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert record %q: %w", rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (w *PostgresWriter) Close() error {
	return w.db.Close()
}

func postgresInsertSQL(quotedTable string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (record_key) DO NOTHING",
		quotedTable,
		strings.Join(columns, ", "),
		pgPlaceholders(len(columns)),
	)
}
