// internal/output/sqlite.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/propdata/agentharvest/internal/agents"
	"github.com/propdata/agentharvest/internal/utils"
)

// sqliteSchema holds one row per identity key; INSERT OR IGNORE keeps
// re-runs idempotent.
const sqliteSchema = `CREATE TABLE IF NOT EXISTS %s (
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
	rating REAL,
	review_count INTEGER,
	listings_for_sale INTEGER,
	listings_to_rent INTEGER,
	source TEXT,
	scraped_at DATETIME
)`

// SQLiteWriter writes records to a SQLite database file.
type SQLiteWriter struct {
	db     *sql.DB
	table  string
	insert string
	log    utils.Logger
}

// NewSQLiteWriter opens (creating if needed) the database and ensures
// the table exists.
func NewSQLiteWriter(config Config, log utils.Logger) (*SQLiteWriter, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("sqlite output requires a database path")
	}
	table := config.Table
	if table == "" {
		table = "agents"
	}
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	if log == nil {
		log = utils.NewComponentLogger("sqlite-output")
	}

	if dir := filepath.Dir(config.DSN); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := config.DSN
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(fmt.Sprintf(sqliteSchema, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	log.WithField("table", table).Debug("sqlite sink ready")

	return &SQLiteWriter{
		db:     db,
		table:  table,
		insert: insertOrIgnoreSQL(table),
		log:    log,
	}, nil
}

func (w *SQLiteWriter) Write(ctx context.Context, records []agents.Record) error {
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

func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

func insertOrIgnoreSQL(table string) string {
	return fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		placeholders(len(columns)),
	)
}
