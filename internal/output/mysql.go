// internal/output/mysql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/propdata/agentharvest/internal/agents"
	"github.com/propdata/agentharvest/internal/utils"
)

// record_key is VARCHAR rather than TEXT because MySQL cannot put a
// primary key on an unbounded column.
const mysqlSchema = "CREATE TABLE IF NOT EXISTS `%s` (\n" +
	"	record_key VARCHAR(512) PRIMARY KEY,\n" +
	"	agent_id TEXT,\n" +
	"	name TEXT NOT NULL,\n" +
	"	branch_name TEXT,\n" +
	"	company_name TEXT,\n" +
	"	url TEXT,\n" +
	"	address TEXT,\n" +
	"	postal_code TEXT,\n" +
	"	locality TEXT,\n" +
	"	phone TEXT,\n" +
	"	website TEXT,\n" +
	"	logo TEXT,\n" +
	"	rating DOUBLE,\n" +
	"	review_count INT,\n" +
	"	listings_for_sale INT,\n" +
	"	listings_to_rent INT,\n" +
	"	source TEXT,\n" +
	"	scraped_at DATETIME\n" +
	")"

// MySQLWriter writes records to a MySQL table with INSERT IGNORE
// semantics on the identity key.
type MySQLWriter struct {
	db     *sql.DB
	table  string
	insert string
	log    utils.Logger
}

// NewMySQLWriter connects and ensures the table exists. The DSN takes
// the driver's usual form, e.g. user:pass@tcp(host:3306)/dbname.
func NewMySQLWriter(config Config, log utils.Logger) (*MySQLWriter, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("mysql output requires a DSN")
	}
	table := config.Table
	if table == "" {
		table = "agents"
	}
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	if log == nil {
		log = utils.NewComponentLogger("mysql-output")
	}

	db, err := sql.Open("mysql", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf(mysqlSchema, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	log.WithField("table", table).Debug("mysql sink ready")

	return &MySQLWriter{
		db:     db,
		table:  table,
		insert: mysqlInsertSQL(table),
		log:    log,
	}, nil
}

func (w *MySQLWriter) Write(ctx context.Context, records []agents.Record) error {
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

func (w *MySQLWriter) Close() error {
	return w.db.Close()
}

func mysqlInsertSQL(table string) string {
	return fmt.Sprintf(
		"INSERT IGNORE INTO `%s` (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		placeholders(len(columns)),
	)
}
