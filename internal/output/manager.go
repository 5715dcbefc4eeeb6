// internal/output/manager.go
package output

import (
	"fmt"

	"github.com/propdata/agentharvest/internal/utils"
)

// NewWriter builds the sink for the configured format.
func NewWriter(config Config, log utils.Logger) (Writer, error) {
	switch config.Format {
	case FormatJSONL:
		return NewJSONLWriter(config.File)
	case FormatJSON:
		return NewJSONWriter(config.File)
	case FormatCSV:
		return NewCSVWriter(config.File)
	case FormatExcel:
		return NewExcelWriter(config)
	case FormatSQLite:
		return NewSQLiteWriter(config, log)
	case FormatPostgreSQL:
		return NewPostgresWriter(config, log)
	case FormatMySQL:
		return NewMySQLWriter(config, log)
	case FormatMongoDB:
		return NewMongoWriter(config, log)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", config.Format)
	}
}
