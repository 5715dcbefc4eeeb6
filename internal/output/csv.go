// internal/output/csv.go
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/propdata/agentharvest/internal/agents"
)

// CSVWriter writes records as CSV with a fixed header row.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	owns   bool
	header bool
}

// NewCSVWriter creates a CSV writer; an empty filename streams to
// stdout.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	file, owns, err := openOrStdout(filename)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{
		file:   file,
		writer: csv.NewWriter(file),
		owns:   owns,
	}, nil
}

func (w *CSVWriter) Write(_ context.Context, records []agents.Record) error {
	if len(records) == 0 {
		return nil
	}

	if !w.header {
		if err := w.writer.Write(columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.header = true
	}

	for _, rec := range records {
		if err := w.writer.Write(rowStrings(rec)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

func (w *CSVWriter) Close() error {
	w.writer.Flush()
	err := w.writer.Error()

	if w.owns {
		if closeErr := w.file.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// rowStrings renders a record for CSV; absent optionals become empty
// cells.
func rowStrings(rec agents.Record) []string {
	values := rowValues(rec)
	row := make([]string, 0, len(values))
	for _, v := range values {
		switch t := v.(type) {
		case nil:
			row = append(row, "")
		case string:
			row = append(row, t)
		case int:
			row = append(row, strconv.Itoa(t))
		case float64:
			row = append(row, strconv.FormatFloat(t, 'f', -1, 64))
		case time.Time:
			row = append(row, t.Format(time.RFC3339))
		default:
			row = append(row, fmt.Sprint(t))
		}
	}
	return row
}
