// internal/output/excel.go
package output

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/propdata/agentharvest/internal/agents"
)

// ExcelWriter accumulates records in a workbook and saves it on Close.
type ExcelWriter struct {
	workbook *excelize.File
	path     string
	sheet    string
	row      int
}

// NewExcelWriter creates a workbook with a header row on the configured
// sheet.
func NewExcelWriter(config Config) (*ExcelWriter, error) {
	if config.File == "" {
		return nil, fmt.Errorf("excel output requires a file path")
	}
	sheet := config.Sheet
	if sheet == "" {
		sheet = "Agents"
	}

	workbook := excelize.NewFile()
	if err := workbook.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}

	for i, column := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := workbook.SetCellValue(sheet, cell, column); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	return &ExcelWriter{
		workbook: workbook,
		path:     config.File,
		sheet:    sheet,
		row:      1,
	}, nil
}

func (w *ExcelWriter) Write(_ context.Context, records []agents.Record) error {
	for _, rec := range records {
		w.row++
		for i, value := range rowValues(rec) {
			if value == nil {
				continue
			}
			if ts, ok := value.(time.Time); ok {
				value = ts.Format(time.RFC3339)
			}
			cell, err := excelize.CoordinatesToCellName(i+1, w.row)
			if err != nil {
				return err
			}
			if err := w.workbook.SetCellValue(w.sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// Close saves the workbook to disk.
func (w *ExcelWriter) Close() error {
	defer w.workbook.Close()
	if err := w.workbook.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
