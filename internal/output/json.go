// internal/output/json.go
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/propdata/agentharvest/internal/agents"
)

// openOrStdout opens the destination file, or hands back stdout when no
// path is configured. The second return reports whether Close should
// close the handle.
func openOrStdout(filename string) (*os.File, bool, error) {
	if filename == "" {
		return os.Stdout, false, nil
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create %s: %w", filename, err)
	}
	return file, true, nil
}

// JSONLWriter streams one JSON object per record per line.
type JSONLWriter struct {
	file    *os.File
	encoder *json.Encoder
	owns    bool
}

// NewJSONLWriter creates a JSON Lines writer; an empty filename streams
// to stdout.
func NewJSONLWriter(filename string) (*JSONLWriter, error) {
	file, owns, err := openOrStdout(filename)
	if err != nil {
		return nil, err
	}
	return &JSONLWriter{
		file:    file,
		encoder: json.NewEncoder(file),
		owns:    owns,
	}, nil
}

func (w *JSONLWriter) Write(_ context.Context, records []agents.Record) error {
	for _, rec := range records {
		if err := w.encoder.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	if !w.owns {
		return nil
	}
	return w.file.Close()
}

// JSONWriter accumulates the whole run and writes a single indented
// array on Close.
type JSONWriter struct {
	file    *os.File
	owns    bool
	records []agents.Record
}

// NewJSONWriter creates a JSON array writer; an empty filename writes
// to stdout on Close.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	file, owns, err := openOrStdout(filename)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{file: file, owns: owns}, nil
}

func (w *JSONWriter) Write(_ context.Context, records []agents.Record) error {
	w.records = append(w.records, records...)
	return nil
}

func (w *JSONWriter) Close() error {
	records := w.records
	if records == nil {
		records = []agents.Record{}
	}

	encoder := json.NewEncoder(w.file)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(records)
	if err != nil {
		err = fmt.Errorf("failed to encode records: %w", err)
	}

	if w.owns {
		if closeErr := w.file.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
