package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Register is a flat tabular view of attendance rows ready for export. Rows
// are keyed by column name; missing cells render empty.
type Register struct {
	Title   string
	Columns []string
	Rows    []map[string]string
}

// CSVExporter renders a register as CSV bytes. The title is carried by the
// download filename, not the body.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the register.
func (e *CSVExporter) Render(reg Register) ([]byte, error) {
	if len(reg.Columns) == 0 {
		return nil, fmt.Errorf("csv register requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(reg.Columns); err != nil {
		return nil, fmt.Errorf("write register header: %w", err)
	}
	for _, row := range reg.Rows {
		record := make([]string, len(reg.Columns))
		for i, column := range reg.Columns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write register row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush register: %w", err)
	}
	return buf.Bytes(), nil
}
