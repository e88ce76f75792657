package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const defaultRegisterTitle = "Attendance Register"

// PDFExporter renders a register as a printable PDF. Registers are wide
// (date, roll number, name, status, remarks), so pages are landscape.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document for the register. An empty title falls back
// to the default register heading.
func (e *PDFExporter) Render(reg Register) ([]byte, error) {
	if len(reg.Columns) == 0 {
		return nil, fmt.Errorf("pdf register requires at least one column")
	}
	title := reg.Title
	if title == "" {
		title = defaultRegisterTitle
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	colWidth := 277.0 / float64(len(reg.Columns))
	for _, column := range reg.Columns {
		pdf.CellFormat(colWidth, 8, column, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range reg.Rows {
		for _, column := range reg.Columns {
			pdf.CellFormat(colWidth, 7, row[column], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render register pdf: %w", err)
	}
	return buf.Bytes(), nil
}
