package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/mkraskou/bankbench/internal/catalog"
	"github.com/mkraskou/bankbench/internal/schema"
)

// WriteSummaryPDF renders a plain one-section-per-bank summary of the run,
// as a supplementary artifact next to the spreadsheet. Layout is
// intentionally simple.
func (w *Writer) WriteSummaryPDF(records []schema.Record, fields []string) (string, error) {
	if len(fields) == 0 {
		fields = schema.FieldKeys
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	// cp1251 covers the Cyrillic captions and values; the built-in core
	// fonts are latin-only otherwise.
	tr := pdf.UnicodeTranslatorFromDescriptor("cp1251")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr("Бенчмаркинг банковских продуктов"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Ln(3)

	for _, rec := range records {
		pdf.SetFont("Helvetica", "B", 12)
		header := fmt.Sprintf("%s — %s", rec.Bank(), rec.Product())
		pdf.CellFormat(0, 7, tr(header), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, field := range fields {
			value, _ := rec[field].(string)
			if value == "" {
				value = "—"
			}
			line := fmt.Sprintf("%s: %s", catalog.Caption(field), value)
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
		pdf.Ln(4)
	}

	path := w.artifactPath("benchmark_summary", "pdf")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("save pdf: %w", err)
	}
	return path, nil
}
