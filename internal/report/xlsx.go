// Package report renders a finished run into downloadable artifacts: the
// benchmark spreadsheet (primary) and an optional plain PDF summary. The
// layout is transposed — one row per characteristic, one column per bank —
// because that is how the benchmark is read.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mkraskou/bankbench/internal/catalog"
	"github.com/mkraskou/bankbench/internal/schema"
)

const (
	sheetName   = "Карты банков"
	maxColWidth = 50
)

// Writer renders run results into files under Dir.
type Writer struct {
	Dir string
}

// bankColumns keeps the first record seen per bank, in appearance order.
func bankColumns(records []schema.Record) ([]string, map[string]schema.Record) {
	var order []string
	byBank := make(map[string]schema.Record, len(records))
	for _, r := range records {
		bank := r.Bank()
		if _, seen := byBank[bank]; seen {
			continue
		}
		byBank[bank] = r
		order = append(order, bank)
	}
	return order, byBank
}

// WriteXLSX renders the benchmark table and returns the artifact path.
// fields orders and filters the rows; empty means every schema field.
func (w *Writer) WriteXLSX(records []schema.Record, fields []string) (string, error) {
	if len(fields) == 0 {
		fields = schema.FieldKeys
	}
	banks, byBank := bankColumns(records)

	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("drop default sheet: %w", err)
	}

	// header row: Параметр | bank | bank | ...
	widths := make([]int, len(banks)+1)
	setCell := func(col, row int, value string) error {
		cell, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return err
		}
		if n := len([]rune(value)); n > widths[col] {
			widths[col] = n
		}
		return f.SetCellValue(sheetName, cell, value)
	}

	if err := setCell(0, 0, "Параметр"); err != nil {
		return "", err
	}
	for i, bank := range banks {
		if err := setCell(i+1, 0, bank); err != nil {
			return "", err
		}
	}
	for row, field := range fields {
		if err := setCell(0, row+1, catalog.Caption(field)); err != nil {
			return "", err
		}
		for col, bank := range banks {
			value := ""
			if v, ok := byBank[bank][field].(string); ok {
				value = v
			}
			if err := setCell(col+1, row+1, value); err != nil {
				return "", err
			}
		}
	}

	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return "", fmt.Errorf("style: %w", err)
	}
	lastCell, err := excelize.CoordinatesToCellName(len(banks)+1, len(fields)+1)
	if err != nil {
		return "", err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCell, wrap); err != nil {
		return "", fmt.Errorf("apply style: %w", err)
	}
	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return "", err
		}
		adjusted := width + 2
		if adjusted > maxColWidth {
			adjusted = maxColWidth
		}
		if err := f.SetColWidth(sheetName, name, name, float64(adjusted)); err != nil {
			return "", fmt.Errorf("column width: %w", err)
		}
	}

	path := w.artifactPath("benchmark", "xlsx")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func (w *Writer) artifactPath(stem, ext string) string {
	name := fmt.Sprintf("%s_%s.%s", stem, time.Now().Format("20060102_150405"), ext)
	return filepath.Join(w.Dir, name)
}
