package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is Excel's limit on sheet name length
const maxSheetName = 31

// XLSXWriter writes tables into a workbook, one sheet per table
type XLSXWriter struct {
	dir    string
	logger *slog.Logger
}

// NewXLSXWriter creates an XLSX writer rooted at dir
func NewXLSXWriter(dir string, logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{dir: dir, logger: logger}
}

// Write saves tables to <base>.xlsx and returns the path
func (w *XLSXWriter) Write(base string, tables []Table) (string, error) {
	if len(tables) == 0 {
		return "", fmt.Errorf("xlsx: no tables to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return "", fmt.Errorf("xlsx: header style: %w", err)
	}

	for i, t := range tables {
		if err := t.Validate(); err != nil {
			return "", err
		}
		sheet := sheetName(t.Name)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return "", fmt.Errorf("xlsx: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("xlsx: new sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, t, header); err != nil {
			return "", fmt.Errorf("xlsx: sheet %s: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	path := filepath.Join(w.dir, base+".xlsx")
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx: save: %w", err)
	}

	w.logger.Debug("wrote workbook", slog.String("path", path), slog.Int("sheets", len(tables)))
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, t Table, headerStyle int) error {
	headers := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	if len(t.Headers) == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(len(t.Headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}
