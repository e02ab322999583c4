package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apierrors "optexec/internal/errors"
)

// Supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// historyFile accumulates one summary row per report run
const historyFile = "history.csv"

// Exporter writes a report in every requested format
type Exporter struct {
	dir    string
	csv    *CSVWriter
	xlsx   *XLSXWriter
	json   *JSONWriter
	logger *slog.Logger
}

// New creates an exporter writing under dir
func New(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &Exporter{
		dir:    dir,
		csv:    NewCSVWriter(dir, logger),
		xlsx:   NewXLSXWriter(dir, logger),
		json:   NewJSONWriter(dir),
		logger: logger,
	}
}

// Export writes tables and doc under the base name in each format and returns
// the files written. Every format is attempted; failures are joined.
func (e *Exporter) Export(ctx context.Context, base string, formats []string, tables []Table, doc interface{}) ([]string, error) {
	var (
		paths []string
		errs  []error
	)

	for _, format := range formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		switch format {
		case FormatCSV:
			for _, t := range tables {
				p, err := e.csv.WriteTable(base, t)
				if err != nil {
					errs = append(errs, apierrors.NewExportError(format, err))
					continue
				}
				paths = append(paths, p)
			}
		case FormatXLSX:
			p, err := e.xlsx.Write(base, tables)
			if err != nil {
				errs = append(errs, apierrors.NewExportError(format, err))
				continue
			}
			paths = append(paths, p)
		case FormatJSON:
			p, err := e.json.Write(base, doc)
			if err != nil {
				errs = append(errs, apierrors.NewExportError(format, err))
				continue
			}
			paths = append(paths, p)
		default:
			errs = append(errs, apierrors.NewExportError(format, fmt.Errorf("unsupported format")))
		}
	}

	e.logger.InfoContext(ctx, "report exported",
		slog.String("base", base),
		slog.Any("formats", formats),
		slog.Int("files", len(paths)),
		slog.Int("errors", len(errs)))

	return paths, errors.Join(errs...)
}

// AppendHistory appends row to the history file, writing headers when the file
// is new
func (e *Exporter) AppendHistory(headers, row []string) (string, error) {
	path := filepath.Join(e.dir, historyFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		err := e.csv.WriteCSV(historyFile, WriteOptions{Headers: headers, Records: [][]string{row}, BOMPrefix: true})
		return path, err
	}
	return path, e.csv.AppendToCSV(historyFile, [][]string{row})
}
