// Package exporter writes execution reports to disk.
//
// A report is handed over as a list of Tables plus an arbitrary JSON document.
// Each format has its own writer:
//
// CSVWriter: one CSV file per table, with a UTF-8 BOM for Excel compatibility.
//
// XLSXWriter: one workbook with a sheet per table.
//
// JSONWriter: the full report document, indented.
//
// Exporter dispatches to the writers for the configured formats.
//
// Example usage:
//
//	exp := exporter.New("reports", logger)
//	paths, err := exp.Export(ctx, "execution_report", []string{"csv", "xlsx"}, tables, report)
//
// Monetary values are rounded with shopspring/decimal before formatting, so the
// same number renders identically in every format.
package exporter
