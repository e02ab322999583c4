package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "optexec/internal/errors"
)

func sampleTables() []Table {
	return []Table{
		{
			Name:    "comparison",
			Headers: []string{"strategy", "total_cost", "cost_per_share"},
			Rows: [][]string{
				{"vwap", FormatMoney(1234.5678), FormatFloat(0.0012345, 6)},
				{"twap", FormatMoney(999.994), FormatFloat(0.001, 6)},
			},
		},
		{
			Name:    "portfolio",
			Headers: []string{"symbol", "allocation"},
			Rows:    [][]string{{"AAPL", FormatPercent(0.5)}},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing BOM")

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "money rounds half up", got: FormatMoney(2.345), want: "2.35"},
		{name: "money pads", got: FormatMoney(13.4), want: "13.40"},
		{name: "float places", got: FormatFloat(0.123456789, 4), want: "0.1235"},
		{name: "percent", got: FormatPercent(0.3333), want: "33.33%"},
		{name: "shares", got: FormatShares(1999.6), want: "2000"},
		{name: "int", got: FormatInt(390), want: "390"},
		{name: "bool", got: FormatBool(true), want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestTableValidate(t *testing.T) {
	assert.NoError(t, sampleTables()[0].Validate())
	assert.Error(t, Table{Headers: []string{"a"}}.Validate())
	assert.Error(t, Table{Name: "x", Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}.Validate())
}

func TestCSVWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	path, err := w.WriteTable("report", sampleTables()[0])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_comparison.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"strategy", "total_cost", "cost_per_share"}, records[0])
	assert.Equal(t, []string{"vwap", "1234.57", "0.001235"}, records[1])
	assert.Equal(t, []string{"twap", "999.99", "0.001000"}, records[2])

	require.NoError(t, w.AppendToCSV("report_comparison.csv", [][]string{{"adaptive", "1.00", "0.000001"}}))
	assert.Len(t, readCSV(t, path), 4)

	_, err = w.WriteTable("report", Table{Name: "bad", Headers: []string{"a"}, Rows: [][]string{{"1", "2"}}})
	assert.Error(t, err)
}

func TestXLSXWriter(t *testing.T) {
	dir := t.TempDir()
	path, err := NewXLSXWriter(dir, nil).Write("report", sampleTables())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"comparison", "portfolio"}, f.GetSheetList())

	rows, err := f.GetRows("comparison")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "strategy", rows[0][0])
	assert.Equal(t, "1234.57", rows[1][1])

	rows, err = f.GetRows("portfolio")
	require.NoError(t, err)
	assert.Equal(t, "50.00%", rows[1][1])

	_, err = NewXLSXWriter(dir, nil).Write("empty", nil)
	assert.Error(t, err)
}

func TestSheetNameTruncated(t *testing.T) {
	assert.Equal(t, "stress", sheetName("stress"))
	assert.Len(t, sheetName("a_very_long_table_name_that_excel_rejects"), maxSheetName)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, nil)
	doc := map[string]interface{}{"best_strategy": "twap", "savings": 1000.5}

	paths, err := e.Export(context.Background(), "run", []string{FormatCSV, FormatXLSX, FormatJSON}, sampleTables(), doc)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "run_comparison.csv"),
		filepath.Join(dir, "run_portfolio.csv"),
		filepath.Join(dir, "run.xlsx"),
		filepath.Join(dir, "run.json"),
	}, paths)

	data, err := os.ReadFile(filepath.Join(dir, "run.json"))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "twap", decoded["best_strategy"])
}

func TestExportErrors(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, nil)

	paths, err := e.Export(context.Background(), "run", []string{"pdf", FormatJSON}, sampleTables(), map[string]int{"a": 1})
	require.Error(t, err)
	assert.Len(t, paths, 1, "valid formats are still written")

	var appErr *apierrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apierrors.ErrTypeExport, appErr.Type)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Export(ctx, "run", []string{FormatCSV}, sampleTables(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAppendHistory(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, nil)
	headers := []string{"generated_at", "best_strategy"}

	path, err := e.AppendHistory(headers, []string{"2026-01-01T00:00:00Z", "twap"})
	require.NoError(t, err)
	_, err = e.AppendHistory(headers, []string{"2026-01-02T00:00:00Z", "vwap"})
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, headers, records[0])
	assert.Equal(t, "vwap", records[2][1])
}
