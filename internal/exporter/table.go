package exporter

import "fmt"

// Table is a named grid of pre-formatted cells
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Validate checks that every row has one cell per header
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table has no name")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("table %s: row %d has %d cells, want %d", t.Name, i, len(row), len(t.Headers))
		}
	}
	return nil
}
