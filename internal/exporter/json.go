package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONWriter writes a report document as indented JSON
type JSONWriter struct {
	dir string
}

// NewJSONWriter creates a JSON writer rooted at dir
func NewJSONWriter(dir string) *JSONWriter {
	return &JSONWriter{dir: dir}
}

// Write encodes doc to <base>.json and returns the path
func (w *JSONWriter) Write(base string, doc interface{}) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("json: encode: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(w.dir, base+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("json: write: %w", err)
	}
	return path, nil
}
