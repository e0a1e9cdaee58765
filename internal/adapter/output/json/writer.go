// Package json persists the run-level guardrails report as JSON.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verityhq/verity/internal/usecase/run"
)

// Writer implements the run.ReportWriter interface.
type Writer struct {
	now func() string
}

// NewWriter creates a new JSON report writer. The now func stamps the
// output directory so repeated runs never clobber each other.
func NewWriter(now func() string) *Writer {
	return &Writer{now: now}
}

// Write persists the report to disk as a JSON file.
func (w *Writer) Write(ctx context.Context, outputDir string, report run.Report) (string, error) {
	dir := filepath.Join(outputDir, w.now())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filePath := filepath.Join(dir, "guardrails-report.json")

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create json file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report to json: %w", err)
	}

	return filePath, nil
}
