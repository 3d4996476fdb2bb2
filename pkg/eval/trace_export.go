package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

func writeJSONFile(exportDir, filename string, data any) (string, error) {
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", fmt.Errorf("eval: create export dir: %w", err)
	}
	target := filepath.Join(exportDir, filename)
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("eval: marshal %s: %w", filename, err)
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return "", fmt.Errorf("eval: write %s: %w", filename, err)
	}
	return target, nil
}

// ExportTrace writes trace to exportDir/filename, the Go port of
// trace_export.py's export_trace.
func ExportTrace(trace *orchtypes.RunTrace, exportDir, filename string) (string, error) {
	return writeJSONFile(exportDir, filename, trace)
}

// ExportSummary writes summary to exportDir/filename ("eval_summary.json"
// by default), the Go port of export_eval_summary.
func ExportSummary(summary Summary, exportDir string, filename string) (string, error) {
	if filename == "" {
		filename = "eval_summary.json"
	}
	return writeJSONFile(exportDir, filename, summary)
}

// ExportJSON writes an arbitrary JSON-marshalable value, the Go port of
// export_json.
func ExportJSON(data any, exportDir, filename string) (string, error) {
	return writeJSONFile(exportDir, filename, data)
}
