package tracing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// Export serializes trace to "{UTCTimestamp}_{prefix}_{trace_id}.json"
// under dir, matching spec §6's trace export naming convention, and
// returns the path written. Field names come from the struct's json tags
// which are already lowercase snake_case (spec §6).
func Export(dir, prefix string, trace *orchtypes.RunTrace) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("tracing: create trace dir: %w", err)
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("%s_%s_%s.json", ts, prefix, trace.TraceID)
	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tracing: marshal trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("tracing: write trace file: %w", err)
	}
	return path, nil
}

// Load reads a previously exported trace file, used by the `show-trace`
// CLI command.
func Load(path string) (*orchtypes.RunTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tracing: read trace file: %w", err)
	}
	var trace orchtypes.RunTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("tracing: unmarshal trace file: %w", err)
	}
	return &trace, nil
}
