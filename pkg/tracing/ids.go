// Package tracing generates run/trace identifiers and exports finished
// traces to stable JSON files, grounded on original_source/core/tracing.py
// and the teacher's use of github.com/google/uuid for component IDs
// (core/tool.go's generateID).
package tracing

import (
	"strings"

	"github.com/google/uuid"
)

func hexID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewTraceID returns a 32-character hex trace id (spec §4.7: "128-bit
// random, hex-encoded").
func NewTraceID() string { return hexID() }

// NewRunID returns a 32-character hex run id, independent of trace id.
func NewRunID() string { return hexID() }

// NewStepAttemptID returns a 16-character hex id unique per tool attempt
// (spec §4.7: "64-bit random hex").
func NewStepAttemptID() string {
	return hexID()[:16]
}
