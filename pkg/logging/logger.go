// Package logging provides the structured JSON logger used throughout the
// orchestrator, modeled on the teacher's core.Logger / core.ComponentAwareLogger
// interfaces and telemetry.TelemetryLogger's rate-limited, mutex-guarded
// stdout+file writer (grounded on core/interfaces.go and telemetry/logger.go
// in the teacher, and on original_source/core/logger.py for the exact
// event-shaped payload: ts/level/component/event/message/data).
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger is the minimal structured-event logging interface components
// depend on. Bind adds persistent fields (trace_id, run_id, component)
// without mutating the receiver, mirroring core.Logger.child in the
// original and core.ComponentAwareLogger.WithComponent in the teacher.
type Logger interface {
	Debug(event, message string, data map[string]any)
	Info(event, message string, data map[string]any)
	Warn(event, message string, data map[string]any)
	Error(event, message string, data map[string]any)
	Bind(component string, fields map[string]any) Logger
}

// StructuredLogger writes one JSON object per line to stdout and, when a
// log file is configured, appends the same line there. A single mutex
// serializes both writers so concurrent runs never interleave partial
// lines (teacher's telemetry.TelemetryLogger.mu pattern).
type StructuredLogger struct {
	component string
	context   map[string]any
	file      *os.File
	mu        *sync.Mutex
	out       io.Writer
}

// NewStructuredLogger creates a root logger. logFilePath may be empty to
// disable file logging (ORCHESTRON_LOG_TO_FILE=false).
func NewStructuredLogger(component string, logFilePath string) (*StructuredLogger, error) {
	var f *os.File
	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		opened, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		f = opened
	}
	return &StructuredLogger{
		component: component,
		context:   map[string]any{},
		file:      f,
		mu:        &sync.Mutex{},
		out:       os.Stdout,
	}, nil
}

func (l *StructuredLogger) Bind(component string, fields map[string]any) Logger {
	merged := make(map[string]any, len(l.context)+len(fields))
	for k, v := range l.context {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	comp := l.component
	if component != "" {
		comp = component
	}
	return &StructuredLogger{component: comp, context: merged, file: l.file, mu: l.mu, out: l.out}
}

func (l *StructuredLogger) emit(level, event, message string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	payload := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"component": l.component,
		"event":     event,
		"message":   message,
		"data":      data,
	}
	for k, v := range l.context {
		payload[k] = v
	}
	line, err := json.Marshal(payload)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"level":"ERROR","event":"log_marshal_failed","message":%q}`, err.Error()))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(line))
	if l.file != nil {
		fmt.Fprintln(l.file, string(line))
	}
}

func (l *StructuredLogger) Debug(event, message string, data map[string]any) { l.emit("DEBUG", event, message, data) }
func (l *StructuredLogger) Info(event, message string, data map[string]any)  { l.emit("INFO", event, message, data) }
func (l *StructuredLogger) Warn(event, message string, data map[string]any)  { l.emit("WARNING", event, message, data) }
func (l *StructuredLogger) Error(event, message string, data map[string]any) { l.emit("ERROR", event, message, data) }

// NoOp returns a Logger that discards everything, for tests that don't
// care about log output (mirrors the teacher's core.NoOpLogger).
func NoOp() Logger { return noop{} }

type noop struct{}

func (noop) Debug(string, string, map[string]any) {}
func (noop) Info(string, string, map[string]any)  {}
func (noop) Warn(string, string, map[string]any)  {}
func (noop) Error(string, string, map[string]any) {}
func (n noop) Bind(string, map[string]any) Logger { return n }
