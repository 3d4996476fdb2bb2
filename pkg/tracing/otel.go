package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider wraps an OpenTelemetry tracer provider so the executor can
// emit one span per run (start/stop) without taking a hard OTel dependency
// on its control flow. Grounded on the teacher's telemetry.OTelProvider
// (telemetry/otel.go), trimmed to the stdout exporter only — this engine
// has no OTLP collector configuration surface in spec.md, so we don't wire
// otlptrace/otlptracegrpc the way the teacher does for its HTTP agents.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracerProvider builds a tracer provider on the stdouttrace exporter.
// Spans are always created and sampled; they are written to the file
// named by ORCHESTRON_OTEL_TRACE_FILE, and discarded when that variable
// is unset. OTEL_EXPORTER_OTLP_ENDPOINT is not read.
func NewTracerProvider(serviceName string) (*TracerProvider, error) {
	var opts []stdouttrace.Option
	if path := os.Getenv("ORCHESTRON_OTEL_TRACE_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			opts = append(opts, stdouttrace.WithWriter(f))
		}
	} else {
		opts = append(opts, stdouttrace.WithWriter(discardWriter{}))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return &TracerProvider{provider: tp, tracer: tp.Tracer(serviceName)}, nil
}

// StartRunSpan starts a span named "run" carrying trace/run id attributes,
// used by eval.RunOrchestration to bracket one RunTrace's lifetime.
func (tp *TracerProvider) StartRunSpan(ctx context.Context, traceID, runID string) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("trace_id", traceID),
		attribute.String("run_id", runID),
	))
}

// ForceFlush exports any spans buffered by the batcher immediately,
// without shutting the provider down — used once per run since the
// provider itself is a long-lived, process-wide singleton.
func (tp *TracerProvider) ForceFlush(ctx context.Context) error {
	return tp.provider.ForceFlush(ctx)
}

// Shutdown flushes pending spans. Call once at process exit.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
