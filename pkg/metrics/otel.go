package metrics

import (
	"context"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterProvider wraps an OpenTelemetry SDK meter provider, exporting one
// snapshot flush per run instead of the teacher's 30-second periodic
// reader (telemetry/otel.go's sdkmetric.NewPeriodicReader) — a run's
// counters are final once it returns, so there is nothing to sample
// mid-run. Export target mirrors pkg/tracing.TracerProvider: the stdout
// exporter writes to the file named by ORCHESTRON_OTEL_METRICS_FILE, and
// its output is discarded when that variable is unset.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	meter    otelmetric.Meter
}

// NewMeterProvider builds a file-exporting (or, with no file configured,
// discarding) meter provider for serviceName.
func NewMeterProvider(serviceName string) (*MeterProvider, error) {
	var opts []stdoutmetric.Option
	if path := os.Getenv("ORCHESTRON_OTEL_METRICS_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			opts = append(opts, stdoutmetric.WithWriter(f))
		}
	} else {
		opts = append(opts, stdoutmetric.WithWriter(discardWriter{}))
	}
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Hour))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &MeterProvider{provider: provider, meter: provider.Meter(serviceName)}, nil
}

// ExportSnapshot reports every counter in snapshot to the underlying
// meter, splitting each canonical "name|k=v,k2=v2" key (Registry's
// format) back into an instrument name and attributes.
func (mp *MeterProvider) ExportSnapshot(ctx context.Context, snapshot map[string]int64) {
	for key, value := range snapshot {
		name, attrs := splitCanonicalKey(key)
		counter, err := mp.meter.Int64Counter(name)
		if err != nil {
			continue
		}
		counter.Add(ctx, value, otelmetric.WithAttributes(attrs...))
	}
}

// ForceFlush pushes any instrument readings recorded via ExportSnapshot
// to the exporter immediately, without shutting the provider down.
func (mp *MeterProvider) ForceFlush(ctx context.Context) error {
	return mp.provider.ForceFlush(ctx)
}

// Shutdown flushes the final snapshot to the exporter and releases
// provider resources. Call once at process exit.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	return mp.provider.Shutdown(ctx)
}

func splitCanonicalKey(key string) (string, []attribute.KeyValue) {
	name, labelPart, found := strings.Cut(key, "|")
	if !found {
		return name, nil
	}
	var attrs []attribute.KeyValue
	for _, pair := range strings.Split(labelPart, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if ok {
			attrs = append(attrs, attribute.String(k, v))
		}
	}
	return name, attrs
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
