// Package metrics provides the per-run monotonic counter registry used by
// the executor and the optional OpenTelemetry bridge, grounded on
// original_source/core/metrics.py's Counter-backed MetricsRegistry and the
// teacher's core.MetricsRegistry interface shape (Counter/Gauge/Histogram).
package metrics

import (
	"sort"
	"strings"
	"sync"
)

// Registry is a per-run, unshared counter store keyed by canonical
// "name|k=v,k2=v2" strings with labels sorted, matching spec §4.7's
// "monotonic counters keyed by name plus a canonical k=v label suffix
// (labels sorted)".
type Registry struct {
	mu       sync.Mutex
	counters map[string]int64
}

// New creates an empty registry. Registries are never shared across runs
// (spec §5: "The metrics registry is per-run and therefore unshared").
func New() *Registry {
	return &Registry{counters: map[string]int64{}}
}

func canonicalKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return name + "|" + strings.Join(parts, ",")
}

// Inc increments a named, optionally labeled counter by 1.
func (r *Registry) Inc(name string, labels map[string]string) {
	r.IncBy(name, 1, labels)
}

// IncBy increments a named, optionally labeled counter by value.
func (r *Registry) IncBy(name string, value int64, labels map[string]string) {
	key := canonicalKey(name, labels)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[key] += value
}

// Snapshot returns a point-in-time copy of every counter, used for
// RunTrace.MetricsSnapshot.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}
