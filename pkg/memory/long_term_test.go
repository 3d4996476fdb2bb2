package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

func TestMemStoreAddAndGetMemoryEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	require.NoError(t, store.AddMemoryEntry(ctx, "facts", "weather", "sunny", map[string]any{"source": "mock"}))
	require.NoError(t, store.AddMemoryEntry(ctx, "facts", "traffic", "light", nil))
	require.NoError(t, store.AddMemoryEntry(ctx, "other", "note", "hello", nil))

	entries, err := store.GetMemoryEntries(ctx, "facts", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "traffic", entries[0]["key"], "most recent entry comes first")
	assert.Equal(t, "weather", entries[1]["key"])
}

func TestMemStoreGetMemoryEntriesRespectsLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AddMemoryEntry(ctx, "ns", "k", "v", nil))
	}

	entries, err := store.GetMemoryEntries(ctx, "ns", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMemStoreSaveToolOutcome(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	require.NoError(t, store.SaveToolOutcome(ctx, "trace-1", "step-1", "http_get", "success", 120, map[string]any{"status_code": 200}))

	rows, err := store.Query(ctx, "SELECT * FROM tool_outcomes")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "http_get", rows[0]["tool_name"])
	assert.Equal(t, int64(120), rows[0]["latency_ms"])
}

func TestMemStoreSaveTraceUpsertsByRunID(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	trace := &orchtypes.RunTrace{
		TraceID:   "trace-1",
		RunID:     "run-1",
		Status:    orchtypes.RunExecuting,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveTrace(ctx, trace))

	finished := time.Now().UTC()
	trace.Status = orchtypes.RunCompleted
	trace.FinishedAt = &finished
	trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopSuccessCriteriaMet}
	require.NoError(t, store.SaveTrace(ctx, trace))

	rows, err := store.Query(ctx, "SELECT * FROM runs")
	require.NoError(t, err)
	require.Len(t, rows, 1, "saving the same run_id twice must upsert, not duplicate")
	assert.Equal(t, string(orchtypes.RunCompleted), rows[0]["status"])
	assert.Equal(t, string(orchtypes.StopSuccessCriteriaMet), rows[0]["stop_reason"])
}

func TestMemStoreSaveEvalResult(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	require.NoError(t, store.SaveEvalResult(ctx, "scenario-1", true, "matched expected stop reason", 1.0, "runtime/traces/trace.json"))

	rows, err := store.Query(ctx, "SELECT * FROM eval_results")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, true, rows[0]["passed"])
	assert.Equal(t, "scenario-1", rows[0]["scenario_id"])
}
