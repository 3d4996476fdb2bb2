package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

func TestDBQueryHandlerReturnsRows(t *testing.T) {
	store := memory.NewMemStore()
	require.NoError(t, store.AddMemoryEntry(context.Background(), "ns", "k1", "v1", nil))
	require.NoError(t, store.AddMemoryEntry(context.Background(), "ns", "k2", "v2", nil))

	pol := policy.New(&config.Config{})
	handler := NewDBQueryHandler(pol)
	tctx := &toolregistry.ToolExecutionContext{LongTermMemory: store}

	out, err := handler(context.Background(), map[string]any{
		"sql": "SELECT * FROM memory_entries", "readonly": true,
	}, tctx)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, 2, out["row_count"])
}

func TestDBQueryHandlerAppliesLimit(t *testing.T) {
	store := memory.NewMemStore()
	require.NoError(t, store.AddMemoryEntry(context.Background(), "ns", "k1", "v1", nil))
	require.NoError(t, store.AddMemoryEntry(context.Background(), "ns", "k2", "v2", nil))
	require.NoError(t, store.AddMemoryEntry(context.Background(), "ns", "k3", "v3", nil))

	pol := policy.New(&config.Config{})
	handler := NewDBQueryHandler(pol)
	tctx := &toolregistry.ToolExecutionContext{LongTermMemory: store}

	out, err := handler(context.Background(), map[string]any{
		"sql": "SELECT * FROM memory_entries", "readonly": true, "limit": 1,
	}, tctx)
	require.NoError(t, err)
	assert.Equal(t, 1, out["row_count"])
}

func TestDBQueryHandlerRejectsWriteWhenReadonly(t *testing.T) {
	pol := policy.New(&config.Config{EnableDBWrites: false})
	handler := NewDBQueryHandler(pol)
	tctx := &toolregistry.ToolExecutionContext{LongTermMemory: memory.NewMemStore()}

	_, err := handler(context.Background(), map[string]any{
		"sql": "DELETE FROM memory_entries", "readonly": true,
	}, tctx)
	require.Error(t, err)
	te, ok := orchtypes.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, orchtypes.FailurePolicyViolation, te.FailureType)
}

func TestDBQueryHandlerRequiresLongTermMemory(t *testing.T) {
	pol := policy.New(&config.Config{})
	handler := NewDBQueryHandler(pol)

	_, err := handler(context.Background(), map[string]any{
		"sql": "SELECT * FROM memory_entries",
	}, nil)
	require.Error(t, err)
	te, ok := orchtypes.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, orchtypes.FailureToolError, te.FailureType)
}
