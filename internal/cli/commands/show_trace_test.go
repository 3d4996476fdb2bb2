package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/tracing"
)

func TestShowTraceCommandPrintsLoadedTrace(t *testing.T) {
	dir := t.TempDir()
	trace := &orchtypes.RunTrace{TraceID: "t-1", RunID: "r-1", Status: orchtypes.RunCompleted}
	path, err := tracing.Export(dir, "trace", trace)
	require.NoError(t, err)

	cmd := NewShowTraceCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--path", path})

	require.NoError(t, cmd.Execute())

	var loaded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &loaded))
	assert.Equal(t, "t-1", loaded["trace_id"])
}
