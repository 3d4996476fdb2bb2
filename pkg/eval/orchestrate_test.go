package eval

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/logging"
	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/mockapi"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

func testConfig(t *testing.T, mockAPIBaseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		NoLLMMode:                true,
		WorkspaceDir:             dir,
		TracesDir:                dir,
		AllowedHTTPHosts:         []string{"127.0.0.1", "localhost"},
		MockAPIBaseURL:           mockAPIBaseURL,
		DefaultHTTPTimeoutS:      2.0,
		DefaultMaxSteps:          12,
		DefaultMaxRetriesPerStep: 2,
		DefaultBudgetUnits:       50,
		NonProgressThreshold:     3,
		EvalConcurrency:          4,
	}
}

func TestRunOrchestrationCompletesFetchAndSummarize(t *testing.T) {
	server := httptest.NewServer(mockapi.New().Handler())
	defer server.Close()

	cfg := testConfig(t, server.URL)
	store := memory.NewMemStore()

	trace, err := RunOrchestration(context.Background(), cfg, store, logging.NoOp(), "fetch data and summarize it", nil, false, "trace")
	require.NoError(t, err)
	assert.Equal(t, orchtypes.RunCompleted, trace.Status)
	require.NotEmpty(t, trace.ToolCalls)
	assert.Equal(t, orchtypes.ToolCallSuccess, trace.ToolCalls[0].Status)
}

func TestRunOrchestrationPersistsTraceAndMemoryEntry(t *testing.T) {
	server := httptest.NewServer(mockapi.New().Handler())
	defer server.Close()

	cfg := testConfig(t, server.URL)
	store := memory.NewMemStore()

	trace, err := RunOrchestration(context.Background(), cfg, store, logging.NoOp(), "calculate 3 + 4", nil, false, "trace")
	require.NoError(t, err)

	rows, err := store.GetMemoryEntries(context.Background(), "facts", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, rows)

	saved, err := store.Query(context.Background(), "SELECT trace_json FROM traces WHERE trace_id = $1", trace.TraceID)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}
