package planning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/refinement"
)

// erroringStore implements memory.Store with GetMemoryEntries always
// failing, used to exercise BuildPlan's (and therefore ReplanRemaining's)
// error propagation path.
type erroringStore struct{ memory.Store }

func (erroringStore) GetMemoryEntries(ctx context.Context, namespace string, limit int) ([]memory.Row, error) {
	return nil, errors.New("boom")
}

func testConfig() *config.Config {
	return &config.Config{
		MockAPIBaseURL:           "http://mock-api:8001",
		DefaultHTTPTimeoutS:      2.0,
		DefaultMaxSteps:          12,
		DefaultMaxRetriesPerStep: 2,
		DefaultBudgetUnits:       50,
	}
}

var fullCatalog = []orchtypes.ToolCatalogEntry{
	{Name: "http_get"}, {Name: "http_post"}, {Name: "db_query"},
	{Name: "file_write"}, {Name: "calc"}, {Name: "summarize"},
}

func TestBuildPlanFetchAppendsHTTPGetOnly(t *testing.T) {
	h := New(testConfig(), nil)
	perception := orchtypes.PerceptionResult{
		Entities: map[string]any{"raw_goal": "fetch data from the api"},
	}
	plan, err := h.BuildPlan(context.Background(), perception, fullCatalog, nil)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "http_get", plan.Steps[0].ToolName)
	assert.Equal(t, "http://mock-api:8001/data", plan.Steps[0].ToolArgs["url"])
}

func TestBuildPlanFetchAndSummarizeAppendsBoth(t *testing.T) {
	h := New(testConfig(), nil)
	perception := orchtypes.PerceptionResult{
		Entities: map[string]any{"raw_goal": "fetch data and summarize it"},
	}
	plan, err := h.BuildPlan(context.Background(), perception, fullCatalog, nil)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "http_get", plan.Steps[0].ToolName)
	assert.Equal(t, "summarize", plan.Steps[1].ToolName)
}

func TestBuildPlanHonorsForceInvalidTool(t *testing.T) {
	h := New(testConfig(), nil)
	perception := orchtypes.PerceptionResult{
		Entities: map[string]any{"raw_goal": "trigger non-existent tool", "force_invalid_tool": true},
	}
	plan, err := h.BuildPlan(context.Background(), perception, fullCatalog, nil)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "non_existent_tool", plan.Steps[0].ToolName)
}

func TestBuildPlanUsesFlakyMockEndpoint(t *testing.T) {
	h := New(testConfig(), nil)
	perception := orchtypes.PerceptionResult{
		Entities: map[string]any{"raw_goal": "fetch the flaky endpoint"},
	}
	plan, err := h.BuildPlan(context.Background(), perception, fullCatalog, nil)
	require.NoError(t, err)
	assert.Contains(t, plan.Steps[0].ToolArgs["url"], "/flaky")
}

func TestBuildPlanRerouteOnMalformedFailureContext(t *testing.T) {
	h := New(testConfig(), nil)
	perception := orchtypes.PerceptionResult{
		Entities: map[string]any{"raw_goal": "fetch the malformed endpoint"},
	}
	scratchpad := map[string]any{
		"failure_context": map[string]any{"failure_type": "schema_error", "step_id": "s1"},
	}
	plan, err := h.BuildPlan(context.Background(), perception, fullCatalog, scratchpad)
	require.NoError(t, err)
	assert.Equal(t, "http://mock-api:8001/data", plan.Steps[0].ToolArgs["url"])
	assert.Contains(t, plan.PlannerNotes, "Replanned malformed endpoint to /data")
}

func TestBuildPlanBumpsTimeoutOnTimeoutFailureContext(t *testing.T) {
	h := New(testConfig(), nil)
	perception := orchtypes.PerceptionResult{
		Entities: map[string]any{"raw_goal": "fetch data"},
	}
	scratchpad := map[string]any{
		"failure_context": map[string]any{"failure_type": "timeout", "step_id": "s1"},
	}
	plan, err := h.BuildPlan(context.Background(), perception, fullCatalog, scratchpad)
	require.NoError(t, err)
	assert.Equal(t, 3.5, plan.Steps[0].ToolArgs["timeout_s"])
}

func TestBuildPlanFallsBackToSummarizeWhenNothingElseMatches(t *testing.T) {
	h := New(testConfig(), nil)
	perception := orchtypes.PerceptionResult{Entities: map[string]any{"raw_goal": "do nothing in particular"}}
	plan, err := h.BuildPlan(context.Background(), perception, fullCatalog, nil)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "summarize", plan.Steps[0].ToolName)
}

func TestReplanRemainingRebuildsFromPerception(t *testing.T) {
	h := New(testConfig(), nil)
	remaining := []orchtypes.PlanStep{{StepID: "orig-1", ToolName: "calc"}}
	perception := orchtypes.PerceptionResult{Entities: map[string]any{"raw_goal": "calculate 3 + 4"}}
	got := h.ReplanRemaining(perception, remaining, fullCatalog, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "calc", got[0].ToolName)
}

func TestReplanRemainingFallsBackWhenRebuildErrors(t *testing.T) {
	store := erroringStore{}
	h := New(testConfig(), store)
	remaining := []orchtypes.PlanStep{{StepID: "orig-1", ToolName: "calc"}}
	perception := orchtypes.PerceptionResult{Entities: map[string]any{"raw_goal": "calculate 3 + 4"}}
	got := h.ReplanRemaining(perception, remaining, fullCatalog, nil)
	assert.Equal(t, remaining, got)
}

var _ refinement.Planner = (*Heuristic)(nil)
