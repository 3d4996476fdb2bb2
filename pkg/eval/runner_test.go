package eval

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/itsneelabh/orchestron/pkg/logging"
	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/mockapi"
)

func writeScenarios(t *testing.T, scenarios []Scenario) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenarios.json")
	data, err := json.Marshal(scenarios)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunScenariosProducesPassingSummary(t *testing.T) {
	server := httptest.NewServer(mockapi.New().Handler())
	defer server.Close()

	scenariosPath := writeScenarios(t, []Scenario{
		{
			ID:             "fetch-and-summarize",
			Description:    "fetches mock data and summarizes it",
			Request:        "fetch data and summarize it",
			ExpectedStatus: "COMPLETED",
		},
		{
			ID:             "calc-basic",
			Description:    "evaluates arithmetic",
			Request:        "calculate 3 + 4",
			ExpectedStatus: "COMPLETED",
		},
	})

	cfg := testConfig(t, server.URL)
	exportDir := t.TempDir()
	store := memory.NewMemStore()

	summary, err := RunScenarios(context.Background(), cfg, store, logging.NoOp(), scenariosPath, exportDir)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 0, summary.Failed)

	_, statErr := os.Stat(filepath.Join(exportDir, "eval_summary.json"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(exportDir, "fetch-and-summarize.trace.json"))
	assert.NoError(t, statErr)
}

func writeYAMLScenarios(t *testing.T, scenarios []Scenario) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenarios.yaml")
	data, err := yaml.Marshal(scenarios)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunScenariosAcceptsYAMLScenarioFile(t *testing.T) {
	server := httptest.NewServer(mockapi.New().Handler())
	defer server.Close()

	scenariosPath := writeYAMLScenarios(t, []Scenario{
		{ID: "calc-basic", Request: "calculate 3 + 4", ExpectedStatus: "COMPLETED"},
	})

	cfg := testConfig(t, server.URL)
	store := memory.NewMemStore()

	summary, err := RunScenarios(context.Background(), cfg, store, logging.NoOp(), scenariosPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Passed)
}

func TestRunScenariosFlagsStatusMismatch(t *testing.T) {
	server := httptest.NewServer(mockapi.New().Handler())
	defer server.Close()

	scenariosPath := writeScenarios(t, []Scenario{
		{ID: "wrong-expectation", Request: "calculate 1 + 1", ExpectedStatus: "FAILED"},
	})

	cfg := testConfig(t, server.URL)
	exportDir := t.TempDir()
	store := memory.NewMemStore()

	summary, err := RunScenarios(context.Background(), cfg, store, logging.NoOp(), scenariosPath, exportDir)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Passed)
	assert.Contains(t, summary.Results[0].Reason, "Status mismatch")
}
