package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AllowedHTTPHosts: []string{"localhost", "mock-api"},
		EnableRealHTTP:   false,
		EnableDBWrites:   false,
	}
}

func TestValidateHTTPAllowsAllowlistedHost(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "http_get",
		ToolArgs: map[string]any{"url": "http://localhost:8001/data"},
	})
	assert.NoError(t, err)
}

func TestValidateHTTPRejectsNonAllowlistedHost(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "http_get",
		ToolArgs: map[string]any{"url": "http://evil.example.com/data"},
	})
	require.Error(t, err)
	toolErr, ok := orchtypes.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, orchtypes.FailurePolicyViolation, toolErr.FailureType)
}

func TestValidateHTTPRejectsDisallowedScheme(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "http_post",
		ToolArgs: map[string]any{"url": "ftp://localhost/x"},
	})
	assert.Error(t, err)
}

func TestValidateHTTPAllowsAnyHostWhenRealHTTPEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableRealHTTP = true
	e := New(cfg)
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "http_get",
		ToolArgs: map[string]any{"url": "https://api.example.com/data"},
	})
	assert.NoError(t, err)
}

func TestValidateFileWriteRejectsAbsolutePath(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "file_write",
		ToolArgs: map[string]any{"relative_path": "/etc/passwd"},
	})
	assert.Error(t, err)
}

func TestValidateFileWriteRejectsTraversal(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "file_write",
		ToolArgs: map[string]any{"relative_path": "../../etc/passwd"},
	})
	assert.Error(t, err)
}

func TestValidateFileWriteAllowsPlainRelativePath(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "file_write",
		ToolArgs: map[string]any{"relative_path": "reports/summary.txt"},
	})
	assert.NoError(t, err)
}

func TestValidateSQLRejectsNonSelectWhenReadonly(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "db_query",
		ToolArgs: map[string]any{"sql": "DELETE FROM users", "readonly": true},
	})
	assert.Error(t, err)
}

func TestValidateSQLAllowsSelectIgnoringCaseAndComments(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "db_query",
		ToolArgs: map[string]any{"sql": "-- comment\n   SELECT * FROM users", "readonly": true},
	})
	assert.NoError(t, err)
}

func TestValidateSQLRejectsWritesWhenDBWritesDisabled(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "db_query",
		ToolArgs: map[string]any{"sql": "UPDATE users SET name='x'", "readonly": false},
	})
	assert.Error(t, err)
}

func TestValidateSQLAllowsWritesWhenEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableDBWrites = true
	e := New(cfg)
	err := e.ValidateStep(orchtypes.PlanStep{
		ToolName: "db_query",
		ToolArgs: map[string]any{"sql": "UPDATE users SET name='x'", "readonly": false},
	})
	assert.NoError(t, err)
}

func TestValidateCalcAllowsWhitelistedOperators(t *testing.T) {
	e := New(testConfig(t))
	for _, expr := range []string{
		"1 + 2",
		"(1 + 2) * 3",
		"2 ** 10",
		"7 // 2",
		"7 % 2",
		"-3 + 4",
		"3.5 * 2",
	} {
		err := e.ValidateStep(orchtypes.PlanStep{ToolName: "calc", ToolArgs: map[string]any{"expression": expr}})
		assert.NoErrorf(t, err, "expression %q should be allowed", expr)
	}
}

func TestValidateCalcRejectsNamesAndCalls(t *testing.T) {
	e := New(testConfig(t))
	for _, expr := range []string{
		"__import__('os').system('rm -rf /')",
		"open('/etc/passwd').read()",
		"x + 1",
		"1; 2",
	} {
		err := e.ValidateStep(orchtypes.PlanStep{ToolName: "calc", ToolArgs: map[string]any{"expression": expr}})
		assert.Errorf(t, err, "expression %q should be rejected", expr)
	}
}

func TestValidateCalcRejectsEmptyExpression(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{ToolName: "calc", ToolArgs: map[string]any{"expression": ""}})
	assert.Error(t, err)
}

func TestValidateStepPassesThroughUnknownTool(t *testing.T) {
	e := New(testConfig(t))
	err := e.ValidateStep(orchtypes.PlanStep{ToolName: "summarize", ToolArgs: map[string]any{"text": "hi"}})
	assert.NoError(t, err)
}
