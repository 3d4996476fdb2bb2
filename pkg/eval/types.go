// Package eval runs named goal scenarios end to end through the full
// perception/planning/validation/execution pipeline and scores the
// resulting trace against each scenario's expectations, grounded on
// original_source/eval/*.py and original_source/main.py's
// run_orchestration (the function every scenario run goes through, the
// same one the `run`/`demo` CLI commands call).
package eval

// Scenario is one eval case: a goal plus the expectations its resulting
// RunTrace must satisfy, the Go shape of original_source/core/types.py's
// EvalScenario.
type Scenario struct {
	ID                     string         `json:"id" yaml:"id"`
	Description            string         `json:"description" yaml:"description"`
	Request                string         `json:"request" yaml:"request"`
	Context                map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	ConfigOverrides        map[string]any `json:"config_overrides,omitempty" yaml:"config_overrides,omitempty"`
	ExpectedStatus         string         `json:"expected_status" yaml:"expected_status"`
	RequiredOutputContains []string       `json:"required_output_contains,omitempty" yaml:"required_output_contains,omitempty"`
	RequiredTraceEvents    []string       `json:"required_trace_events,omitempty" yaml:"required_trace_events,omitempty"`
	ForbiddenTraceEvents   []string       `json:"forbidden_trace_events,omitempty" yaml:"forbidden_trace_events,omitempty"`
	ExpectedStopReason     string         `json:"expected_stop_reason,omitempty" yaml:"expected_stop_reason,omitempty"`
}

// ScenarioResult is one scenario's scoring outcome, the Go shape of
// EvalScenarioResult.
type ScenarioResult struct {
	ScenarioID string  `json:"scenario_id"`
	Passed     bool    `json:"passed"`
	Reason     string  `json:"reason"`
	Score      float64 `json:"score"`
	TracePath  string  `json:"trace_path,omitempty"`
}

// Summary aggregates every scenario's result, the Go shape of EvalSummary.
type Summary struct {
	Total   int              `json:"total"`
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Results []ScenarioResult `json:"results"`
}
