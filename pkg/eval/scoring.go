package eval

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// traceEventTokens collects every status/action/failure-type word the
// trace produced, the Go port of scoring.py's _trace_event_tokens. A
// scenario's required/forbidden trace events are checked against this
// set rather than against the trace's literal shape.
func traceEventTokens(trace *orchtypes.RunTrace) map[string]bool {
	tokens := map[string]bool{
		string(trace.Status):          true,
		string(trace.StopReason.Type): true,
	}
	for _, ev := range trace.StepEvents {
		tokens[string(ev.Status)] = true
		if ev.RefinementDecision != nil {
			tokens[string(ev.RefinementDecision.Action)] = true
		}
		if ev.FailureSignal != nil {
			tokens[string(ev.FailureSignal.FailureType)] = true
		}
	}
	for _, sig := range trace.MonitorSignals {
		tokens[string(sig.FailureType)] = true
	}
	return tokens
}

func fail(scenarioID, reason, tracePath string) ScenarioResult {
	return ScenarioResult{ScenarioID: scenarioID, Passed: false, Reason: reason, Score: 0.0, TracePath: tracePath}
}

// ScoreTrace checks a scenario's expectations against the trace it
// produced, the Go port of scoring.py's score_trace: status, then stop
// reason (if the scenario names one), then required output substrings,
// then required/forbidden trace-event tokens, in that order, failing
// fast at the first mismatch.
func ScoreTrace(scenario Scenario, trace *orchtypes.RunTrace, tracePath string) ScenarioResult {
	if string(trace.Status) != scenario.ExpectedStatus {
		return fail(scenario.ID, fmt.Sprintf("Status mismatch: expected %s, got %s", scenario.ExpectedStatus, trace.Status), tracePath)
	}

	if scenario.ExpectedStopReason != "" && string(trace.StopReason.Type) != scenario.ExpectedStopReason {
		return fail(scenario.ID, fmt.Sprintf("Stop reason mismatch: expected %s, got %s", scenario.ExpectedStopReason, trace.StopReason.Type), tracePath)
	}

	blob, err := json.Marshal(trace)
	if err != nil {
		return fail(scenario.ID, fmt.Sprintf("Failed to serialize trace for scoring: %v", err), tracePath)
	}
	outputBlob := strings.ToLower(string(blob))
	for _, needle := range scenario.RequiredOutputContains {
		if !strings.Contains(outputBlob, strings.ToLower(needle)) {
			return fail(scenario.ID, fmt.Sprintf("Required output substring missing: %s", needle), tracePath)
		}
	}

	tokens := traceEventTokens(trace)
	for _, needle := range scenario.RequiredTraceEvents {
		if !tokens[needle] {
			return fail(scenario.ID, fmt.Sprintf("Required trace token missing: %s", needle), tracePath)
		}
	}
	for _, needle := range scenario.ForbiddenTraceEvents {
		if tokens[needle] {
			return fail(scenario.ID, fmt.Sprintf("Forbidden trace token present: %s", needle), tracePath)
		}
	}

	return ScenarioResult{ScenarioID: scenario.ID, Passed: true, Reason: "pass", Score: 1.0, TracePath: tracePath}
}
