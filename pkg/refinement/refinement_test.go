package refinement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

type fakePlanner struct {
	steps []orchtypes.PlanStep
}

func (f *fakePlanner) ReplanRemaining(
	perception orchtypes.PerceptionResult,
	remainingSteps []orchtypes.PlanStep,
	toolCatalog []orchtypes.ToolCatalogEntry,
	scratchpad map[string]any,
) []orchtypes.PlanStep {
	return f.steps
}

func TestDecideNonProgressAlwaysAborts(t *testing.T) {
	e := New()
	decision := e.Decide(DecideInput{
		Step:          orchtypes.PlanStep{FallbackStrategy: "skip_on_failure"},
		FailureSignal: orchtypes.FailureSignal{FailureType: orchtypes.FailureNonProgress},
		Attempt:       0,
		MaxRetriesPerStep: 5,
	})
	assert.Equal(t, orchtypes.RefinementAbort, decision.Action)
}

func TestDecidePrefersReplanOnSchemaErrorWhenFallbackSaysSo(t *testing.T) {
	e := New()
	planner := &fakePlanner{steps: []orchtypes.PlanStep{{StepID: "new-1"}}}
	decision := e.Decide(DecideInput{
		Step:              orchtypes.PlanStep{StepID: "s1", FallbackStrategy: "replan_on_failure"},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureSchemaError, Retryable: true},
		Attempt:           0,
		MaxRetriesPerStep: 3,
		Planner:           planner,
	})
	require.Equal(t, orchtypes.RefinementReplanRemaining, decision.Action)
	assert.Equal(t, []orchtypes.PlanStep{{StepID: "new-1"}}, decision.ReplannedSteps)
}

func TestDecidePatchesTimeoutAndDoublesCapped(t *testing.T) {
	e := New()
	decision := e.Decide(DecideInput{
		Step: orchtypes.PlanStep{
			StepID:   "s1",
			ToolName: "http_get",
			ToolArgs: map[string]any{"timeout_s": 7.0},
		},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureTimeout, Retryable: true},
		Attempt:           0,
		MaxRetriesPerStep: 3,
	})
	require.Equal(t, orchtypes.RefinementPatchAndRetry, decision.Action)
	assert.Equal(t, 10.0, decision.PatchedArgs["timeout_s"], "doubling 7.0 exceeds the 10.0 cap")
}

func TestDecidePatchesTimeoutDoublesUnderCap(t *testing.T) {
	e := New()
	decision := e.Decide(DecideInput{
		Step: orchtypes.PlanStep{
			StepID:   "s1",
			ToolName: "http_post",
			ToolArgs: map[string]any{"timeout_s": 2.0},
		},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureTimeout, Retryable: true},
		Attempt:           0,
		MaxRetriesPerStep: 3,
	})
	require.Equal(t, orchtypes.RefinementPatchAndRetry, decision.Action)
	assert.Equal(t, 4.0, decision.PatchedArgs["timeout_s"])
}

func TestDecideRelaxesJSONExpectationOnHTTPGetSchemaError(t *testing.T) {
	e := New()
	decision := e.Decide(DecideInput{
		Step:              orchtypes.PlanStep{StepID: "s1", ToolName: "http_get", FallbackStrategy: ""},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureSchemaError, Retryable: true},
		Attempt:           0,
		MaxRetriesPerStep: 3,
	})
	require.Equal(t, orchtypes.RefinementPatchAndRetry, decision.Action)
	assert.Equal(t, true, decision.PatchedArgs["allow_malformed"])
	assert.Equal(t, false, decision.PatchedArgs["expect_json"])
}

func TestDecideRetriesUnchangedWhenNoPatchApplies(t *testing.T) {
	e := New()
	decision := e.Decide(DecideInput{
		Step:              orchtypes.PlanStep{StepID: "s1", ToolName: "calc"},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureToolError, Retryable: true},
		Attempt:           0,
		MaxRetriesPerStep: 3,
	})
	require.Equal(t, orchtypes.RefinementPatchAndRetry, decision.Action)
	assert.Empty(t, decision.PatchedArgs)
}

func TestDecideReplansAfterRetryBudgetExhaustedOnSchemaError(t *testing.T) {
	e := New()
	planner := &fakePlanner{steps: []orchtypes.PlanStep{{StepID: "new-1"}}}
	decision := e.Decide(DecideInput{
		Step:              orchtypes.PlanStep{StepID: "s1", ToolName: "http_get"},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureSchemaError, Retryable: true},
		Attempt:           3,
		MaxRetriesPerStep: 3,
		Planner:           planner,
	})
	assert.Equal(t, orchtypes.RefinementReplanRemaining, decision.Action)
}

func TestDecideSkipsWhenFallbackAllowsAndNoReplanOrRetry(t *testing.T) {
	e := New()
	decision := e.Decide(DecideInput{
		Step:              orchtypes.PlanStep{StepID: "s1", ToolName: "calc", FallbackStrategy: "skip_on_failure"},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureToolError, Retryable: false},
		Attempt:           0,
		MaxRetriesPerStep: 3,
	})
	assert.Equal(t, orchtypes.RefinementSkipStep, decision.Action)
}

func TestDecideAbortsWhenNothingElseApplies(t *testing.T) {
	e := New()
	decision := e.Decide(DecideInput{
		Step:              orchtypes.PlanStep{StepID: "s1", ToolName: "calc", FallbackStrategy: ""},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureToolError, Retryable: false},
		Attempt:           0,
		MaxRetriesPerStep: 3,
	})
	assert.Equal(t, orchtypes.RefinementAbort, decision.Action)
}

func TestDecideReplanIgnoredWhenPlannerReturnsNoSteps(t *testing.T) {
	e := New()
	planner := &fakePlanner{steps: nil}
	decision := e.Decide(DecideInput{
		Step:              orchtypes.PlanStep{StepID: "s1", ToolName: "http_get", FallbackStrategy: "replan_on_failure"},
		FailureSignal:     orchtypes.FailureSignal{FailureType: orchtypes.FailureSchemaError, Retryable: false},
		Attempt:           3,
		MaxRetriesPerStep: 3,
		Planner:           planner,
	})
	assert.Equal(t, orchtypes.RefinementAbort, decision.Action, "an empty replan result must fall through, not be treated as success")
}
