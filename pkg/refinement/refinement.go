// Package refinement is the pure, deterministic decision procedure that
// turns one failed step's FailureSignal into a recovery action:
// patch_and_retry, replan_remaining, skip_step, or abort. Grounded on
// original_source/execution/refinement.py's RefinementEngine.decide.
package refinement

import (
	"fmt"
	"strings"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// Planner is the subset of pkg/planning's PlannerAgent the refinement
// engine needs — kept as a narrow local interface so this package never
// imports pkg/planning (which itself will depend on nothing here,
// avoiding a cycle; the executor wires the concrete planner in).
type Planner interface {
	ReplanRemaining(
		perception orchtypes.PerceptionResult,
		remainingSteps []orchtypes.PlanStep,
		toolCatalog []orchtypes.ToolCatalogEntry,
		scratchpad map[string]any,
	) []orchtypes.PlanStep
}

// Engine is the stateless refinement decision procedure.
type Engine struct{}

// New returns a refinement Engine.
func New() *Engine {
	return &Engine{}
}

// DecideInput bundles Decide's arguments; the original passes these as a
// long positional parameter list, this groups them into one struct for
// Go call-site readability without changing the decision logic.
type DecideInput struct {
	Step               orchtypes.PlanStep
	FailureSignal      orchtypes.FailureSignal
	Attempt            int
	MaxRetriesPerStep  int
	Perception         orchtypes.PerceptionResult
	ToolCatalog        []orchtypes.ToolCatalogEntry
	Planner            Planner
	RemainingSteps     []orchtypes.PlanStep
	Scratchpad         map[string]any
}

// Decide runs the first-match-wins ladder from spec §4.4:
//  1. non_progress always aborts.
//  2. a fallback_strategy preferring replan on schema_error/bad_response
//     replans immediately, before retries are considered.
//  3. a retryable signal under the retry budget patches args (when the
//     failure type suggests a concrete patch) or retries unchanged.
//  4. otherwise, if a planner is available and the fallback strategy (or
//     the failure type itself, for schema_error) allows it, replan.
//  5. otherwise skip_step if the fallback strategy allows it.
//  6. otherwise abort.
func (e *Engine) Decide(in DecideInput) orchtypes.RefinementDecision {
	if in.FailureSignal.FailureType == orchtypes.FailureNonProgress {
		return orchtypes.RefinementDecision{
			Action: orchtypes.RefinementAbort,
			Reason: "non-progress threshold exceeded",
		}
	}

	prefersReplan := strings.Contains(in.Step.FallbackStrategy, "replan") ||
		strings.Contains(in.Step.FallbackStrategy, "alternate")

	if in.Planner != nil && isEarlyReplanFailure(in.FailureSignal.FailureType) && prefersReplan {
		if decision, ok := e.tryReplan(in); ok {
			return decision
		}
	}

	if in.FailureSignal.Retryable && in.Attempt < in.MaxRetriesPerStep {
		patchedArgs := patchArgsFor(in.Step, in.FailureSignal, prefersReplan)
		if len(patchedArgs) > 0 {
			return orchtypes.RefinementDecision{
				Action:      orchtypes.RefinementPatchAndRetry,
				PatchedArgs: patchedArgs,
				Reason:      fmt.Sprintf("retrying with patched args due to %s", in.FailureSignal.FailureType),
			}
		}
		return orchtypes.RefinementDecision{
			Action:      orchtypes.RefinementPatchAndRetry,
			PatchedArgs: map[string]any{},
			Reason:      fmt.Sprintf("retrying same args due to retryable %s", in.FailureSignal.FailureType),
		}
	}

	canReplan := in.Planner != nil &&
		isLateReplanFailure(in.FailureSignal.FailureType) &&
		(prefersReplan || in.FailureSignal.FailureType == orchtypes.FailureSchemaError)
	if canReplan {
		if decision, ok := e.tryReplan(in); ok {
			return decision
		}
	}

	if strings.Contains(in.Step.FallbackStrategy, "skip") {
		return orchtypes.RefinementDecision{
			Action: orchtypes.RefinementSkipStep,
			Reason: "fallback strategy permits skip",
		}
	}
	return orchtypes.RefinementDecision{
		Action: orchtypes.RefinementAbort,
		Reason: "no safe refinement action available",
	}
}

func (e *Engine) tryReplan(in DecideInput) (orchtypes.RefinementDecision, bool) {
	scratchpad := make(map[string]any, len(in.Scratchpad)+1)
	for k, v := range in.Scratchpad {
		scratchpad[k] = v
	}
	scratchpad["failure_context"] = map[string]any{
		"failure_type": string(in.FailureSignal.FailureType),
		"step_id":      in.Step.StepID,
		"tool_name":    in.Step.ToolName,
	}
	replanned := in.Planner.ReplanRemaining(in.Perception, in.RemainingSteps, in.ToolCatalog, scratchpad)
	if len(replanned) == 0 {
		return orchtypes.RefinementDecision{}, false
	}
	return orchtypes.RefinementDecision{
		Action:         orchtypes.RefinementReplanRemaining,
		ReplannedSteps: replanned,
		Reason:         fmt.Sprintf("replanned remaining steps after %s", in.FailureSignal.FailureType),
	}, true
}

func isEarlyReplanFailure(ft orchtypes.FailureType) bool {
	return ft == orchtypes.FailureSchemaError || ft == orchtypes.FailureBadResponse
}

func isLateReplanFailure(ft orchtypes.FailureType) bool {
	switch ft {
	case orchtypes.FailureSchemaError, orchtypes.FailureBadResponse, orchtypes.FailureToolError, orchtypes.FailureTimeout:
		return true
	default:
		return false
	}
}

// patchArgsFor mirrors the original's two concrete patch heuristics:
// doubling the HTTP timeout (capped at 10s) on a timeout, and relaxing
// strict JSON expectations on an http_get schema error when the step
// doesn't already prefer a replan.
func patchArgsFor(step orchtypes.PlanStep, signal orchtypes.FailureSignal, prefersReplan bool) map[string]any {
	patched := map[string]any{}
	switch {
	case signal.FailureType == orchtypes.FailureTimeout && (step.ToolName == "http_get" || step.ToolName == "http_post"):
		current := 2.0
		if v, ok := step.ToolArgs["timeout_s"]; ok {
			current = toFloat(v, 2.0)
		}
		patched["timeout_s"] = minFloat(current*2, 10.0)
	case signal.FailureType == orchtypes.FailureSchemaError && step.ToolName == "http_get":
		if !prefersReplan {
			patched["allow_malformed"] = true
			patched["expect_json"] = false
		}
	}
	return patched
}

func toFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return fallback
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
