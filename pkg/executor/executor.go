// Package executor runs one validated Plan to completion, turning the
// success-criteria/max-steps/budget-guard/non-progress/max-retries stop
// rules plus the refinement ladder into a single state machine that
// mutates a RunTrace and returns an ExecutionResult. Grounded on
// original_source/execution/executor.py's Executor.run (the 366-line loop
// this package ports step for step) and structured the way the teacher's
// orchestration.SmartExecutor groups its collaborators into one struct
// (orchestration/executor.go).
package executor

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/logging"
	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/metrics"
	"github.com/itsneelabh/orchestron/pkg/monitors"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/refinement"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
	"github.com/itsneelabh/orchestron/pkg/tracing"
)

// RunContext bundles every collaborator one Run call needs, mirroring the
// original's RunContext dataclass (config, logger, registry, memory,
// metrics, monitors, refinement engine, planner, trace) as a single
// parameter instead of a dozen positional arguments.
type RunContext struct {
	Config          *config.Config
	Logger          logging.Logger
	Metrics         *metrics.Registry
	Registry        *toolregistry.Registry
	Monitors        *monitors.Monitors
	Refinement      *refinement.Engine
	ShortTermMemory *memory.ShortTermMemory
	LongTermMemory  memory.Store
	Planner         refinement.Planner
	Trace           *orchtypes.RunTrace
	ReplayCache     ReplayCache
}

// Executor is stateless; all mutable state for one run lives in the
// RunContext's trace and short-term memory.
type Executor struct{}

// New returns an Executor.
func New() *Executor {
	return &Executor{}
}

// Run executes plan against perception, mutating rc.Trace throughout and
// returning the terminal ExecutionResult once the run stops.
func (e *Executor) Run(ctx context.Context, plan orchtypes.Plan, perception orchtypes.PerceptionResult, rc *RunContext) *orchtypes.ExecutionResult {
	trace := rc.Trace
	trace.Status = orchtypes.RunExecuting

	steps := make([]orchtypes.PlanStep, len(plan.Steps))
	for i, s := range plan.Steps {
		steps[i] = s.Clone()
	}

	stm := rc.ShortTermMemory
	met := rc.Metrics
	logger := rc.Logger.Bind("execution", map[string]any{"trace_id": trace.TraceID, "run_id": trace.RunID})

	completedSteps := 0
	costUnits := 0
	stepIndex := 0
	finalOutput := map[string]any{
		"message":      "Execution started",
		"step_outputs": map[string]any{},
		"observations": []any{},
	}

	met.Inc("runs_started_total", nil)

runLoop:
	for stepIndex < len(steps) {
		trace.Status = orchtypes.RunExecuting

		if e.successCriteriaMet(perception.SuccessCriteria, stm) {
			trace.Status = orchtypes.RunStopped
			trace.StopReason = orchtypes.StopReason{
				Type:    orchtypes.StopSuccessCriteriaMet,
				Message: "Success criteria met before executing remaining steps",
			}
			break
		}
		if completedSteps >= plan.MaxSteps {
			trace.Status = orchtypes.RunStopped
			trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopMaxSteps, Message: "max_steps reached"}
			break
		}
		if costUnits >= plan.BudgetGuard.MaxCostUnits {
			trace.Status = orchtypes.RunStopped
			trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopBudgetGuard, Message: "Budget guard exceeded"}
			break
		}

		step := steps[stepIndex]
		attempt := stm.RetryCount(step.StepID) + 1
		logger.Info("step_start", fmt.Sprintf("Executing step %s", step.StepID), map[string]any{
			"step_id": step.StepID, "attempt": attempt, "tool": step.ToolName,
		})

		if step.ToolName == "summarize" {
			if text, _ := step.ToolArgs["text"].(string); text == "Summarize run observations" {
				step.ToolArgs["text"] = summarizeObservationsBlob(stm)
			}
		}

		stepAttemptID := tracing.NewStepAttemptID()
		tctx := &toolregistry.ToolExecutionContext{
			TraceID:         trace.TraceID,
			RunID:           trace.RunID,
			StepID:          step.StepID,
			Attempt:         attempt,
			Config:          rc.Config,
			Logger:          logger,
			ShortTermMemory: stm,
			LongTermMemory:  rc.LongTermMemory,
			Metrics:         met,
		}

		started := time.Now()
		var resultPayload map[string]any
		var validatedArgs map[string]any
		var errorText string
		var toolErr *orchtypes.ToolError
		status := orchtypes.ToolCallSuccess

		descriptor, getErr := rc.Registry.Get(step.ToolName)
		switch {
		case getErr != nil:
			status = orchtypes.ToolCallError
			errorText = getErr.Error()
		default:
			if valErr := rc.Registry.ValidateArgs(step.ToolName, step.ToolArgs); valErr != nil {
				if te, ok := orchtypes.AsToolError(valErr); ok {
					toolErr = te
					status = statusForFailure(te.FailureType)
					errorText = te.Error()
				} else {
					status = orchtypes.ToolCallError
					errorText = valErr.Error()
				}
			} else {
				validatedArgs = cloneArgs(step.ToolArgs)
				replaySig := replaySignature(step.ToolName, step.ToolArgs)
				if cached, hit := replayLookup(ctx, rc.ReplayCache, trace.TraceID, replaySig); hit {
					resultPayload = cached
					met.Inc("replay_cache_hits_total", map[string]string{"tool": step.ToolName})
				} else {
					result, handlerErr := descriptor.Handler(ctx, step.ToolArgs, tctx)
					if handlerErr != nil {
						if te, ok := orchtypes.AsToolError(handlerErr); ok {
							toolErr = te
							status = statusForFailure(te.FailureType)
							errorText = te.Error()
						} else {
							status = orchtypes.ToolCallError
							errorText = fmt.Sprintf("unexpected error: %v", handlerErr)
						}
					} else {
						resultPayload = result
						replayStore(ctx, rc.ReplayCache, trace.TraceID, replaySig, result)
					}
				}
			}
		}

		latencyMS := time.Since(started).Milliseconds()
		costUnits += plan.BudgetGuard.CostPerStep
		met.Inc("tool_calls_total", map[string]string{"tool": step.ToolName, "status": string(status)})

		toolCallRecord := orchtypes.ToolCallRecord{
			StepID:        step.StepID,
			StepAttemptID: stepAttemptID,
			ToolName:      step.ToolName,
			ToolArgs:      cloneArgs(step.ToolArgs),
			ValidatedArgs: validatedArgs,
			Status:        status,
			LatencyMS:     latencyMS,
			Result:        resultPayload,
			Error:         errorText,
			RawResponse:   rawResponseFor(status, resultPayload, toolErr),
			Timestamp:     time.Now().UTC(),
		}
		trace.ToolCalls = append(trace.ToolCalls, toolCallRecord)

		outcome := resultPayload
		if outcome == nil {
			outcome = map[string]any{"error": errorText}
		}
		if saveErr := rc.LongTermMemory.SaveToolOutcome(ctx, trace.TraceID, step.StepID, step.ToolName, string(status), latencyMS, outcome); saveErr != nil {
			logger.Warn("tool_outcome_persist_failed", "failed to persist tool outcome", map[string]any{"error": saveErr.Error()})
		}

		if status == orchtypes.ToolCallSuccess && resultPayload != nil {
			observation := map[string]any{
				"tool_name": step.ToolName,
				"objective": step.Objective,
				"result":    resultPayload,
			}
			stm.RecordObservation(step.StepID, observation)
			updateStateForSuccess(stm, step.ToolName, resultPayload)
			finalOutput = e.buildFinalOutput(stm)
			trace.StepEvents = append(trace.StepEvents, orchtypes.StepEvent{
				StepID:      step.StepID,
				Attempt:     attempt,
				Status:      orchtypes.StepSuccess,
				Message:     fmt.Sprintf("Step %s succeeded", step.StepID),
				Observation: observation,
				Timestamp:   time.Now().UTC(),
			})
			completedSteps++
			stepIndex++
			continue
		}

		signals := rc.Monitors.EvaluateToolCall(toolCallRecord)
		if len(signals) == 0 {
			signals = []orchtypes.FailureSignal{{
				FailureType:       orchtypes.FailureUnknown,
				Retryable:         false,
				Message:           "Unknown failure",
				RecommendedAction: "abort",
			}}
		}

		signature := stm.StepSignature(step.ToolName, step.ToolArgs)
		if nonProgress := rc.Monitors.DetectNonProgress(stm.SignatureCount(signature), rc.Config.NonProgressThreshold, step.ToolName, step.StepID); nonProgress != nil {
			signals = append([]orchtypes.FailureSignal{*nonProgress}, signals...)
		}

		trace.MonitorSignals = append(trace.MonitorSignals, signals...)
		failureSignal := signals[0]

		if failureSignal.FailureType == orchtypes.FailureNonProgress {
			met.Inc("stop_rule_triggers_total", map[string]string{"rule": "non_progress"})
			trace.StepEvents = append(trace.StepEvents, orchtypes.StepEvent{
				StepID: step.StepID, Attempt: attempt, Status: orchtypes.StepFailed,
				Message: "Stopping due to non-progress", FailureSignal: &failureSignal, Timestamp: time.Now().UTC(),
			})
			trace.Status = orchtypes.RunStopped
			trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopNonProgress, Message: failureSignal.Message}
			break
		}

		if attempt >= plan.MaxRetriesPerStep && failureSignal.Retryable {
			met.Inc("stop_rule_triggers_total", map[string]string{"rule": "max_retries"})
			trace.StepEvents = append(trace.StepEvents, orchtypes.StepEvent{
				StepID: step.StepID, Attempt: attempt, Status: orchtypes.StepFailed,
				Message: "Max retries reached", FailureSignal: &failureSignal, Timestamp: time.Now().UTC(),
			})
			trace.Status = orchtypes.RunStopped
			trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopMaxRetries, Message: "max_retries_per_step reached"}
			break
		}

		decision := rc.Refinement.Decide(refinement.DecideInput{
			Step:              step,
			FailureSignal:     failureSignal,
			Attempt:           attempt,
			MaxRetriesPerStep: plan.MaxRetriesPerStep,
			Perception:        perception,
			ToolCatalog:       rc.Registry.Catalog(),
			Planner:           rc.Planner,
			RemainingSteps:    steps[stepIndex:],
			Scratchpad:        map[string]any{},
		})
		met.Inc("refinement_actions_total", map[string]string{"action": string(decision.Action)})
		stm.RecordRefinement(map[string]any{
			"step_id":        step.StepID,
			"attempt":        attempt,
			"failure_signal": failureSignalMap(failureSignal),
			"decision":       decisionMap(decision),
		})
		trace.Refinements = append(trace.Refinements, decision)
		trace.StepEvents = append(trace.StepEvents, orchtypes.StepEvent{
			StepID:             step.StepID,
			Attempt:            attempt,
			Status:             orchtypes.StepFailed,
			Message:            fmt.Sprintf("Step %s failed and refinement decided %s", step.StepID, decision.Action),
			FailureSignal:      &failureSignal,
			RefinementDecision: &decision,
			Timestamp:          time.Now().UTC(),
		})

		switch decision.Action {
		case orchtypes.RefinementPatchAndRetry:
			trace.Status = orchtypes.RunRefining
			if len(decision.PatchedArgs) > 0 {
				for k, v := range decision.PatchedArgs {
					step.ToolArgs[k] = v
				}
			}
			steps[stepIndex] = step
			stm.MarkRetry(step.StepID)
			continue

		case orchtypes.RefinementReplanRemaining:
			trace.Status = orchtypes.RunRefining
			if len(decision.ReplannedSteps) > 0 {
				replanned := make([]orchtypes.PlanStep, len(decision.ReplannedSteps))
				for i, s := range decision.ReplannedSteps {
					replanned[i] = s.Clone()
				}
				steps = append(append([]orchtypes.PlanStep{}, steps[:stepIndex]...), replanned...)
				stm.BumpPlanGeneration()
				continue
			}
			trace.Status = orchtypes.RunFailed
			trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopFailed, Message: "Replan requested but no steps returned"}
			break runLoop

		case orchtypes.RefinementSkipStep:
			trace.StepEvents = append(trace.StepEvents, orchtypes.StepEvent{
				StepID: step.StepID, Attempt: attempt, Status: orchtypes.StepSkipped,
				Message: fmt.Sprintf("Skipped step %s after failure", step.StepID), Timestamp: time.Now().UTC(),
			})
			stepIndex++
			continue

		default: // abort
			if failureSignal.FailureType == orchtypes.FailurePolicyViolation {
				trace.Status = orchtypes.RunStopped
				trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopPolicyBlocked, Message: failureSignal.Message}
			} else {
				trace.Status = orchtypes.RunFailed
				trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopFailed, Message: failureSignal.Message}
			}
			break runLoop
		}
	}

	if trace.Status == orchtypes.RunExecuting {
		finalOutput = e.buildFinalOutput(stm)
		if e.successCriteriaMet(perception.SuccessCriteria, stm) {
			trace.Status = orchtypes.RunCompleted
			trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopSuccessCriteriaMet, Message: "Success criteria met"}
		} else {
			trace.Status = orchtypes.RunCompleted
			trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopNone, Message: "Plan exhausted"}
		}
	}
	if trace.Status == orchtypes.RunRefining {
		trace.Status = orchtypes.RunFailed
		trace.StopReason = orchtypes.StopReason{Type: orchtypes.StopFailed, Message: "Unexpected executor termination"}
	}

	finalOutput = e.buildFinalOutput(stm)
	trace.FinalOutput = finalOutput
	trace.MetricsSnapshot = met.Snapshot()
	finishedAt := time.Now().UTC()
	trace.FinishedAt = &finishedAt

	if trace.Status == orchtypes.RunCompleted {
		met.Inc("runs_completed_total", map[string]string{"status": string(trace.Status)})
	} else {
		met.Inc("runs_failed_total", map[string]string{"status": string(trace.Status)})
	}

	return &orchtypes.ExecutionResult{
		Status:         trace.Status,
		FinalOutput:    trace.FinalOutput,
		StopReason:     trace.StopReason,
		CompletedSteps: completedSteps,
	}
}

// buildFinalOutput snapshots the scratchpad the way the original's
// _build_final_output does: plain copies, never the live maps/slices.
func (e *Executor) buildFinalOutput(stm *memory.ShortTermMemory) map[string]any {
	state := make(map[string]any, len(stm.State))
	for k, v := range stm.State {
		state[k] = v
	}
	stepOutputs := make(map[string]any, len(stm.StepOutputs))
	for k, v := range stm.StepOutputs {
		stepOutputs[k] = v
	}
	observations := make([]any, len(stm.Observations))
	for i, v := range stm.Observations {
		observations[i] = v
	}
	criteria := make(map[string]any, len(stm.CriteriaProgress))
	for k, v := range stm.CriteriaProgress {
		criteria[k] = v
	}
	return map[string]any{
		"message":           "Execution finished",
		"state":             state,
		"step_outputs":       stepOutputs,
		"observations":      observations,
		"criteria_progress": criteria,
	}
}

// successCriteriaMet mirrors _success_criteria_met: a criterion matches
// either a truthy state key of the same name, or (fallback) a
// case-insensitive textual match against the state/step_outputs blob.
// Criteria are checked in order and each checked criterion is recorded
// into CriteriaProgress; checking stops at the first unmatched one, so
// criteria after it are not recorded on that call.
func (e *Executor) successCriteriaMet(criteria []string, stm *memory.ShortTermMemory) bool {
	if len(criteria) == 0 {
		return false
	}
	for _, criterion := range criteria {
		key := strings.TrimSpace(criterion)
		if v, ok := stm.State[key]; ok && truthy(v) {
			stm.CriteriaProgress[key] = true
			continue
		}
		blob := strings.ToLower(stateBlob(stm))
		matched := strings.Contains(blob, strings.ToLower(key))
		stm.CriteriaProgress[key] = matched
		if !matched {
			return false
		}
	}
	return true
}

// stateBlob JSON-encodes {state, step_outputs}; encoding/json already
// sorts map keys, matching the original's json.dumps(..., sort_keys=True).
func stateBlob(stm *memory.ShortTermMemory) string {
	data, err := json.Marshal(map[string]any{"state": stm.State, "step_outputs": stm.StepOutputs})
	if err != nil {
		return ""
	}
	return string(data)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func updateStateForSuccess(stm *memory.ShortTermMemory, toolName string, resultPayload map[string]any) {
	stm.State["last_tool"] = toolName
	stm.State["last_result"] = resultPayload
	switch toolName {
	case "http_get", "http_post":
		stm.State["http result captured"] = true
	case "db_query":
		stm.State["db result captured"] = true
	case "calc":
		stm.State["calculation result available"] = true
	case "file_write":
		stm.State["file write acknowledged"] = true
	case "summarize":
		stm.State["summary produced"] = true
	}
}

// summarizeObservationsBlob feeds the summarize tool's default prompt with
// the run's own observations (or, before any exist, the current state),
// matching the original's special-cased "Summarize run observations" text.
func summarizeObservationsBlob(stm *memory.ShortTermMemory) string {
	var payload any = stm.Observations
	if len(stm.Observations) == 0 {
		payload = []any{stm.State}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func statusForFailure(ft orchtypes.FailureType) orchtypes.ToolCallStatus {
	switch ft {
	case orchtypes.FailureTimeout:
		return orchtypes.ToolCallTimeout
	case orchtypes.FailureSchemaError:
		return orchtypes.ToolCallSchemaError
	case orchtypes.FailurePolicyViolation:
		return orchtypes.ToolCallPolicyBlocked
	default:
		return orchtypes.ToolCallError
	}
}

func rawResponseFor(status orchtypes.ToolCallStatus, resultPayload map[string]any, toolErr *orchtypes.ToolError) any {
	if status == orchtypes.ToolCallSuccess {
		return resultPayload
	}
	if toolErr != nil {
		return map[string]any{"diagnostics": toolErr.Diagnostics}
	}
	return map[string]any{"diagnostics": map[string]any{}}
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

// replaySignature hashes tool name and args into the replay-cache key.
// It is computed independently of ShortTermMemory.StepSignature and does
// not produce the same digest: it hashes plain encoding/json output, not
// memory's pair-array canonical form. encoding/json sorts map keys at
// every level, so the digest is stable across key order.
func replaySignature(toolName string, args map[string]any) string {
	payload, _ := json.Marshal(map[string]any{"tool_name": toolName, "tool_args": args})
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}

func replayLookup(ctx context.Context, cache ReplayCache, traceID, signature string) (map[string]any, bool) {
	if cache == nil {
		return nil, false
	}
	return cache.Get(ctx, traceID, signature)
}

func replayStore(ctx context.Context, cache ReplayCache, traceID, signature string, result map[string]any) {
	if cache == nil {
		return
	}
	cache.Set(ctx, traceID, signature, result)
}

func failureSignalMap(fs orchtypes.FailureSignal) map[string]any {
	return map[string]any{
		"failure_type":       string(fs.FailureType),
		"retryable":          fs.Retryable,
		"severity":           string(fs.Severity),
		"message":            fs.Message,
		"recommended_action": fs.RecommendedAction,
		"diagnostics":        fs.Diagnostics,
	}
}

func decisionMap(d orchtypes.RefinementDecision) map[string]any {
	return map[string]any{
		"action":          string(d.Action),
		"patched_args":    d.PatchedArgs,
		"replanned_steps": d.ReplannedSteps,
		"reason":          d.Reason,
	}
}
