package orchtypes

import "time"

// BudgetGuard bounds the cost a Plan is allowed to spend. MaxTokens is
// carried from the original design's max_tokens field even though nothing
// in this engine enforces it yet — planners may use it as a hint.
type BudgetGuard struct {
	MaxCostUnits int  `json:"max_cost_units"`
	MaxTokens    *int `json:"max_tokens,omitempty"`
	CostPerStep  int  `json:"cost_per_step"`
}

// DefaultBudgetGuard mirrors the original's Pydantic field defaults.
func DefaultBudgetGuard() BudgetGuard {
	return BudgetGuard{MaxCostUnits: 50, CostPerStep: 1}
}

// PerceptionResult is perception's output: the planner's sole input besides
// the tool catalog. Perception itself is an external collaborator at the
// interface level (spec §1) — pkg/perception ships a concrete heuristic one.
type PerceptionResult struct {
	Intent           string         `json:"intent"`
	TaskType         TaskType       `json:"task_type"`
	Entities         map[string]any `json:"entities"`
	Constraints      []string       `json:"constraints"`
	SuccessCriteria  []string       `json:"success_criteria"`
	InitialState     map[string]any `json:"initial_state"`
}

// PlanStep is the atomic unit of execution: a named tool plus args.
type PlanStep struct {
	StepID             string         `json:"step_id"`
	Objective          string         `json:"objective"`
	ToolName           string         `json:"tool_name"`
	ToolArgs           map[string]any `json:"tool_args"`
	ExpectedObservation string        `json:"expected_observation"`
	FallbackStrategy   string         `json:"fallback_strategy"`
}

// Clone returns a deep-enough copy so executor mutation of ToolArgs never
// aliases the caller's step (mirrors the original's model_validate(dump())
// round trip used before mutating a step in place).
func (s PlanStep) Clone() PlanStep {
	args := make(map[string]any, len(s.ToolArgs))
	for k, v := range s.ToolArgs {
		args[k] = v
	}
	clone := s
	clone.ToolArgs = args
	return clone
}

// Plan is an ordered sequence of steps plus run-wide guards.
type Plan struct {
	Steps             []PlanStep  `json:"steps"`
	MaxSteps          int         `json:"max_steps"`
	MaxRetriesPerStep int         `json:"max_retries_per_step"`
	BudgetGuard       BudgetGuard `json:"budget_guard"`
	PlannerNotes      []string    `json:"planner_notes"`
}

// ValidatedPlan is the plan validator's output: a normalized plan plus
// any non-fatal warnings collected along the way.
type ValidatedPlan struct {
	Plan     Plan     `json:"plan"`
	Warnings []string `json:"warnings"`
}

// ToolCatalogEntry is the registry's advertised shape of one tool, handed
// to planners and the refinement engine without exposing handler internals.
type ToolCatalogEntry struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	SafeByDefault bool     `json:"safe_by_default"`
}

// FailureSignal is a monitor's classification of a failed tool call.
type FailureSignal struct {
	FailureType        FailureType    `json:"failure_type"`
	Retryable          bool           `json:"retryable"`
	Severity           Severity       `json:"severity"`
	Message            string         `json:"message"`
	RecommendedAction  string         `json:"recommended_action"`
	Diagnostics        map[string]any `json:"diagnostics"`
}

// RefinementDecision is the refinement engine's chosen recovery action.
type RefinementDecision struct {
	Action          RefinementActionType `json:"action"`
	PatchedArgs     map[string]any       `json:"patched_args,omitempty"`
	ReplannedSteps  []PlanStep           `json:"replanned_steps,omitempty"`
	Reason          string               `json:"reason"`
}

// ToolCallRecord is one attempt at dispatching a tool, success or failure.
type ToolCallRecord struct {
	StepID        string         `json:"step_id"`
	StepAttemptID string         `json:"step_attempt_id"`
	ToolName      string         `json:"tool_name"`
	ToolArgs      map[string]any `json:"tool_args"`
	ValidatedArgs map[string]any `json:"validated_args"`
	Status        ToolCallStatus `json:"status"`
	LatencyMS     int64          `json:"latency_ms"`
	Result        map[string]any `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	RawResponse   any            `json:"raw_response,omitempty"`
	Timestamp     time.Time      `json:"ts"`
}

// StepEvent is an append-only audit entry for one step transition.
type StepEvent struct {
	StepID             string               `json:"step_id"`
	Attempt            int                  `json:"attempt"`
	Status             StepStatus           `json:"status"`
	Message            string               `json:"message"`
	Observation        map[string]any       `json:"observation,omitempty"`
	FailureSignal      *FailureSignal       `json:"failure_signal,omitempty"`
	RefinementDecision *RefinementDecision  `json:"refinement_decision,omitempty"`
	Timestamp          time.Time            `json:"ts"`
}

// StopReason is the single categorical label explaining why a run ended.
type StopReason struct {
	Type    StopReasonType `json:"type"`
	Message string         `json:"message"`
}

// RunTrace is the single source of truth for a run: created at run start,
// mutated by the executor and by eval.RunOrchestration before and after
// execution, exported once the run terminates.
type RunTrace struct {
	TraceID         string               `json:"trace_id"`
	RunID           string               `json:"run_id"`
	Request         map[string]any       `json:"request"`
	Status          RunStatus            `json:"status"`
	Perception      *PerceptionResult    `json:"perception,omitempty"`
	Plan            *Plan                `json:"plan,omitempty"`
	PerceptionNotes []string             `json:"perception_notes,omitempty"`
	StepEvents      []StepEvent          `json:"step_events"`
	ToolCalls       []ToolCallRecord     `json:"tool_calls"`
	MonitorSignals  []FailureSignal      `json:"monitor_signals"`
	Refinements     []RefinementDecision `json:"refinements"`
	FinalOutput     map[string]any       `json:"final_output"`
	MetricsSnapshot map[string]int64     `json:"metrics_snapshot"`
	StopReason      StopReason           `json:"stop_reason"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      *time.Time           `json:"finished_at,omitempty"`
}

// ExecutionResult is the terminal, summarized outcome the executor returns
// to its caller; the full detail remains in the RunTrace it mutated.
type ExecutionResult struct {
	Status         RunStatus      `json:"status"`
	FinalOutput    map[string]any `json:"final_output"`
	StopReason     StopReason     `json:"stop_reason"`
	CompletedSteps int            `json:"completed_steps"`
}
