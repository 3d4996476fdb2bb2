// Package orchtypes holds the shared record and enum types that flow
// through the orchestrator: plans, traces, failure signals and refinement
// decisions. Enums are string-backed so JSON encoding needs no custom
// MarshalJSON, matching the teacher's ComponentType/HealthStatus convention.
package orchtypes

// TaskType classifies the kind of work a PerceptionResult describes.
type TaskType string

const (
	TaskDataRetrieval TaskType = "data_retrieval"
	TaskDataSubmission TaskType = "data_submission"
	TaskDatabase       TaskType = "database"
	TaskFileOps        TaskType = "file_ops"
	TaskCalculation    TaskType = "calculation"
	TaskSummarization  TaskType = "summarization"
	TaskComposite      TaskType = "composite"
	TaskUnknown        TaskType = "unknown"
)

// RunStatus is the lifecycle state of a RunTrace.
type RunStatus string

const (
	RunReceived  RunStatus = "RECEIVED"
	RunPerceived RunStatus = "PERCEIVED"
	RunPlanned   RunStatus = "PLANNED"
	RunValidated RunStatus = "VALIDATED"
	RunExecuting RunStatus = "EXECUTING"
	RunRefining  RunStatus = "REFINING"
	RunCompleted RunStatus = "COMPLETED"
	RunStopped   RunStatus = "STOPPED"
	RunFailed    RunStatus = "FAILED"
)

// StepStatus is the outcome recorded for a single step attempt.
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepRunning  StepStatus = "RUNNING"
	StepSuccess  StepStatus = "SUCCESS"
	StepFailed   StepStatus = "FAILED"
	StepSkipped  StepStatus = "SKIPPED"
	StepRetrying StepStatus = "RETRYING"
)

// FailureType is the single collapsed error-class enum (spec §9's
// "Error classes from the source": one enum, no class hierarchy).
type FailureType string

const (
	FailureTimeout          FailureType = "timeout"
	FailureToolError        FailureType = "tool_error"
	FailureSchemaError      FailureType = "schema_error"
	FailureBadResponse      FailureType = "bad_response"
	FailurePolicyViolation  FailureType = "policy_violation"
	FailureValidationError  FailureType = "validation_error"
	FailureBudgetExceeded   FailureType = "budget_exceeded"
	FailureNonProgress      FailureType = "non_progress"
	FailureUnknown          FailureType = "unknown"
)

// RefinementActionType is the action chosen by the refinement engine.
type RefinementActionType string

const (
	RefinementNone            RefinementActionType = "none"
	RefinementPatchAndRetry    RefinementActionType = "patch_and_retry"
	RefinementReplanRemaining  RefinementActionType = "replan_remaining"
	RefinementSkipStep         RefinementActionType = "skip_step"
	RefinementAbort            RefinementActionType = "abort"
)

// StopReasonType categorizes why a run terminated.
type StopReasonType string

const (
	StopSuccessCriteriaMet StopReasonType = "success_criteria_met"
	StopMaxSteps           StopReasonType = "max_steps"
	StopMaxRetries         StopReasonType = "max_retries"
	StopBudgetGuard        StopReasonType = "budget_guard"
	StopNonProgress        StopReasonType = "non_progress"
	StopFailed             StopReasonType = "failed"
	StopPolicyBlocked      StopReasonType = "policy_blocked"
	StopValidationFailed   StopReasonType = "validation_failed"
	StopNone               StopReasonType = "none"
)

// ToolCallStatus is the dispatch outcome recorded on a ToolCallRecord.
type ToolCallStatus string

const (
	ToolCallSuccess      ToolCallStatus = "success"
	ToolCallError        ToolCallStatus = "error"
	ToolCallTimeout      ToolCallStatus = "timeout"
	ToolCallSchemaError  ToolCallStatus = "schema_error"
	ToolCallPolicyBlocked ToolCallStatus = "policy_blocked"
)

// Severity ranks a FailureSignal for operators and log filtering.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)
