package orchtypes

import (
	"errors"
	"fmt"
)

// Sentinel errors for structural failures — plan-time problems that never
// reach the monitors/refinement machinery (spec §7 tier 2).
var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrPlanValidation    = errors.New("plan validation failed")
	ErrToolNotRegistered = errors.New("tool not registered")
)

// ToolError is the single typed-error carrier for tool-level failures
// (spec §7 tier 1): it always names a FailureType and optional diagnostics,
// following the teacher's FrameworkError{Op,Kind,Err} shape but scoped to
// the one enum this engine needs instead of a free-form Kind string.
type ToolError struct {
	FailureType FailureType
	Message     string
	Diagnostics map[string]any
	Err         error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.FailureType, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.FailureType, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError builds a ToolError with optional diagnostics.
func NewToolError(failureType FailureType, message string, diagnostics map[string]any) *ToolError {
	if diagnostics == nil {
		diagnostics = map[string]any{}
	}
	return &ToolError{FailureType: failureType, Message: message, Diagnostics: diagnostics}
}

// PolicyViolationError is a ToolError convenience constructor: policy gate
// failures are always FailurePolicyViolation.
func PolicyViolationError(message string, diagnostics map[string]any) *ToolError {
	return NewToolError(FailurePolicyViolation, message, diagnostics)
}

// WrapToolError builds a ToolError around an underlying cause, used where
// the failure originates from a library call (schema compilation, JSON
// decode) rather than a policy or handler-level decision.
func WrapToolError(failureType FailureType, message string, err error) *ToolError {
	return &ToolError{FailureType: failureType, Message: message, Diagnostics: map[string]any{}, Err: err}
}

// AsToolError unwraps err looking for a *ToolError, mirroring the teacher's
// errors.As usage throughout orchestration/executor.go.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
