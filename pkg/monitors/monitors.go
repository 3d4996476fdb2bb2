// Package monitors classifies a finished tool call into FailureSignals —
// a pure function with no side effects and no knowledge of retries or
// plans, the engine's sole interpreter of "what went wrong." Grounded on
// original_source/execution/monitors.py's Monitors class.
package monitors

import (
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// Monitors holds no state; its methods are pure functions of their
// arguments, matching the original's stateless Monitors class.
type Monitors struct{}

// New returns a Monitors evaluator.
func New() *Monitors {
	return &Monitors{}
}

// EvaluateToolCall inspects one finished ToolCallRecord and returns zero
// or more FailureSignals describing what, if anything, went wrong (spec
// §4.3's "failure monitoring" operation).
func (m *Monitors) EvaluateToolCall(record orchtypes.ToolCallRecord) []orchtypes.FailureSignal {
	var signals []orchtypes.FailureSignal

	if record.Status == orchtypes.ToolCallSuccess {
		if malformed, ok := record.Result["malformed"].(bool); ok && malformed {
			signals = append(signals, orchtypes.FailureSignal{
				FailureType:       orchtypes.FailureSchemaError,
				Retryable:         true,
				Severity:          orchtypes.SeverityMedium,
				Message:           "tool returned malformed response",
				RecommendedAction: "replan_or_patch",
				Diagnostics:       map[string]any{"tool_name": record.ToolName},
			})
		}
		return signals
	}

	switch record.Status {
	case orchtypes.ToolCallTimeout:
		signals = append(signals, orchtypes.FailureSignal{
			FailureType:       orchtypes.FailureTimeout,
			Retryable:         true,
			Severity:          orchtypes.SeverityMedium,
			Message:           orDefault(record.Error, "tool timeout"),
			RecommendedAction: "increase_timeout_and_retry",
			Diagnostics:       map[string]any{"tool_name": record.ToolName},
		})
	case orchtypes.ToolCallSchemaError:
		signals = append(signals, orchtypes.FailureSignal{
			FailureType:       orchtypes.FailureSchemaError,
			Retryable:         true,
			Severity:          orchtypes.SeverityMedium,
			Message:           orDefault(record.Error, "schema error"),
			RecommendedAction: "replan_or_adjust_expectations",
			Diagnostics:       map[string]any{"tool_name": record.ToolName},
		})
	case orchtypes.ToolCallPolicyBlocked:
		signals = append(signals, orchtypes.FailureSignal{
			FailureType:       orchtypes.FailurePolicyViolation,
			Retryable:         false,
			Severity:          orchtypes.SeverityHigh,
			Message:           orDefault(record.Error, "policy violation"),
			RecommendedAction: "abort",
			Diagnostics:       map[string]any{"tool_name": record.ToolName},
		})
	default:
		signals = append(signals, orchtypes.FailureSignal{
			FailureType:       orchtypes.FailureToolError,
			Retryable:         true,
			Severity:          orchtypes.SeverityMedium,
			Message:           orDefault(record.Error, "tool error"),
			RecommendedAction: "retry_or_replan",
			Diagnostics:       map[string]any{"tool_name": record.ToolName},
		})
	}
	return signals
}

// DetectNonProgress flags a step whose tool-call signature has repeated
// more than threshold times — the executor's only loop-breaker outside
// explicit retry/step budgets (spec §4.3/§9's non-progress detection).
func (m *Monitors) DetectNonProgress(signatureCount, threshold int, toolName, stepID string) *orchtypes.FailureSignal {
	if signatureCount <= threshold {
		return nil
	}
	return &orchtypes.FailureSignal{
		FailureType:       orchtypes.FailureNonProgress,
		Retryable:         false,
		Severity:          orchtypes.SeverityHigh,
		Message:           "repeated identical failing tool call detected",
		RecommendedAction: "abort",
		Diagnostics: map[string]any{
			"tool_name":       toolName,
			"step_id":         stepID,
			"signature_count": signatureCount,
		},
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
