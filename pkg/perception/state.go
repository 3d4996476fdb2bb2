package perception

import (
	"strings"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// buildState mirrors original_source/perception/state_builder.py's
// build_state: a fixed constraints baseline plus conditional additions,
// a success-criteria list derived from entities/task type (falling back
// to a single generic criterion when nothing else applies), and the
// initial scratchpad state every run starts from.
func buildState(rawGoal string, taskType orchtypes.TaskType, entities map[string]any, ctx map[string]any) ([]string, []string, map[string]any) {
	constraints := []string{"use allowlisted tools only", "no destructive actions"}
	successCriteria := []string{}
	if ctx == nil {
		ctx = map[string]any{}
	}
	initialState := map[string]any{
		"raw_goal":  rawGoal,
		"context":   ctx,
		"task_type": string(taskType),
	}
	lower := strings.ToLower(rawGoal)

	httpRequested := entities["url"] != nil || entities["external_url"] != nil || entities["endpoint_mode"] != nil ||
		anyOf(lower, "fetch", "get", "post", "submit", "http")
	if httpRequested || taskType == orchtypes.TaskDataRetrieval || taskType == orchtypes.TaskDataSubmission {
		successCriteria = append(successCriteria, "http result captured")
	}
	if truthyEntity(entities, "db_requested") || taskType == orchtypes.TaskDatabase {
		successCriteria = append(successCriteria, "db result captured")
	}
	if truthyEntity(entities, "calc_requested") || taskType == orchtypes.TaskCalculation {
		successCriteria = append(successCriteria, "calculation result available")
	}
	if truthyEntity(entities, "write_requested") || taskType == orchtypes.TaskFileOps {
		successCriteria = append(successCriteria, "file write acknowledged")
	}
	if truthyEntity(entities, "summarize_requested") || taskType == orchtypes.TaskSummarization {
		successCriteria = append(successCriteria, "summary produced")
	}
	if len(successCriteria) == 0 {
		successCriteria = append(successCriteria, "produce final output")
	}

	if strings.Contains(lower, "strict json") {
		constraints = append(constraints, "expect structured json responses")
	}
	if strings.Contains(lower, "safe exit") {
		constraints = append(constraints, "stop safely on repeated failures")
	}

	initialState["entities"] = entities
	return constraints, successCriteria, initialState
}

func truthyEntity(entities map[string]any, key string) bool {
	v, ok := entities[key].(bool)
	return ok && v
}
