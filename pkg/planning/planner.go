// Package planning builds a Plan from a PerceptionResult and the
// registered tool catalog, grounded on
// original_source/planning/planner.py's PlannerAgent. It is a
// rule-based, no-LLM planner by design (matching no_llm_mode): each
// entity/keyword combination appends a fixed step shape, not a
// model-generated one.
package planning

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
)

// Heuristic is the rule-based PlannerAgent equivalent. It implements both
// the top-level BuildPlan entry point and the refinement.Planner
// interface's ReplanRemaining.
type Heuristic struct {
	Config         *config.Config
	LongTermMemory memory.Store
}

// New returns a Heuristic planner bound to cfg, optionally backed by
// long-term memory for the "retrieved N prior memory entries" note.
func New(cfg *config.Config, longTermMemory memory.Store) *Heuristic {
	return &Heuristic{Config: cfg, LongTermMemory: longTermMemory}
}

// BuildPlan mirrors PlannerAgent.build_plan: branch on entities/keywords
// from the raw goal to assemble a step list, then fold in the two
// failure-context-driven patches (malformed-endpoint reroute, timeout
// bump) when scratchpad carries one from a prior failed attempt.
func (h *Heuristic) BuildPlan(ctx context.Context, perception orchtypes.PerceptionResult, toolCatalog []orchtypes.ToolCatalogEntry, scratchpad map[string]any) (orchtypes.Plan, error) {
	if scratchpad == nil {
		scratchpad = map[string]any{}
	}
	rawGoal, _ := perception.Entities["raw_goal"].(string)
	lower := strings.ToLower(rawGoal)
	var steps []orchtypes.PlanStep
	var notes []string

	toolNames := make(map[string]bool, len(toolCatalog))
	for _, t := range toolCatalog {
		toolNames[t.Name] = true
	}

	if h.LongTermMemory != nil {
		recalled, err := memory.Retrieve(ctx, h.LongTermMemory, "facts", rawGoal, 2)
		if err != nil {
			return orchtypes.Plan{}, err
		}
		if len(recalled) > 0 {
			notes = append(notes, fmt.Sprintf("Retrieved %d prior memory entries", len(recalled)))
		}
	}

	failureContext, _ := scratchpad["failure_context"].(map[string]any)
	if len(failureContext) > 0 {
		notes = append(notes, fmt.Sprintf("Replanning after %v on %v", failureContext["failure_type"], failureContext["step_id"]))
	}

	if truthy(perception.Entities["force_invalid_tool"]) {
		return h.planWith([]orchtypes.PlanStep{{
			StepID: "s1", Objective: "Intentional invalid tool for eval",
			ToolName: "non_existent_tool", ToolArgs: map[string]any{},
			ExpectedObservation: "validator blocks", FallbackStrategy: "abort",
		}}, notes), nil
	}
	if truthy(perception.Entities["force_invalid_args"]) {
		return h.planWith([]orchtypes.PlanStep{{
			StepID: "s1", Objective: "Intentional invalid args for eval",
			ToolName: "calc", ToolArgs: map[string]any{"expression": map[string]any{"bad": "shape"}},
			ExpectedObservation: "validator blocks", FallbackStrategy: "abort",
		}}, notes), nil
	}

	nextStepID := func() string { return fmt.Sprintf("s%d", len(steps)+1) }
	mockURLFor := func(lowerText string) string {
		base := strings.TrimSuffix(h.Config.MockAPIBaseURL, "/")
		switch {
		case strings.Contains(lowerText, "flaky"):
			return base + "/flaky?fail_first=1&key=demo"
		case strings.Contains(lowerText, "slow"):
			return base + "/slow?delay_ms=1500"
		case strings.Contains(lowerText, "malformed"):
			return base + "/malformed?kind=json_text"
		case strings.Contains(lowerText, "post") || strings.Contains(lowerText, "submit"):
			return base + "/submit"
		default:
			return base + "/data"
		}
	}

	httpURL, _ := perception.Entities["url"].(string)
	if httpURL == "" {
		httpURL, _ = perception.Entities["external_url"].(string)
	}
	if httpURL == "" && anyOf(lower, "fetch", "get", "post", "submit", "flaky", "slow", "malformed") {
		httpURL = mockURLFor(lower)
	}

	if strings.Contains(lower, "post") || strings.Contains(lower, "submit") {
		if toolNames["http_post"] {
			url := httpURL
			if url == "" {
				url = mockURLFor("submit")
			}
			steps = append(steps, orchtypes.PlanStep{
				StepID: nextStepID(), Objective: "Submit data to API",
				ToolName: "http_post",
				ToolArgs: map[string]any{
					"url":         url,
					"json_body":   map[string]any{"message": "hello from orchestron"},
					"timeout_s":   h.Config.DefaultHTTPTimeoutS,
					"expect_json": true,
				},
				ExpectedObservation: "submission response captured",
				FallbackStrategy:    "retry_with_backoff",
			})
		}
	}

	if httpURL != "" && toolNames["http_get"] &&
		!(strings.Contains(httpURL, "/submit") && (strings.Contains(lower, "post") || strings.Contains(lower, "submit"))) {
		fallback := "retry_with_backoff"
		if strings.Contains(lower, "malformed") {
			fallback = "replan_to_alternate_endpoint"
		}
		args := map[string]any{"url": httpURL, "timeout_s": h.Config.DefaultHTTPTimeoutS, "expect_json": true}
		if strings.Contains(lower, "malformed") {
			args["allow_malformed"] = false
		}
		steps = append(steps, orchtypes.PlanStep{
			StepID: nextStepID(), Objective: "Fetch data from API",
			ToolName: "http_get", ToolArgs: args,
			ExpectedObservation: "response body captured",
			FallbackStrategy:    fallback,
		})
	}

	if truthy(perception.Entities["db_requested"]) || anyOf(lower, "db", "database", "sql") {
		sql := "SELECT id, label, value FROM demo_numbers ORDER BY id LIMIT 3"
		if truthy(perception.Entities["unsafe_sql"]) {
			sql = "DELETE FROM demo_numbers WHERE id = 1"
		}
		limit := 10
		steps = append(steps, orchtypes.PlanStep{
			StepID: nextStepID(), Objective: "Run sqlite query",
			ToolName: "db_query",
			ToolArgs: map[string]any{"sql": sql, "readonly": true, "limit": limit},
			ExpectedObservation: "rows returned",
			FallbackStrategy:    "abort_on_policy_violation",
		})
	}

	if truthy(perception.Entities["calc_requested"]) || anyOf(lower, "calc", "calculate") {
		expr := "2 + 2"
		if e, ok := perception.Entities["expression"].(string); ok && e != "" {
			expr = e
		}
		if truthy(perception.Entities["unsafe_calc"]) {
			expr = "__import__('os').system('bad')"
		}
		steps = append(steps, orchtypes.PlanStep{
			StepID: nextStepID(), Objective: "Evaluate arithmetic",
			ToolName: "calc", ToolArgs: map[string]any{"expression": expr},
			ExpectedObservation: "numeric result",
			FallbackStrategy:    "abort_on_invalid_expression",
		})
	}

	if truthy(perception.Entities["write_requested"]) || anyOf(lower, "write", "save") {
		relPath := "reports/output.txt"
		if truthy(perception.Entities["unsafe_path"]) {
			relPath = "../escape.txt"
		}
		steps = append(steps, orchtypes.PlanStep{
			StepID: nextStepID(), Objective: "Write output to sandbox file",
			ToolName: "file_write",
			ToolArgs: map[string]any{"relative_path": relPath, "content": "orchestron output placeholder", "overwrite": true},
			ExpectedObservation: "file write acknowledged",
			FallbackStrategy:    "abort_on_policy_violation",
		})
	}

	if truthy(perception.Entities["summarize_requested"]) || strings.Contains(lower, "summary") || strings.Contains(lower, "summarize") || len(steps) == 0 {
		steps = append(steps, orchtypes.PlanStep{
			StepID: nextStepID(), Objective: "Summarize observations",
			ToolName: "summarize",
			ToolArgs: map[string]any{"text": "Summarize run observations", "max_sentences": 3, "style": "brief"},
			ExpectedObservation: "summary text",
			FallbackStrategy:    "deterministic_fallback",
		})
	}

	if truthy(perception.Entities["force_long_plan"]) {
		for i := 0; i < 10; i++ {
			steps = append(steps, orchtypes.PlanStep{
				StepID: nextStepID(), Objective: fmt.Sprintf("Long-plan calc step %d", i+1),
				ToolName: "calc", ToolArgs: map[string]any{"expression": "1 + 1"},
				ExpectedObservation: "numeric result", FallbackStrategy: "abort",
			})
		}
	}

	if truthy(perception.Entities["force_extra_steps_after_success"]) {
		steps = append(steps, orchtypes.PlanStep{
			StepID: nextStepID(), Objective: "Extra summary after likely success",
			ToolName: "summarize",
			ToolArgs: map[string]any{"text": "Extra step", "max_sentences": 1, "style": "brief"},
			ExpectedObservation: "summary text",
			FallbackStrategy:    "skip_if_success_already_met",
		})
	}

	failureType, _ := failureContext["failure_type"].(string)
	if failureType == "schema_error" || failureType == "bad_response" {
		for i := range steps {
			if steps[i].ToolName == "http_get" {
				if url, ok := steps[i].ToolArgs["url"].(string); ok && strings.Contains(url, "/malformed") {
					steps[i].ToolArgs["url"] = strings.TrimSuffix(h.Config.MockAPIBaseURL, "/") + "/data"
					notes = append(notes, "Replanned malformed endpoint to /data")
				}
			}
		}
	}
	if failureType == "timeout" {
		for i := range steps {
			if steps[i].ToolName == "http_get" || steps[i].ToolName == "http_post" {
				current := toFloat(steps[i].ToolArgs["timeout_s"], 2.0)
				steps[i].ToolArgs["timeout_s"] = math.Max(current, 3.5)
				notes = append(notes, "Increased timeout during replan")
			}
		}
	}

	return h.planWith(steps, notes), nil
}

// ReplanRemaining satisfies refinement.Planner: it rebuilds a full plan
// from scratch and hands back its steps, falling back to the untouched
// remaining steps if the rebuild produced none — mirroring
// PlannerAgent.replan_remaining exactly.
func (h *Heuristic) ReplanRemaining(perception orchtypes.PerceptionResult, remainingSteps []orchtypes.PlanStep, toolCatalog []orchtypes.ToolCatalogEntry, scratchpad map[string]any) []orchtypes.PlanStep {
	newPlan, err := h.BuildPlan(context.Background(), perception, toolCatalog, scratchpad)
	if err != nil || len(newPlan.Steps) == 0 {
		return remainingSteps
	}
	return newPlan.Steps
}

func (h *Heuristic) planWith(steps []orchtypes.PlanStep, notes []string) orchtypes.Plan {
	if steps == nil {
		steps = []orchtypes.PlanStep{}
	}
	if notes == nil {
		notes = []string{}
	}
	return orchtypes.Plan{
		Steps:             steps,
		MaxSteps:          h.Config.DefaultMaxSteps,
		MaxRetriesPerStep: h.Config.DefaultMaxRetriesPerStep,
		BudgetGuard:       orchtypes.BudgetGuard{MaxCostUnits: h.Config.DefaultBudgetUnits, CostPerStep: 1},
		PlannerNotes:      notes,
	}
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func anyOf(lower string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func toFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err == nil {
			return f
		}
	}
	return def
}
