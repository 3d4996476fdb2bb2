// Package perception turns a raw natural-language goal into a
// orchtypes.PerceptionResult: intent, extracted entities, a task
// classification, constraints, success criteria, and initial scratchpad
// state. Grounded on original_source/perception/*.py — this engine never
// calls an LLM for perception (no_llm_mode is the only mode it ships),
// so everything here is the same regex/keyword heuristic the original
// uses when no real model is configured.
package perception

import (
	"regexp"
	"strings"
)

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	sumWordRe    = regexp.MustCompile(`\bsum\b`)
	calcExprRe   = regexp.MustCompile(`calc(?:ulate)?[:\s]+([0-9+\-*/().\s%]+)`)
	parentPathRe = regexp.MustCompile(`\.\./|\.\.\\`)
)

func anyOf(lower string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// extractIntentAndEntities mirrors
// original_source/perception/intent_extractor.py's
// extract_intent_and_entities: a sequence of substring/keyword checks
// populating an entities bag, then a final intent classification based
// on the same keyword groups.
func extractIntentAndEntities(rawGoal string, ctx map[string]any) (string, map[string]any) {
	lower := strings.ToLower(rawGoal)
	entities := map[string]any{"raw_goal": rawGoal}

	if m := urlRe.FindString(rawGoal); m != "" {
		entities["url"] = m
	}
	if anyOf(lower, "save", "write") {
		entities["write_requested"] = true
	}
	if anyOf(lower, "summary", "summarize") {
		entities["summarize_requested"] = true
	}
	if anyOf(lower, "calc", "calculate", "multiply") || sumWordRe.MatchString(lower) {
		entities["calc_requested"] = true
		if m := calcExprRe.FindStringSubmatch(lower); len(m) == 2 {
			entities["expression"] = strings.TrimSpace(m[1])
		}
	}
	if anyOf(lower, "db", "database", "sql") {
		entities["db_requested"] = true
	}

	switch {
	case strings.Contains(lower, "flaky"):
		entities["endpoint_mode"] = "flaky"
	case strings.Contains(lower, "slow"):
		entities["endpoint_mode"] = "slow"
	case strings.Contains(lower, "malformed"):
		entities["endpoint_mode"] = "malformed"
	}

	if strings.Contains(lower, "non-existent tool") {
		entities["force_invalid_tool"] = true
	}
	if strings.Contains(lower, "invalid args") {
		entities["force_invalid_args"] = true
	}
	if strings.Contains(lower, "example.com") {
		entities["external_url"] = "http://example.com"
	}
	if strings.Contains(lower, "delete row") || strings.Contains(lower, "drop table") {
		entities["unsafe_sql"] = true
	}
	if parentPathRe.MatchString(rawGoal) {
		entities["unsafe_path"] = true
	}
	if strings.Contains(rawGoal, "__import__") {
		entities["unsafe_calc"] = true
	}
	if strings.Contains(lower, "long plan") {
		entities["force_long_plan"] = true
	}
	if strings.Contains(lower, "budget test") {
		entities["force_budget_heavy"] = true
	}
	if strings.Contains(lower, "early stop") {
		entities["force_extra_steps_after_success"] = true
	}
	if len(ctx) > 0 {
		entities["context"] = ctx
	}

	var intent string
	switch {
	case anyOf(lower, "post", "submit"):
		intent = "submit data and inspect response"
	case anyOf(lower, "fetch", "get", "retrieve", "flaky", "slow", "malformed"):
		intent = "retrieve data"
	case strings.Contains(lower, "db") || strings.Contains(lower, "sql"):
		intent = "query database"
	case anyOf(lower, "calc", "calculate") || sumWordRe.MatchString(lower):
		intent = "calculate a value"
	case strings.Contains(lower, "summarize"):
		intent = "summarize content"
	default:
		intent = "orchestrate a multi-step task"
	}
	return intent, entities
}
