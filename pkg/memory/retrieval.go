package memory

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

var tokenRe = regexp.MustCompile(`[a-zA-Z0-9_]+`)

func tokenize(text string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if len(tok) > 1 {
			out[tok] = true
		}
	}
	return out
}

func overlapScore(a, b map[string]bool) int {
	score := 0
	for tok := range a {
		if b[tok] {
			score++
		}
	}
	return score
}

// Retrieve scores namespace entries by token overlap with query and
// returns the top `limit` by score, grounded on
// original_source/memory/retrieval.py's retrieve_memory.
func Retrieve(ctx context.Context, store Store, namespace, query string, limit int) ([]Row, error) {
	rows, err := store.GetMemoryEntries(ctx, namespace, 200)
	if err != nil {
		return nil, err
	}
	queryTokens := tokenize(query)
	type scored struct {
		score int
		row   Row
	}
	candidates := make([]scored, 0, len(rows))
	for _, row := range rows {
		valueText, _ := row["value_text"].(string)
		key, _ := row["key"].(string)
		tokens := tokenize(valueText + " " + key)
		score := overlapScore(queryTokens, tokens)
		if score > 0 {
			candidates = append(candidates, scored{score: score, row: row})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	out := make([]Row, len(candidates))
	for i, c := range candidates {
		out[i] = c.row
	}
	return out, nil
}
