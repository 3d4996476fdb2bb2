package tools

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

var sentenceSplitRe = regexp.MustCompile(`(?:[.!?])\s+`)

// heuristicSummarize mirrors original_source/llm/heuristic_provider.py's
// HeuristicProvider.generate_text: split after sentence-ending punctuation
// (each sentence keeps its own '.', '!' or '?'), join the first
// maxSentences non-empty sentences back with a space. It
// is the no_llm_mode stand-in for a real provider call — this engine
// never calls out to an LLM.
func heuristicSummarize(text string, maxSentences int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	parts := []string{}
	start := 0
	for _, loc := range sentenceSplitRe.FindAllStringIndex(trimmed, -1) {
		parts = append(parts, trimmed[start:loc[0]+1])
		start = loc[1]
	}
	parts = append(parts, trimmed[start:])
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	if maxSentences > 0 && maxSentences < len(sentences) {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " ")
}

// NewSummarizeHandler produces a short digest of text (or, when text is
// empty, of the run's scratchpad state), grounded on
// original_source/execution/tools/summarize_tool.py's summarize_tool.
func NewSummarizeHandler() toolregistry.Handler {
	return func(ctx context.Context, args map[string]any, tctx *toolregistry.ToolExecutionContext) (map[string]any, error) {
		text := getString(args, "text", "")
		maxSentences := getInt(args, "max_sentences", 3)
		style := getString(args, "style", "brief")

		if text == "" && tctx != nil && tctx.ShortTermMemory != nil {
			stateJSON, err := json.Marshal(tctx.ShortTermMemory.State)
			if err == nil {
				text = string(stateJSON)
			}
		}

		summary := heuristicSummarize(text, maxSentences)
		if style == "bullet" {
			sentences := strings.Split(summary, ". ")
			bullets := make([]string, 0, len(sentences))
			for i, s := range sentences {
				s = strings.TrimSuffix(strings.TrimSpace(s), ".")
				if s == "" {
					continue
				}
				if maxSentences > 0 && i >= maxSentences {
					break
				}
				bullets = append(bullets, "- "+s)
			}
			summary = strings.Join(bullets, "\n")
		}

		return map[string]any{
			"ok":      true,
			"message": "summarize completed",
			"data":    map[string]any{"style": style},
			"summary": summary,
		}, nil
	}
}
