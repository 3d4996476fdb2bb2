package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/memory"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

func TestHeuristicSummarizeJoinsFirstNSentences(t *testing.T) {
	text := "First sentence. Second sentence. Third sentence. Fourth sentence."
	got := heuristicSummarize(text, 2)
	assert.Equal(t, "First sentence. Second sentence.", got)
}

func TestHeuristicSummarizeHandlesEmptyText(t *testing.T) {
	assert.Equal(t, "", heuristicSummarize("   ", 3))
}

func TestSummarizeHandlerUsesProvidedText(t *testing.T) {
	handler := NewSummarizeHandler()
	out, err := handler(context.Background(), map[string]any{
		"text": "One. Two. Three.", "max_sentences": 2,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "One. Two.", out["summary"])
}

func TestSummarizeHandlerFallsBackToScratchpadState(t *testing.T) {
	handler := NewSummarizeHandler()
	stm := memory.NewShortTermMemory(map[string]any{"goal": "ship it"})
	tctx := &toolregistry.ToolExecutionContext{ShortTermMemory: stm}

	out, err := handler(context.Background(), map[string]any{"text": ""}, tctx)
	require.NoError(t, err)
	summary, ok := out["summary"].(string)
	require.True(t, ok)
	assert.Contains(t, summary, "goal")
}

func TestSummarizeHandlerBulletStyle(t *testing.T) {
	handler := NewSummarizeHandler()
	out, err := handler(context.Background(), map[string]any{
		"text": "One thing. Another thing. A third thing.", "max_sentences": 2, "style": "bullet",
	}, nil)
	require.NoError(t, err)
	summary, ok := out["summary"].(string)
	require.True(t, ok)
	assert.Contains(t, summary, "- One thing")
	assert.Contains(t, summary, "- Another thing")
}
