package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
)

func fileWriteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{WorkspaceDir: t.TempDir()}
}

func TestFileWriteHandlerWritesNewFile(t *testing.T) {
	cfg := fileWriteConfig(t)
	pol := policy.New(cfg)
	handler := NewFileWriteHandler(cfg, pol)

	out, err := handler(context.Background(), map[string]any{
		"relative_path": "reports/out.txt",
		"content":       "hello world",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, len("hello world"), out["bytes_written"])

	data, readErr := os.ReadFile(filepath.Join(cfg.WorkspaceDir, "reports", "out.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "hello world", string(data))
}

func TestFileWriteHandlerRejectsPathEscape(t *testing.T) {
	cfg := fileWriteConfig(t)
	pol := policy.New(cfg)
	handler := NewFileWriteHandler(cfg, pol)

	_, err := handler(context.Background(), map[string]any{
		"relative_path": "../escape.txt",
		"content":       "x",
	}, nil)
	require.Error(t, err)
	te, ok := orchtypes.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, orchtypes.FailurePolicyViolation, te.FailureType)
}

func TestFileWriteHandlerRefusesOverwriteByDefault(t *testing.T) {
	cfg := fileWriteConfig(t)
	pol := policy.New(cfg)
	handler := NewFileWriteHandler(cfg, pol)

	args := map[string]any{"relative_path": "note.txt", "content": "first"}
	_, err := handler(context.Background(), args, nil)
	require.NoError(t, err)

	_, err = handler(context.Background(), args, nil)
	require.Error(t, err)
	te, ok := orchtypes.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, orchtypes.FailureToolError, te.FailureType)
}

func TestFileWriteHandlerOverwritesWhenRequested(t *testing.T) {
	cfg := fileWriteConfig(t)
	pol := policy.New(cfg)
	handler := NewFileWriteHandler(cfg, pol)

	_, err := handler(context.Background(), map[string]any{"relative_path": "note.txt", "content": "first"}, nil)
	require.NoError(t, err)

	out, err := handler(context.Background(), map[string]any{
		"relative_path": "note.txt", "content": "second", "overwrite": true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])

	data, readErr := os.ReadFile(filepath.Join(cfg.WorkspaceDir, "note.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "second", string(data))
}
