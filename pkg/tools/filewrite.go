package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

// NewFileWriteHandler writes a file under the configured workspace root,
// grounded on original_source/execution/tools/file_write_tool.py's
// file_write_tool — same root/candidate resolve-and-contain check, same
// create_dirs/overwrite semantics.
func NewFileWriteHandler(cfg *config.Config, pol *policy.Engine) toolregistry.Handler {
	return func(ctx context.Context, args map[string]any, tctx *toolregistry.ToolExecutionContext) (map[string]any, error) {
		relativePath := getString(args, "relative_path", "")
		content := getString(args, "content", "")
		overwrite := getBool(args, "overwrite", false)
		createDirs := getBool(args, "create_dirs", true)

		if err := pol.ValidateFilePath(relativePath); err != nil {
			return nil, err
		}

		root, err := filepath.Abs(cfg.WorkspaceDir)
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, "resolve workspace root", err)
		}
		candidate := filepath.Join(root, relativePath)
		resolved, err := filepath.Abs(candidate)
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, "resolve file_write path", err)
		}
		if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			return nil, orchtypes.PolicyViolationError("file_write path escapes workspace",
				map[string]any{"relative_path": relativePath})
		}

		if createDirs {
			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, "create_dirs failed", err)
			}
		}

		if _, statErr := os.Stat(resolved); statErr == nil && !overwrite {
			return nil, orchtypes.NewToolError(orchtypes.FailureToolError,
				fmt.Sprintf("file exists and overwrite=false: %s", relativePath), nil)
		}

		if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, "write file failed", err)
		}

		return map[string]any{
			"ok":            true,
			"message":       "file_write completed",
			"data":          map[string]any{"relative_path": relativePath},
			"path":          resolved,
			"bytes_written": len(content),
		}, nil
	}
}
