package tools

import (
	"context"
	"fmt"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

// NewDBQueryHandler runs a readonly-gated SQL query against long-term
// storage, grounded on original_source/execution/tools/db_query_tool.py's
// db_query_tool.
func NewDBQueryHandler(pol *policy.Engine) toolregistry.Handler {
	return func(ctx context.Context, args map[string]any, tctx *toolregistry.ToolExecutionContext) (map[string]any, error) {
		sql := getString(args, "sql", "")
		readonly := getBool(args, "readonly", true)
		if err := pol.ValidateSQL(sql, readonly); err != nil {
			return nil, err
		}
		if tctx == nil || tctx.LongTermMemory == nil {
			return nil, orchtypes.NewToolError(orchtypes.FailureToolError, "db_query requires long-term memory", nil)
		}

		params := getArray(args, "params")
		rows, err := tctx.LongTermMemory.Query(ctx, sql, params...)
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, fmt.Sprintf("db_query failed: %s", sql), err)
		}

		if limit := getIntPtr(args, "limit"); limit != nil && *limit < len(rows) {
			rows = rows[:*limit]
		}

		return map[string]any{
			"ok":        true,
			"message":   "db_query completed",
			"data":      map[string]any{"sql": sql},
			"rows":      rows,
			"row_count": len(rows),
		}, nil
	}
}
