package tools

import (
	"context"
	"fmt"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

// NewCalcHandler evaluates a whitelisted arithmetic expression, grounded
// on original_source/execution/tools/calc_tool.py's calc_tool. The
// original walks a Python ast.Expression tree of {Add,Sub,Mult,Div,
// FloorDiv,Mod,Pow} binops and {UAdd,USub} unaryops; here the policy
// gate validates the same five-operator grammar first, then
// policy.EvaluateArithmetic walks its own parallel parse to compute the
// result.
func NewCalcHandler(pol *policy.Engine) toolregistry.Handler {
	return func(ctx context.Context, args map[string]any, tctx *toolregistry.ToolExecutionContext) (map[string]any, error) {
		expression := getString(args, "expression", "")
		if err := pol.ValidateCalcExpression(expression); err != nil {
			return nil, err
		}
		result, err := policy.EvaluateArithmetic(expression)
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, fmt.Sprintf("calc failed: %s", expression), err)
		}
		return map[string]any{
			"ok":      true,
			"message": "calc completed",
			"data":    map[string]any{"expression": expression},
			"result":  result,
		}, nil
	}
}
