package planvalidate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

func newTestRegistry() *toolregistry.Registry {
	r := toolregistry.New()
	r.Register(&toolregistry.Descriptor{
		Name: "calc",
		ArgsSchema: toolregistry.MustCompileSchema("calc-args", `{
			"type": "object",
			"properties": {"expression": {"type": "string"}},
			"required": ["expression"]
		}`),
		Handler: func(ctx context.Context, args map[string]any, tctx *toolregistry.ToolExecutionContext) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	})
	return r
}

func newTestPolicy() *policy.Engine {
	return policy.New(&config.Config{AllowedHTTPHosts: []string{"localhost"}})
}

func TestValidatePlanAcceptsWellFormedPlan(t *testing.T) {
	plan := orchtypes.Plan{
		Steps: []orchtypes.PlanStep{
			{StepID: "s1", ToolName: "calc", ToolArgs: map[string]any{"expression": "1 + 1"}},
		},
		MaxSteps: 5,
	}
	validated, err := ValidatePlan(plan, newTestRegistry(), newTestPolicy())
	require.NoError(t, err)
	assert.Len(t, validated.Plan.Steps, 1)
	assert.Equal(t, 5, validated.Plan.MaxSteps)
}

func TestValidatePlanRejectsUnknownTool(t *testing.T) {
	plan := orchtypes.Plan{
		Steps: []orchtypes.PlanStep{{StepID: "s1", ToolName: "nonexistent"}},
	}
	_, err := ValidatePlan(plan, newTestRegistry(), newTestPolicy())
	require.Error(t, err)
	assert.ErrorIs(t, err, orchtypes.ErrPlanValidation)
}

func TestValidatePlanRejectsPolicyViolation(t *testing.T) {
	registry := toolregistry.New()
	registry.Register(&toolregistry.Descriptor{
		Name: "file_write",
		ArgsSchema: toolregistry.MustCompileSchema("file-write-args", `{
			"type": "object",
			"properties": {"relative_path": {"type": "string"}, "content": {"type": "string"}},
			"required": ["relative_path", "content"]
		}`),
	})
	plan := orchtypes.Plan{
		Steps: []orchtypes.PlanStep{{
			StepID:   "s1",
			ToolName: "file_write",
			ToolArgs: map[string]any{"relative_path": "../../etc/passwd", "content": "x"},
		}},
	}
	_, err := ValidatePlan(plan, registry, newTestPolicy())
	require.Error(t, err)
	assert.True(t, errors.Is(err, orchtypes.ErrPlanValidation))
}

func TestValidatePlanRejectsSchemaInvalidArgs(t *testing.T) {
	plan := orchtypes.Plan{
		Steps: []orchtypes.PlanStep{{StepID: "s1", ToolName: "calc", ToolArgs: map[string]any{}}},
	}
	_, err := ValidatePlan(plan, newTestRegistry(), newTestPolicy())
	require.Error(t, err)
	assert.ErrorIs(t, err, orchtypes.ErrPlanValidation)
}

func TestValidatePlanClonesStepsNotAliasingOriginal(t *testing.T) {
	plan := orchtypes.Plan{
		Steps: []orchtypes.PlanStep{
			{StepID: "s1", ToolName: "calc", ToolArgs: map[string]any{"expression": "1 + 1"}},
		},
	}
	validated, err := ValidatePlan(plan, newTestRegistry(), newTestPolicy())
	require.NoError(t, err)

	validated.Plan.Steps[0].ToolArgs["expression"] = "mutated"
	assert.Equal(t, "1 + 1", plan.Steps[0].ToolArgs["expression"], "validated steps must not alias the input plan's args map")
}
