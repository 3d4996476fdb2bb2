// Package planvalidate ties the tool registry and policy engine together
// into one pass over a Plan: every step must name a registered tool, pass
// the policy gate, and carry args that validate against that tool's
// schema. Grounded on
// original_source/planning/plan_validator.py's validate_plan.
package planvalidate

import (
	"fmt"

	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

// ValidatePlan walks plan.Steps in order, failing fast on the first step
// that names an unregistered tool, fails the policy gate, or carries
// schema-invalid args, and returns a ValidatedPlan with a cloned, schema-
// checked copy of each step (spec §4.2's "plan validation" operation).
func ValidatePlan(plan orchtypes.Plan, registry *toolregistry.Registry, pol *policy.Engine) (orchtypes.ValidatedPlan, error) {
	validatedSteps := make([]orchtypes.PlanStep, 0, len(plan.Steps))
	warnings := []string{}

	for _, step := range plan.Steps {
		if !registry.Has(step.ToolName) {
			return orchtypes.ValidatedPlan{}, fmt.Errorf(
				"planvalidate: unknown tool %q in step %q: %w", step.ToolName, step.StepID, orchtypes.ErrPlanValidation)
		}

		if err := pol.ValidateStep(step); err != nil {
			return orchtypes.ValidatedPlan{}, fmt.Errorf(
				"planvalidate: step %q failed policy check: %w", step.StepID, wrapPlanValidation(err))
		}

		if err := registry.ValidateArgs(step.ToolName, step.ToolArgs); err != nil {
			return orchtypes.ValidatedPlan{}, fmt.Errorf(
				"planvalidate: step %q has invalid args for tool %q: %w", step.StepID, step.ToolName, wrapPlanValidation(err))
		}

		validatedSteps = append(validatedSteps, step.Clone())
	}

	return orchtypes.ValidatedPlan{
		Plan: orchtypes.Plan{
			Steps:             validatedSteps,
			MaxSteps:          plan.MaxSteps,
			MaxRetriesPerStep: plan.MaxRetriesPerStep,
			BudgetGuard:       plan.BudgetGuard,
			PlannerNotes:      plan.PlannerNotes,
		},
		Warnings: warnings,
	}, nil
}

// wrapPlanValidation joins the underlying policy/schema ToolError to
// orchtypes.ErrPlanValidation so callers can errors.Is either one.
func wrapPlanValidation(err error) error {
	return fmt.Errorf("%w: %w", orchtypes.ErrPlanValidation, err)
}
