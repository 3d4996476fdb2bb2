package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/orchestron/pkg/eval"
)

// NewRunCommand returns the `orchestron run` command: one orchestration
// run against an arbitrary goal, the CLI's thinnest wrapper over
// eval.RunOrchestration.
func NewRunCommand() *cobra.Command {
	var goal string
	var contextJSON string
	var export bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one orchestration against a goal",
		Long:  "Runs perception, planning, plan validation and execution against a single goal and prints the resulting trace.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bs, err := newBootstrap(ctx)
			if err != nil {
				return err
			}
			defer bs.Store.Close()

			goalContext := map[string]any{}
			if contextJSON != "" {
				if err := json.Unmarshal([]byte(contextJSON), &goalContext); err != nil {
					return fmt.Errorf("parse --context-json: %w", err)
				}
			}

			trace, err := eval.RunOrchestration(ctx, bs.Config, bs.Store, bs.Logger, goal, goalContext, export, "trace")
			if err != nil {
				return err
			}
			return printJSON(cmd, trace)
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "", "natural-language goal to run (required)")
	cmd.Flags().StringVar(&contextJSON, "context-json", "", "optional JSON object of goal context")
	cmd.Flags().BoolVar(&export, "export", true, "export the trace under ORCHESTRON_RUNTIME_DIR/traces")
	_ = cmd.MarkFlagRequired("goal")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}
