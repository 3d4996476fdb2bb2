package commands

import (
	"github.com/spf13/cobra"

	"github.com/itsneelabh/orchestron/pkg/eval"
)

// NewEvalCommand returns the `orchestron eval` command: runs a scenario
// file through eval.RunScenarios and prints the aggregate summary.
func NewEvalCommand() *cobra.Command {
	var scenariosPath string
	var exportDir string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run a scenario file and score the results",
		Long:  "Runs every scenario in a JSON scenario file through the full orchestration pipeline, scores each trace, and exports traces plus a summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bs, err := newBootstrap(ctx)
			if err != nil {
				return err
			}
			defer bs.Store.Close()

			dir := exportDir
			if dir == "" {
				dir = bs.Config.TracesDir
			}

			summary, err := eval.RunScenarios(ctx, bs.Config, bs.Store, bs.Logger, scenariosPath, dir)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}

	cmd.Flags().StringVar(&scenariosPath, "scenarios", "", "path to a JSON scenario file (required)")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory to export traces and the summary into (defaults to ORCHESTRON_RUNTIME_DIR/traces)")
	_ = cmd.MarkFlagRequired("scenarios")

	return cmd
}
