package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/orchestron/pkg/tracing"
)

// NewShowTraceCommand returns the `orchestron show-trace` command: loads
// a previously exported trace file and pretty-prints it.
func NewShowTraceCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "show-trace",
		Short: "Print a previously exported trace file",
		RunE: func(cmd *cobra.Command, args []string) error {
			trace, err := tracing.Load(path)
			if err != nil {
				return fmt.Errorf("load trace: %w", err)
			}
			return printJSON(cmd, trace)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "path to an exported trace JSON file (required)")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}
