// Package cli wires together the orchestron root Cobra command and its
// subcommands, structured the way bartekus-stagecraft's internal/cli
// splits a root command from a commands package.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/itsneelabh/orchestron/internal/cli/commands"
)

// NewRootCommand constructs the orchestron root command: run, demo,
// eval, show-trace, list-tools, seed-memory.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orchestron",
		Short:         "Heuristic multi-step agentic orchestration engine",
		Long:          "orchestron runs goals through perception, planning, plan validation, execution and refinement, without an LLM in the loop.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Keep registrations in lexicographic order by .Use for deterministic help output.
	cmd.AddCommand(commands.NewDemoCommand())
	cmd.AddCommand(commands.NewEvalCommand())
	cmd.AddCommand(commands.NewListToolsCommand())
	cmd.AddCommand(commands.NewRunCommand())
	cmd.AddCommand(commands.NewSeedMemoryCommand())
	cmd.AddCommand(commands.NewShowTraceCommand())

	return cmd
}
