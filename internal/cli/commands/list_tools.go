package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/tools"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

// NewListToolsCommand returns the `orchestron list-tools` command:
// prints the registered tool catalog the planner and plan validator see.
func NewListToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "List the registered tool catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pol := policy.New(cfg)
			registry := toolregistry.New()
			tools.RegisterDefaults(registry, cfg, pol)
			return printJSON(cmd, registry.Catalog())
		},
	}
}
