package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSeedMemoryCommand returns the `orchestron seed-memory` command:
// writes one memory entry into the long-term store's facts namespace,
// the CLI equivalent of the original's sql/seed_data.sql bootstrap but
// for ad hoc entries added after the store is already running.
func NewSeedMemoryCommand() *cobra.Command {
	var namespace, key, valueText, metadataJSON string

	cmd := &cobra.Command{
		Use:   "seed-memory",
		Short: "Add one entry to long-term memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bs, err := newBootstrap(ctx)
			if err != nil {
				return err
			}
			defer bs.Store.Close()

			metadata := map[string]any{}
			if metadataJSON != "" {
				if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
					return fmt.Errorf("parse --metadata-json: %w", err)
				}
			}

			if err := bs.Store.AddMemoryEntry(ctx, namespace, key, valueText, metadata); err != nil {
				return fmt.Errorf("add memory entry: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s/%s\n", namespace, key)
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "facts", "memory namespace")
	cmd.Flags().StringVar(&key, "key", "", "memory entry key (required)")
	cmd.Flags().StringVar(&valueText, "value", "", "memory entry text (required)")
	cmd.Flags().StringVar(&metadataJSON, "metadata-json", "", "optional JSON object of metadata")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
