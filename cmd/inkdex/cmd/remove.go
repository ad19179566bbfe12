package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove items from the index",
		Long: `Remove items from the index by id.

Item ids are the file paths they were indexed under. Removing an id
that was never indexed is a no-op. Per-id failures are reported but do
not stop the remaining removals.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args)
		},
	}
	return cmd
}

func runRemove(cmd *cobra.Command, ids []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, catalog, cleanup, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	coord, err := newCoordinator(cfg, backend, catalog)
	if err != nil {
		return err
	}
	defer coord.Close()

	normalized := make([]string, len(ids))
	for i, id := range ids {
		normalized[i] = itemID(id)
	}

	if err := coord.RemoveMultiple(cmd.Context(), normalized); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", len(ids))
	return nil
}
