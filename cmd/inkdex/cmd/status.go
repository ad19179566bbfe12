package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status and statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}

type statusReport struct {
	DataDir      string `json:"data_dir"`
	IndexExists  bool   `json:"index_exists"`
	IndexedItems int    `json:"indexed_items"`
	Documents    int    `json:"documents"`
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report := statusReport{DataDir: cfg.Paths.DataDir}

	if _, err := os.Stat(cfg.Paths.IndexPath()); err == nil {
		report.IndexExists = true

		backend, catalog, cleanup, err := openStores(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		report.Documents = backend.Stats().DocumentCount
		report.IndexedItems, err = catalog.Count(cmd.Context())
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Data dir:  %s\n", report.DataDir)
	if !report.IndexExists {
		fmt.Fprintln(cmd.OutOrStdout(), "No index found. Run 'inkdex index' first.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Items:     %d\n", report.IndexedItems)
	fmt.Fprintf(cmd.OutOrStdout(), "Documents: %d\n", report.Documents)
	return nil
}
