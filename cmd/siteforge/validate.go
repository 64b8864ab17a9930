package siteforge

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/siteforge/pkg/config"
	"github.com/arthur-debert/siteforge/pkg/rowsource"
)

func newValidateCmd() *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the row source without generating anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("csv") {
				cfg.CSV = csvPath
			}

			rows, err := rowsource.Load(cfg.CSV)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, all valid\n", cfg.CSV, len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "sites.csv", "Path to the row source CSV")
	return cmd
}
