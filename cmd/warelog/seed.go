package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/seed"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

var seedCmd = &cobra.Command{
	Use:     "seed",
	GroupID: "system",
	Short:   "Import a TOML catalog (items, locations, customers)",
	Long: `Import a catalog file into the workspace database.

The import is idempotent: items are matched by SKU and updated in place,
locations (by code) and customers (by name) are skipped when they already
exist.

Example catalog.toml:

  [[items]]
  sku = "INK-001"
  name = "Black offset ink"
  unit = "kg"
  cost_per_unit = "42.50"
  reorder_point = "50"
  min_stock = "20"

  [[locations]]
  code = "A-01"
  zone = "A"

  [[customers]]
  name = "PrintCo"
  vmi = true`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpSeed); err != nil {
				return err
			}
			result, err := seed.ImportFile(ctx, store, file)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(result)
			}
			info("Imported: %d items created, %d updated; %d locations, %d customers created; %d skipped",
				result.ItemsCreated, result.ItemsUpdated,
				result.LocationsCreated, result.CustomersCreated, result.Skipped)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().String("file", "catalog.toml", "Catalog file to import")
	rootCmd.AddCommand(seedCmd)
}
