package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/ledger"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var scrapCmd = &cobra.Command{
	Use:     "scrap <batch> <quantity>",
	GroupID: "inventory",
	Short:   "Write off stock from a batch",
	Long: `Record a SCRAP movement. Scrapping a batch to zero marks it SCRAP
permanently; partial scrap leaves it ACTIVE.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		qty, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", args[1], err)
		}

		return withStore(func(ctx context.Context, store storage.Storage) error {
			actor, err := requireActor(ctx, store, types.OpScrap)
			if err != nil {
				return err
			}
			batch, err := resolveBatch(ctx, store, args[0])
			if err != nil {
				return err
			}
			movement, updated, err := ledger.New(store).Record(ctx, ledger.RecordInput{
				BatchID:     batch.ID,
				Type:        types.MovementScrap,
				Quantity:    qty,
				Notes:       reason,
				PerformedBy: actor,
			})
			if err != nil {
				return friendlyError(err)
			}
			if jsonOutput {
				return outputJSON(map[string]any{"movement": movement, "batch": updated})
			}
			info("%s", ui.WarnStyle.Render(fmt.Sprintf("Scrapped %s from %s: %s left (%s)",
				movement.Quantity, updated.BatchNumber, updated.QuantityAvailable, updated.Status)))
			return nil
		})
	},
}

func init() {
	scrapCmd.Flags().String("reason", "", "Why the stock is written off")
	rootCmd.AddCommand(scrapCmd)
}
