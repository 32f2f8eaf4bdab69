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

var adjustCmd = &cobra.Command{
	Use:     "adjust <batch>",
	GroupID: "inventory",
	Short:   "Adjust a batch to a counted quantity",
	Long: `Record a stocktake correction: the batch is set to the counted
quantity through a signed ADJUSTMENT movement. The reason lands in the
ledger, so every correction is auditable.

  warelog adjust B-0042 --to 17.250 --reason "cycle count 2026-08"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toRaw, _ := cmd.Flags().GetString("to")
		reason, _ := cmd.Flags().GetString("reason")
		if toRaw == "" {
			return fmt.Errorf("--to is required")
		}
		target, err := decimal.NewFromString(toRaw)
		if err != nil {
			return fmt.Errorf("invalid --to %q: %w", toRaw, err)
		}

		return withStore(func(ctx context.Context, store storage.Storage) error {
			actor, err := requireActor(ctx, store, types.OpAdjust)
			if err != nil {
				return err
			}
			batch, err := resolveBatch(ctx, store, args[0])
			if err != nil {
				return err
			}
			movement, updated, err := ledger.New(store).AdjustTo(ctx, batch.ID, target, actor, reason)
			if err != nil {
				return friendlyError(err)
			}
			if jsonOutput {
				return outputJSON(map[string]any{"movement": movement, "batch": updated})
			}
			info("%s", ui.SuccessStyle.Render(fmt.Sprintf("Adjusted %s: %s → %s (%s)",
				updated.BatchNumber, movement.QuantityBefore, movement.QuantityAfter, updated.Status)))
			return nil
		})
	},
}

func init() {
	adjustCmd.Flags().String("to", "", "Counted quantity the batch is set to")
	adjustCmd.Flags().String("reason", "", "Why the adjustment is needed (required)")

	rootCmd.AddCommand(adjustCmd)
}
