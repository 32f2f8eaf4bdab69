package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/ledger"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "inventory",
	Short:   "Query the movement ledger",
	Long: `List ledger movements, newest first. --since and --until accept ISO
dates, timestamps, or natural-language phrases ("last monday").

  warelog history --batch B-0042
  warelog history --item INK-001 --type DISPATCH --since "7 days ago"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			filter := types.MovementFilter{}

			if batchRef, _ := cmd.Flags().GetString("batch"); batchRef != "" {
				batch, err := resolveBatch(ctx, store, batchRef)
				if err != nil {
					return err
				}
				filter.BatchID = batch.ID
			}
			if itemRef, _ := cmd.Flags().GetString("item"); itemRef != "" {
				item, err := resolveItem(ctx, store, itemRef)
				if err != nil {
					return err
				}
				filter.ItemID = item.ID
			}
			if mtype, _ := cmd.Flags().GetString("type"); mtype != "" {
				filter.Type = types.MovementType(strings.ToUpper(mtype))
			}
			if since, _ := cmd.Flags().GetString("since"); since != "" {
				t, err := parseTime(since)
				if err != nil {
					return err
				}
				filter.From = &t
			}
			if until, _ := cmd.Flags().GetString("until"); until != "" {
				t, err := parseTime(until)
				if err != nil {
					return err
				}
				filter.To = &t
			}
			limit, _ := cmd.Flags().GetInt("limit")
			filter.Limit = listLimit(limit)

			movements, err := ledger.New(store).History(ctx, filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(movements)
			}
			if len(movements) == 0 {
				info("no movements match")
				return nil
			}
			fmt.Print(ui.RenderMovements(movements))
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().String("batch", "", "Filter by batch number or id")
	historyCmd.Flags().String("item", "", "Filter by item SKU or id")
	historyCmd.Flags().String("type", "", "Filter by movement type (RECEIPT, DISPATCH, ADJUSTMENT, SCRAP, TRANSFER)")
	historyCmd.Flags().String("since", "", "Only movements at or after this time")
	historyCmd.Flags().String("until", "", "Only movements before this time")
	historyCmd.Flags().Int("limit", 0, "Maximum rows")

	rootCmd.AddCommand(historyCmd)
}
