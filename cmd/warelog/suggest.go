package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/fefo"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/ui"
)

var suggestCmd = &cobra.Command{
	Use:     "suggest <item> <quantity>",
	GroupID: "inventory",
	Short:   "Suggest batches to pick, first-expired-first-out",
	Long: `Walk the item's pickable batches in FEFO order (earliest expiration
first) and allocate the requested quantity. Partial coverage is reported
as a shortfall, not an error.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			item, err := resolveItem(ctx, store, args[0])
			if err != nil {
				return err
			}
			qty, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}

			suggestion, err := fefo.New(store).Suggest(ctx, item.ID, qty)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(suggestion)
			}
			fmt.Println(ui.TitleStyle.Render(fmt.Sprintf("Pick %s %s of %s", qty, item.Unit, item.SKU)))
			fmt.Print(ui.RenderSuggestion(suggestion, item.Unit))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}
