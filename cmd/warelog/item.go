package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/config"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var itemCmd = &cobra.Command{
	Use:     "item",
	GroupID: "inventory",
	Short:   "Manage catalog items",
}

var itemAddCmd = &cobra.Command{
	Use:   "add <sku> <name>",
	Short: "Add a catalog item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpManageCatalog); err != nil {
				return err
			}

			item := &types.Item{
				SKU:      args[0],
				Name:     args[1],
				Unit:     config.GetString("unit"),
				Currency: config.GetString("currency"),
				IsActive: true,
			}
			item.Description, _ = cmd.Flags().GetString("description")
			if unit, _ := cmd.Flags().GetString("unit"); unit != "" {
				item.Unit = unit
			}

			var err error
			if item.CostPerUnit, err = decimalFlag(cmd, "cost"); err != nil {
				return err
			}
			if item.ReorderPoint, err = optionalDecimalFlag(cmd, "reorder-point"); err != nil {
				return err
			}
			if item.MinStock, err = optionalDecimalFlag(cmd, "min-stock"); err != nil {
				return err
			}
			if item.MaxStock, err = optionalDecimalFlag(cmd, "max-stock"); err != nil {
				return err
			}

			if err := store.CreateItem(ctx, item); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(item)
			}
			info("Created item %s (%s)", item.SKU, item.ID)
			return nil
		})
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			all, _ := cmd.Flags().GetBool("all")
			search, _ := cmd.Flags().GetString("search")
			limit, _ := cmd.Flags().GetInt("limit")

			items, err := store.ListItems(ctx, types.ItemFilter{
				ActiveOnly: !all,
				Search:     search,
				Limit:      listLimit(limit),
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(items)
			}

			t := ui.NewTable("SKU", "NAME", "UNIT", "COST", "REORDER", "MIN", "ACTIVE")
			for _, item := range items {
				t.Row(item.SKU, item.Name, item.Unit,
					item.CostPerUnit.StringFixed(2)+" "+item.Currency,
					decimalOrDash(item.ReorderPoint),
					decimalOrDash(item.MinStock),
					yesNo(item.IsActive))
			}
			fmt.Println(t.String())
			return nil
		})
	},
}

var itemShowCmd = &cobra.Command{
	Use:   "show <sku>",
	Short: "Show one item with its batches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			item, err := resolveItem(ctx, store, args[0])
			if err != nil {
				return err
			}
			batches, err := store.ActiveBatchesByItem(ctx, item.ID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(map[string]any{"item": item, "batches": batches})
			}

			fmt.Println(ui.TitleStyle.Render(fmt.Sprintf("%s — %s", item.SKU, item.Name)))
			if item.Description != "" {
				fmt.Println(ui.MutedStyle.Render(item.Description))
			}
			fmt.Printf("Unit: %s   Cost: %s %s   Active: %s\n",
				item.Unit, item.CostPerUnit.StringFixed(2), item.Currency, yesNo(item.IsActive))
			if len(batches) > 0 {
				fmt.Print(ui.RenderBatches(batches, types.Today()))
			} else {
				fmt.Println(ui.MutedStyle.Render("no active batches"))
			}
			return nil
		})
	},
}

var itemDeactivateCmd = &cobra.Command{
	Use:   "deactivate <sku>",
	Short: "Deactivate an item (keeps history)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpManageCatalog); err != nil {
				return err
			}
			item, err := resolveItem(ctx, store, args[0])
			if err != nil {
				return err
			}
			item.IsActive = false
			if err := store.UpdateItem(ctx, item); err != nil {
				return err
			}
			info("Deactivated item %s", item.SKU)
			return nil
		})
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete <sku>",
	Short: "Delete an item (refused when batches exist)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpManageCatalog); err != nil {
				return err
			}
			item, err := resolveItem(ctx, store, args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
			info("Deleted item %s", item.SKU)
			return nil
		})
	},
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return d, nil
}

func optionalDecimalFlag(cmd *cobra.Command, name string) (*decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return &d, nil
}

func decimalOrDash(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	itemAddCmd.Flags().String("description", "", "Item description")
	itemAddCmd.Flags().String("unit", "", "Unit of measure (default from config)")
	itemAddCmd.Flags().String("cost", "", "Cost per unit")
	itemAddCmd.Flags().String("reorder-point", "", "Reorder threshold (WARNING alert)")
	itemAddCmd.Flags().String("min-stock", "", "Minimum stock threshold (CRITICAL alert)")
	itemAddCmd.Flags().String("max-stock", "", "Maximum stock level")

	itemListCmd.Flags().Bool("all", false, "Include deactivated items")
	itemListCmd.Flags().String("search", "", "Filter by SKU or name substring")
	itemListCmd.Flags().Int("limit", 0, "Maximum rows")

	itemCmd.AddCommand(itemAddCmd, itemListCmd, itemShowCmd, itemDeactivateCmd, itemDeleteCmd)
	rootCmd.AddCommand(itemCmd)
}
