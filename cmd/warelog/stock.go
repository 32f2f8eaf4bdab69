package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/fefo"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var stockCmd = &cobra.Command{
	Use:     "stock [item]",
	GroupID: "inventory",
	Short:   "Show stock by expiration proximity",
	Long: `Partition an item's active stock into expiration buckets (expired /
critical / warning / caution / safe). With --all, every active item is
summarized.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return withStore(func(ctx context.Context, store storage.Storage) error {
			engine := fefo.New(store)

			if all {
				return stockAll(ctx, store, engine)
			}
			if len(args) == 0 {
				return fmt.Errorf("name an item or pass --all")
			}
			item, err := resolveItem(ctx, store, args[0])
			if err != nil {
				return err
			}
			summary, err := engine.Summary(ctx, item.ID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(summary)
			}
			fmt.Print(ui.RenderStockSummary(item, summary))
			return nil
		})
	},
}

func stockAll(ctx context.Context, store storage.Storage, engine *fefo.Engine) error {
	items, err := store.ListItems(ctx, types.ItemFilter{ActiveOnly: true})
	if err != nil {
		return err
	}

	summaries := make(map[string]*fefo.StockSummary, len(items))
	for _, item := range items {
		summary, err := engine.Summary(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("summary for %s: %w", item.SKU, err)
		}
		summaries[item.ID] = summary
	}
	if jsonOutput {
		out := make([]*fefo.StockSummary, 0, len(items))
		for _, item := range items {
			out = append(out, summaries[item.ID])
		}
		return outputJSON(out)
	}

	t := ui.NewTable("SKU", "NAME", "TOTAL", "EXPIRED", "CRITICAL", "WARNING", "CAUTION", "SAFE")
	for _, item := range items {
		s := summaries[item.ID]
		t.Row(item.SKU, item.Name,
			s.TotalQuantity.String()+" "+item.Unit,
			levelCell(s, types.LevelExpired),
			levelCell(s, types.LevelCritical),
			levelCell(s, types.LevelWarning),
			levelCell(s, types.LevelCaution),
			levelCell(s, types.LevelSafe))
	}
	fmt.Println(t.String())
	return nil
}

func levelCell(s *fefo.StockSummary, level types.WarningLevel) string {
	stats := s.Levels[level]
	if stats.Batches == 0 {
		return "-"
	}
	return ui.LevelStyle(level).Render(stats.Quantity.String())
}

// expirationNotice renders the shelf-life warning for a batch, or ""
// when expiration is comfortably far away.
func expirationNotice(expiration types.Date) string {
	warning := fefo.ExpirationWarning(expiration, types.Today())
	if warning == nil {
		return ""
	}
	return ui.SeverityStyle(warning.Level).Render(warning.Message)
}

func init() {
	stockCmd.Flags().Bool("all", false, "Summarize every active item")
	rootCmd.AddCommand(stockCmd)
}
