package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "system",
	Short:   "Show database statistics",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			stats, err := store.GetStatistics(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(stats)
			}

			t := ui.NewTable("METRIC", "VALUE")
			t.Row("Items", fmt.Sprintf("%d", stats.Items))
			t.Row("Locations", fmt.Sprintf("%d", stats.Locations))
			t.Row("Batches", fmt.Sprintf("%d (%d active)", stats.Batches, stats.ActiveBatches))
			t.Row("Movements", fmt.Sprintf("%d", stats.Movements))
			t.Row("Customers", fmt.Sprintf("%d", stats.Customers))
			t.Row("Delivery notes", fmt.Sprintf("%d", stats.DeliveryNotes))
			t.Row("Alerts", fmt.Sprintf("%d (%d unread)", stats.Alerts, stats.UnreadAlerts))
			t.Row("Users", fmt.Sprintf("%d", stats.Users))
			t.Row("Database size", fmt.Sprintf("%.1f MB", float64(stats.DBSizeBytes)/(1024*1024)))
			t.Row("Schema version", fmt.Sprintf("%d", stats.SchemaVersion))
			fmt.Println(t.String())
			fmt.Println(ui.MutedStyle.Render(store.Path()))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
