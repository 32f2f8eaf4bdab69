package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/fefo"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

var reportCmd = &cobra.Command{
	Use:     "report",
	GroupID: "alerts",
	Short:   "Render a stock and alert overview",
	Long: `Render a markdown overview of the warehouse: stock by expiration
bucket per item, open alerts, and batches needing attention. Formatted
for the terminal; pipe it elsewhere for plain markdown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			md, err := buildReport(ctx, store)
			if err != nil {
				return err
			}
			return renderMarkdown(md)
		})
	},
}

func buildReport(ctx context.Context, store storage.Storage) (string, error) {
	var b strings.Builder
	today := types.Today()
	fmt.Fprintf(&b, "# Warehouse Report — %s\n\n", today)

	items, err := store.ListItems(ctx, types.ItemFilter{ActiveOnly: true})
	if err != nil {
		return "", err
	}
	engine := fefo.New(store)

	b.WriteString("## Stock by expiration\n\n")
	b.WriteString("| SKU | Item | Total | Expired | Critical | Warning | Caution | Safe |\n")
	b.WriteString("|-----|------|-------|---------|----------|---------|---------|------|\n")
	for _, item := range items {
		s, err := engine.Summary(ctx, item.ID)
		if err != nil {
			return "", fmt.Errorf("summary for %s: %w", item.SKU, err)
		}
		fmt.Fprintf(&b, "| %s | %s | %s %s |", item.SKU, item.Name, s.TotalQuantity, item.Unit)
		for _, level := range types.WarningLevels {
			stats := s.Levels[level]
			if stats.Batches == 0 {
				b.WriteString(" - |")
			} else {
				fmt.Fprintf(&b, " %s |", stats.Quantity)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	expiring, err := store.ExpiringBatches(ctx, today, today.AddDays(30))
	if err != nil {
		return "", err
	}
	if len(expiring) > 0 {
		b.WriteString("## Expiring within 30 days\n\n")
		for _, batch := range expiring {
			days := today.DaysUntil(batch.ExpirationDate)
			fmt.Fprintf(&b, "- **%s** (%s): %s left, expires %s (%d days)\n",
				batch.BatchNumber, batch.ItemSKU, batch.QuantityAvailable,
				batch.ExpirationDate, days)
		}
		b.WriteString("\n")
	}

	open, err := store.ListAlerts(ctx, types.AlertFilter{UnreadOnly: true})
	if err != nil {
		return "", err
	}
	if len(open) > 0 {
		fmt.Fprintf(&b, "## Unread alerts (%d)\n\n", len(open))
		for _, alert := range open {
			fmt.Fprintf(&b, "- `%s` %s\n", alert.Severity, alert.Message)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("_No unread alerts._\n")
	}
	return b.String(), nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
