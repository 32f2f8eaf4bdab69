package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/alerts"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var alertsCmd = &cobra.Command{
	Use:     "alerts",
	GroupID: "alerts",
	Short:   "List and manage stock alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts (unread shown bold)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			unread, _ := cmd.Flags().GetBool("unread")
			all, _ := cmd.Flags().GetBool("all")
			severity, _ := cmd.Flags().GetString("severity")
			limit, _ := cmd.Flags().GetInt("limit")

			list, err := newGenerator(store).List(ctx, types.AlertFilter{
				UnreadOnly:       unread,
				IncludeDismissed: all,
				Severity:         types.Severity(strings.ToUpper(severity)),
				Limit:            listLimit(limit),
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(list)
			}
			if len(list) == 0 {
				info("no alerts")
				return nil
			}
			fmt.Print(ui.RenderAlerts(list))
			return nil
		})
	},
}

var alertsReadCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark an alert read (--all for every alert)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpManageAlerts); err != nil {
				return err
			}
			gen := newGenerator(store)
			if all {
				n, err := gen.MarkAllRead(ctx)
				if err != nil {
					return err
				}
				info("Marked %d alert(s) read", n)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("give an alert id or --all")
			}
			if err := gen.MarkRead(ctx, args[0]); err != nil {
				return err
			}
			info("Marked read")
			return nil
		})
	},
}

var alertsDismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Dismiss an alert permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpManageAlerts); err != nil {
				return err
			}
			if err := newGenerator(store).Dismiss(ctx, args[0]); err != nil {
				return err
			}
			info("Dismissed")
			return nil
		})
	},
}

// newGenerator builds an alert generator with the configured thresholds.
func newGenerator(store storage.Storage) *alerts.Generator {
	return alerts.New(store, cliLogger(), alerts.Config{
		Bands:         configAlertBands(),
		DeadStockDays: configDeadStockDays(),
	})
}

func init() {
	alertsListCmd.Flags().Bool("unread", false, "Only unread alerts")
	alertsListCmd.Flags().Bool("all", false, "Include dismissed alerts")
	alertsListCmd.Flags().String("severity", "", "Filter by severity (INFO, WARNING, CRITICAL)")
	alertsListCmd.Flags().Int("limit", 0, "Maximum rows")
	alertsReadCmd.Flags().Bool("all", false, "Mark every alert read")

	alertsCmd.AddCommand(alertsListCmd, alertsReadCmd, alertsDismissCmd)
	rootCmd.AddCommand(alertsCmd)
}
