package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/alerts"
	"github.com/inkops/warelog/internal/rpc"
	"github.com/inkops/warelog/internal/scheduler"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var checksCmd = &cobra.Command{
	Use:     "checks",
	GroupID: "alerts",
	Short:   "Run the scheduled alert checks on demand",
}

var checksRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run alert checks now",
	Long: `Run the alert checks immediately instead of waiting for the schedule.
When a daemon is running the checks execute there (respecting its
per-job locks); otherwise they run directly against the database.

  warelog checks run
  warelog checks run --kind expiring`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		if !scheduler.ValidKind(scheduler.CheckKind(kind)) {
			return fmt.Errorf("unknown check kind %q (all, expiring, expired, low_stock, dead_stock)", kind)
		}

		// Daemon-first: the daemon owns the schedule and its locks.
		if !noDaemon {
			client := daemonClient()
			if client == nil {
				client = autostartDaemon()
			}
			if client != nil {
				report, err := client.RunChecks(rootCtx, kind)
				if err != nil {
					return err
				}
				return printRunReport(report, "daemon")
			}
		}

		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpRunChecks); err != nil {
				return err
			}
			gen := newGenerator(store)
			sched := scheduler.New(gen, cliLogger(), scheduler.Options{})
			report, err := sched.TriggerNow(ctx, scheduler.CheckKind(kind))
			if err != nil {
				return err
			}
			return printRunReport(report, "direct")
		})
	},
}

// daemonClient probes for a live, compatible daemon. Any failure means
// "no daemon": the caller falls back to direct mode.
func daemonClient() *rpc.Client {
	socket := rpc.SocketPath(workspaceRoot())
	client, err := rpc.TryConnect(socket, rpc.ClientOptions{
		DBPath:  resolveDBPath(),
		Version: Version,
		Actor:   actorName(),
	})
	if err != nil {
		info("%s", ui.WarnStyle.Render(err.Error()))
		return nil
	}
	return client
}

func printRunReport(report *alerts.RunReport, mode string) error {
	if jsonOutput {
		return outputJSON(report)
	}
	info("%s", report.Summary())
	if len(report.Errors) > 0 {
		for _, msg := range report.Errors {
			info("%s", ui.ErrorStyle.Render("check failed: "+msg))
		}
	}
	info("%s", ui.MutedStyle.Render("(ran in "+mode+" mode)"))
	return nil
}

func init() {
	checksRunCmd.Flags().String("kind", "all", "Which check: all, expiring, expired, low_stock, dead_stock")
	checksCmd.AddCommand(checksRunCmd)
	rootCmd.AddCommand(checksCmd)
}
