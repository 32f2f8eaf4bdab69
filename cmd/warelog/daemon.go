package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/config"
	"github.com/inkops/warelog/internal/lockfile"
	"github.com/inkops/warelog/internal/rpc"
	"github.com/inkops/warelog/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "system",
	Short:   "Manage the background daemon",
	Long: `The daemon runs the scheduled alert checks (daily expiration sweep,
4-hourly low stock, weekly dead stock) and serves RPC on a unix socket.
One daemon per workspace, enforced by a file lock.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if client := daemonClient(); client != nil {
			info("daemon already running")
			return nil
		}
		if err := startDaemonProcess(); err != nil {
			return err
		}
		info("%s", ui.SuccessStyle.Render("daemon started"))
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := daemonClient()
		if client == nil {
			// No live socket; clean up after a crashed daemon if the
			// lock metadata still points at a dead pid.
			lockPath := daemonLockPath()
			if meta, err := lockfile.ReadInfo(lockPath); err == nil && !processAlive(meta.PID) {
				_ = os.Remove(lockPath + ".info")
				info("removed stale daemon metadata (pid %d is gone)", meta.PID)
				return nil
			}
			info("no daemon running")
			return nil
		}
		if err := client.Shutdown(rootCtx); err != nil {
			return err
		}
		info("daemon stopping")
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := daemonClient()
		if client == nil {
			if jsonOutput {
				return outputJSON(map[string]any{"running": false})
			}
			info("daemon is not running")
			return nil
		}
		status, err := client.Status(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(status)
		}

		t := ui.NewTable("FIELD", "VALUE")
		t.Row("Version", status.Version)
		t.Row("PID", strconv.Itoa(status.PID))
		t.Row("Workspace", status.WorkspacePath)
		t.Row("Database", status.DatabasePath)
		t.Row("Socket", status.SocketPath)
		t.Row("Uptime", (time.Duration(status.UptimeSeconds) * time.Second).String())
		t.Row("Last activity", status.LastActivityTime)
		t.Row("Scheduler", yesNo(status.SchedulerRunning))
		t.Row("Unread alerts", strconv.Itoa(status.UnreadAlerts))
		fmt.Println(t.String())
		return nil
	},
}

func daemonLockPath() string {
	return filepath.Join(workspaceRoot(), ".warelog", "daemon.lock")
}

// startDaemonProcess spawns "warelog daemon run" detached and waits for
// the socket to answer. A start lock (O_CREATE|O_EXCL with the starter's
// pid) keeps concurrent CLI invocations from racing the spawn.
func startDaemonProcess() error {
	startLock := filepath.Join(workspaceRoot(), ".warelog", "daemon.start.lock")
	if err := os.MkdirAll(filepath.Dir(startLock), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(startLock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return fmt.Errorf("failed to take start lock: %w", err)
		}
		// A leftover lock from a crashed starter is stale when its pid
		// is gone.
		data, rerr := os.ReadFile(startLock)
		if rerr != nil {
			return fmt.Errorf("another daemon start is in progress")
		}
		pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
		if pid > 0 && processAlive(pid) {
			return fmt.Errorf("another daemon start is in progress (pid %d)", pid)
		}
		_ = os.Remove(startLock)
		if f, err = os.OpenFile(startLock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644); err != nil {
			return fmt.Errorf("failed to take start lock: %w", err)
		}
	}
	defer func() { _ = os.Remove(startLock) }()
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate own binary: %w", err)
	}
	spawn := exec.Command(executable, "daemon", "run")
	spawn.Dir = workspaceRoot()
	spawn.Stdout = nil
	spawn.Stderr = nil
	spawn.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := spawn.Start(); err != nil {
		return fmt.Errorf("failed to spawn daemon: %w", err)
	}
	_ = spawn.Process.Release()

	// Poll socket readiness.
	socket := rpc.SocketPath(workspaceRoot())
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		client, err := rpc.TryConnect(socket, rpc.ClientOptions{
			DBPath:  resolveDBPath(),
			Version: Version,
		})
		if err == nil && client != nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not become ready within 5s; check %s",
		filepath.Join(workspaceRoot(), ".warelog", "daemon.log"))
}

// Autostart failure tracking: after a failed spawn, back off
// exponentially (5s, 10s, ... capped at 120s) before trying again.
var (
	lastDaemonStartAttempt time.Time
	daemonStartFailures    int
)

func canRetryDaemonStart() bool {
	if daemonStartFailures == 0 {
		return true
	}
	backoff := time.Duration(5*(1<<uint(daemonStartFailures-1))) * time.Second
	if backoff > 120*time.Second {
		backoff = 120 * time.Second
	}
	return time.Since(lastDaemonStartAttempt) > backoff
}

// autostartDaemon spawns the daemon when configured to and none is
// running. Used by daemon-first commands; failures degrade to direct
// mode silently.
func autostartDaemon() *rpc.Client {
	if noDaemon || !config.GetBool("auto-start-daemon") {
		return nil
	}
	if !canRetryDaemonStart() {
		return nil
	}
	lastDaemonStartAttempt = time.Now()
	if err := startDaemonProcess(); err != nil {
		daemonStartFailures++
		return nil
	}
	daemonStartFailures = 0
	return daemonClient()
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}
