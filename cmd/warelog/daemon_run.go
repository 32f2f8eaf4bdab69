package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/alerts"
	"github.com/inkops/warelog/internal/config"
	"github.com/inkops/warelog/internal/lockfile"
	"github.com/inkops/warelog/internal/logging"
	"github.com/inkops/warelog/internal/rpc"
	"github.com/inkops/warelog/internal/scheduler"
	"github.com/inkops/warelog/internal/storage"
)

const (
	healthCheckInterval = 60 * time.Second
	parentCheckInterval = 10 * time.Second
	heapWarnBytes       = 500 * 1024 * 1024
	minFreeDiskBytes    = 50 * 1024 * 1024
	configDebounce      = 500 * time.Millisecond
	configPollInterval  = 5 * time.Second
)

var daemonForeground bool

var daemonRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run the daemon in the foreground",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func runDaemon() error {
	workspace := workspaceRoot()

	log := logging.NewRotating(filepath.Join(workspace, ".warelog", "daemon.log"))
	if daemonForeground {
		log = logging.NewStderr()
	}

	// A stopping predecessor may still hold the lock briefly; keep trying
	// until lock-timeout before giving up.
	var lock *lockfile.Lock
	lockDeadline := time.Now().Add(config.GetDuration("lock-timeout"))
	for {
		var acquired bool
		var err error
		lock, acquired, err = lockfile.Acquire(daemonLockPath(), resolveDBPath())
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		if time.Now().After(lockDeadline) {
			return fmt.Errorf("another daemon already holds %s", daemonLockPath())
		}
		time.Sleep(250 * time.Millisecond)
	}
	defer func() { _ = lock.Unlock() }()

	store, err := openStore(rootCtx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	gen := alerts.New(store, log, alerts.Config{
		Bands:         configAlertBands(),
		DeadStockDays: configDeadStockDays(),
	})
	sched := scheduler.New(gen, log, scheduler.Options{
		LowStockInterval: config.GetDuration("alerts.low-stock-interval"),
	})
	if config.GetBool("scheduler.enabled") {
		if err := sched.Start(rootCtx); err != nil {
			return err
		}
	}

	server := rpc.NewServer(rpc.ServerConfig{
		SocketPath:    rpc.SocketPath(workspace),
		WorkspacePath: workspace,
		Store:         store,
		Scheduler:     sched,
		Version:       Version,
		Log:           log,
	})
	if err := server.Start(); err != nil {
		if sched.Running() {
			_ = sched.Shutdown(rootCtx)
		}
		return err
	}

	log.Info("daemon started",
		"pid", os.Getpid(),
		"version", Version,
		"workspace", workspace,
		"socket", rpc.SocketPath(workspace),
		"scheduler", sched.Running())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watcherEvents := watchConfig(log)
	healthTicker := time.NewTicker(healthCheckInterval)
	defer healthTicker.Stop()

	// In foreground mode the daemon follows its parent down; detached
	// daemons are reparented to init and skip the check.
	parentPID := 0
	if daemonForeground {
		parentPID = os.Getppid()
	}
	parentTicker := time.NewTicker(parentCheckInterval)
	defer parentTicker.Stop()

loop:
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reloadConfig(log, gen)
				continue
			}
			log.Info("signal received, shutting down", "signal", sig.String())
			break loop

		case <-server.ShutdownRequested():
			log.Info("shutdown requested over rpc")
			break loop

		case <-watcherEvents:
			reloadConfig(log, gen)

		case <-healthTicker.C:
			runHealthChecks(rootCtx, log, store)

		case <-parentTicker.C:
			if parentPID > 1 && !processAlive(parentPID) {
				log.Info("parent process died, shutting down", "parent_pid", parentPID)
				break loop
			}
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(stopCtx); err != nil {
		log.Warn("server stop", "error", err)
	}
	if sched.Running() {
		if err := sched.Shutdown(stopCtx); err != nil {
			log.Warn("scheduler shutdown", "error", err)
		}
	}
	log.Info("daemon stopped")
	return nil
}

// reloadConfig re-reads the config file and pushes the alert thresholds
// into the running generator.
func reloadConfig(log *logging.Logger, gen *alerts.Generator) {
	if err := config.Reload(); err != nil {
		log.Warn("config reload failed", "error", err)
		return
	}
	gen.SetThresholds(config.AlertBands(), config.DeadStockDays())
	log.Info("config reloaded",
		"bands", fmt.Sprint(config.AlertBands()),
		"dead_stock_days", config.DeadStockDays())
}

// watchConfig emits a signal when the config file changes, debounced so
// editors that write-then-rename produce one reload. Falls back to mtime
// polling when inotify is unavailable (WL_WATCHER_FALLBACK forces it).
func watchConfig(log *logging.Logger) <-chan struct{} {
	out := make(chan struct{}, 1)
	path := config.ConfigFileUsed()
	if path == "" {
		return out
	}

	notify := func() {
		select {
		case out <- struct{}{}:
		default:
		}
	}

	if os.Getenv("WL_WATCHER_FALLBACK") == "" {
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			// Watch the directory: rename-over-the-file (atomic save)
			// drops a watch on the file itself.
			if err := watcher.Add(filepath.Dir(path)); err == nil {
				go func() {
					defer watcher.Close()
					var timer *time.Timer
					for {
						select {
						case event, ok := <-watcher.Events:
							if !ok {
								return
							}
							if filepath.Clean(event.Name) != filepath.Clean(path) {
								continue
							}
							if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
								continue
							}
							if timer != nil {
								timer.Stop()
							}
							timer = time.AfterFunc(configDebounce, notify)
						case err, ok := <-watcher.Errors:
							if !ok {
								return
							}
							log.Warn("config watcher", "error", err)
						}
					}
				}()
				return out
			}
			_ = watcher.Close()
		}
		log.Warn("inotify unavailable, polling config file instead", "error", err)
	}

	go func() {
		var lastMod time.Time
		if fi, err := os.Stat(path); err == nil {
			lastMod = fi.ModTime()
		}
		ticker := time.NewTicker(configPollInterval)
		defer ticker.Stop()
		for range ticker.C {
			fi, err := os.Stat(path)
			if err != nil {
				continue
			}
			if fi.ModTime().After(lastMod) {
				lastMod = fi.ModTime()
				notify()
			}
		}
	}()
	return out
}

// runHealthChecks is the periodic self-check: database integrity, free
// disk space, and heap size. Problems are logged, not fatal.
func runHealthChecks(ctx context.Context, log *logging.Logger, store storage.Storage) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var result string
	row := store.UnderlyingDB().QueryRowContext(checkCtx, "PRAGMA quick_check(1)")
	if err := row.Scan(&result); err != nil {
		log.Error("database integrity check failed", "error", err)
	} else if result != "ok" {
		log.Error("database integrity check failed", "result", result)
	}

	if free, err := checkDiskSpace(filepath.Dir(store.Path())); err != nil {
		log.Warn("disk space check failed", "error", err)
	} else if free < minFreeDiskBytes {
		log.Warn("low disk space", "free_mb", free/(1024*1024))
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	if mem.HeapAlloc > heapWarnBytes {
		log.Warn("high memory usage", "heap_mb", mem.HeapAlloc/(1024*1024))
	}
}

func init() {
	daemonRunCmd.Flags().BoolVar(&daemonForeground, "foreground", false, "Log to stderr instead of the daemon log file")
	daemonCmd.AddCommand(daemonRunCmd)
}
