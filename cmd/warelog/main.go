// Command warelog is the warehouse CLI: goods receipt, FEFO picking,
// delivery notes, stock alerts, and the background daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/config"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/storage/sqlite"
	"github.com/inkops/warelog/internal/types"
)

// Global flag state, mirrored into viper in rootCmd's PersistentPreRunE.
var (
	jsonOutput bool
	quietMode  bool
	noDaemon   bool
	dbFlag     string
	actorFlag  string

	rootCtx = context.Background()
)

var rootCmd = &cobra.Command{
	Use:   "warelog",
	Short: "Perishable-ink warehouse management",
	Long: `warelog tracks perishable ink stock batch by batch: goods receipt,
FEFO (first-expired-first-out) picking, delivery notes, and expiration
alerts, backed by an append-only movement ledger.

Most commands talk directly to the SQLite database. A background daemon
(warelog daemon start) runs the scheduled alert checks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		// Flags beat config and environment; only mirror what was set.
		if cmd.Flags().Changed("json") {
			config.Set("json", jsonOutput)
		}
		if cmd.Flags().Changed("quiet") {
			config.Set("quiet", quietMode)
		}
		if cmd.Flags().Changed("no-daemon") {
			config.Set("no-daemon", noDaemon)
		}
		if cmd.Flags().Changed("db") {
			config.Set("db", dbFlag)
		}
		if cmd.Flags().Changed("actor") {
			config.Set("actor", actorFlag)
		}
		jsonOutput = config.GetBool("json")
		quietMode = config.GetBool("quiet")
		noDaemon = config.GetBool("no-daemon")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&noDaemon, "no-daemon", false, "Bypass the daemon, operate directly on the database")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database file path (default: <workspace>/.warelog/warelog.db)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Acting user for movements and documents (default: $WL_ACTOR or OS user)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "inventory", Title: "Inventory Commands:"},
		&cobra.Group{ID: "documents", Title: "Document Commands:"},
		&cobra.Group{ID: "alerts", Title: "Alert Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// workspaceRoot walks up from the working directory looking for a
// .warelog directory; falls back to the working directory itself.
func workspaceRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		if info, err := os.Stat(filepath.Join(dir, ".warelog")); err == nil && info.IsDir() {
			return dir
		}
		if dir == filepath.Dir(dir) {
			return cwd
		}
	}
}

// resolveDBPath applies the --db flag / WL_DB / config, defaulting to
// the workspace database.
func resolveDBPath() string {
	if path := config.GetString("db"); path != "" {
		return path
	}
	return filepath.Join(workspaceRoot(), ".warelog", "warelog.db")
}

// openStore opens the workspace database, creating it (and its schema)
// on first use.
func openStore(ctx context.Context) (storage.Storage, error) {
	dbPath := resolveDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	return store, nil
}

// withStore opens the database, runs fn, and closes it.
func withStore(fn func(ctx context.Context, store storage.Storage) error) error {
	store, err := openStore(rootCtx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(rootCtx, store)
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// info prints a line unless --quiet is set.
func info(format string, args ...any) {
	if !quietMode {
		fmt.Printf(format+"\n", args...)
	}
}

// friendlyError unwraps the domain taxonomy into a short message the
// operator can act on; everything else passes through unchanged.
func friendlyError(err error) error {
	if stock, ok := types.AsInsufficientStock(err); ok {
		return fmt.Errorf("insufficient stock on batch %s: requested %s, available %s",
			stock.BatchID, stock.Requested, stock.Available)
	}
	return err
}
