package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Version is the current version (overridden by ldflags at build time)
	Version = "1.0.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
	// Commit is the git revision the binary was built from (optional ldflag)
	Commit = ""
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: "system",
	Short:   "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		commit := Commit
		if commit == "" {
			commit = buildInfoCommit()
		}
		if jsonOutput {
			result := map[string]string{"version": Version, "build": Build}
			if commit != "" {
				result["commit"] = commit
			}
			_ = outputJSON(result)
			return
		}
		if commit != "" {
			fmt.Printf("warelog version %s (%s: %s)\n", Version, Build, shortCommit(commit))
		} else {
			fmt.Printf("warelog version %s (%s)\n", Version, Build)
		}
	},
}

// buildInfoCommit recovers the vcs revision for go-install builds where
// no ldflags were set.
func buildInfoCommit() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range bi.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return ""
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
