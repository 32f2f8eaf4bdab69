// Package config wraps the viper configuration singleton for warelog.
// Precedence: command-line flags (mirrored in by the CLI) > WL_ environment
// variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate config.yaml with SetConfigFile so viper never picks
	// up an unrelated config.json.
	// Precedence: project .warelog/config.yaml > ~/.config/warelog/config.yaml
	// > ~/.warelog/config.yaml
	configFileSet := false

	// 1. Walk up from CWD to find the project .warelog/config.yaml, so
	//    commands work from subdirectories of the workspace.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".warelog", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory (~/.config/warelog/config.yaml)
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "warelog", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory (~/.warelog/config.yaml)
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".warelog", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file.
	// E.g. WL_JSON, WL_NO_DAEMON, WL_ACTOR, WL_DB, WL_LOCK_TIMEOUT.
	v.SetEnvPrefix("WL")
	// Hyphens and dots map to underscores, so WL_NO_DAEMON reads "no-daemon".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Global flag defaults
	v.SetDefault("json", false)
	v.SetDefault("quiet", false)
	v.SetDefault("no-daemon", false)
	v.SetDefault("db", "")
	v.SetDefault("actor", "")
	v.SetDefault("lock-timeout", "30s")

	// Daemon defaults
	v.SetDefault("auto-start-daemon", true)
	v.SetDefault("scheduler.enabled", true)

	// Alert generator defaults. Bands are days-until-expiration thresholds,
	// widest first; severity mapping lives in the alert generator.
	v.SetDefault("alerts.bands", []int{120, 90, 60, 30})
	v.SetDefault("alerts.dead-stock-days", 180)
	v.SetDefault("alerts.low-stock-interval", "4h")

	// Catalog defaults
	v.SetDefault("currency", "ILS")
	v.SetDefault("unit", "kg")

	// Query limits
	v.SetDefault("limit.default", 50)
	v.SetDefault("limit.max", 500)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	// No config.yaml found: defaults and environment variables apply.

	return nil
}

// Reload re-reads the config file in place. Used by the daemon's config
// watcher to pick up threshold changes without a restart. A missing file is
// not an error; the previous values stay in effect.
func Reload() error {
	if v == nil {
		return Initialize()
	}
	if v.ConfigFileUsed() == "" {
		return nil
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reloading config file: %w", err)
	}
	return nil
}

// ConfigFileUsed returns the path of the loaded config file, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetIntSlice retrieves an integer slice configuration value.
func GetIntSlice(key string) []int {
	if v == nil {
		return nil
	}
	return v.GetIntSlice(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value (used by the CLI to mirror flags in).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// AlertBands returns the configured expiration alert bands sorted as
// configured (widest first by default). Falls back to the standard bands
// when the config is empty or invalid.
func AlertBands() []int {
	bands := GetIntSlice("alerts.bands")
	if len(bands) == 0 {
		return []int{120, 90, 60, 30}
	}
	return bands
}

// DeadStockDays returns the dead-stock window in days.
func DeadStockDays() int {
	days := GetInt("alerts.dead-stock-days")
	if days <= 0 {
		return 180
	}
	return days
}
