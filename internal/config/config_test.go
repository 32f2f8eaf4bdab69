package config

import (
	"os"
	"testing"
	"time"
)

func TestInitializeDefaults(t *testing.T) {
	// Run from a temp dir so no real .warelog/config.yaml is picked up.
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if got := GetString("currency"); got != "ILS" {
		t.Errorf("currency default = %q, want ILS", got)
	}
	if !GetBool("scheduler.enabled") {
		t.Error("scheduler.enabled should default to true")
	}
	if got := GetDuration("alerts.low-stock-interval"); got != 4*time.Hour {
		t.Errorf("low-stock-interval = %v, want 4h", got)
	}
	if got := GetInt("limit.max"); got != 500 {
		t.Errorf("limit.max = %d, want 500", got)
	}
}

func TestAlertBandsDefaults(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	bands := AlertBands()
	want := []int{120, 90, 60, 30}
	if len(bands) != len(want) {
		t.Fatalf("AlertBands = %v, want %v", bands, want)
	}
	for i := range want {
		if bands[i] != want[i] {
			t.Errorf("AlertBands[%d] = %d, want %d", i, bands[i], want[i])
		}
	}
	if days := DeadStockDays(); days != 180 {
		t.Errorf("DeadStockDays = %d, want 180", days)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("WL_CURRENCY", "USD")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := GetString("currency"); got != "USD" {
		t.Errorf("currency with WL_CURRENCY=USD = %q, want USD", got)
	}
}
