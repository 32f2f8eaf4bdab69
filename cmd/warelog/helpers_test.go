package main

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-06-01")
	if err != nil {
		t.Fatalf("parseDate ISO failed: %v", err)
	}
	if d.String() != "2026-06-01" {
		t.Errorf("parseDate = %s, want 2026-06-01", d)
	}

	d, err = parseDate("in 6 months")
	if err != nil {
		t.Fatalf("parseDate natural language failed: %v", err)
	}
	if !d.Time().After(time.Now()) {
		t.Errorf("'in 6 months' resolved to the past: %s", d)
	}

	if _, err := parseDate("gibberish xyz"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2026-03-15", "2026-03-15T00:00:00Z"},
		{"2026-03-15 14:30", "2026-03-15T14:30:00Z"},
		{"2026-03-15T14:30:00Z", "2026-03-15T14:30:00Z"},
	}
	for _, tt := range tests {
		got, err := parseTime(tt.input)
		if err != nil {
			t.Errorf("parseTime(%q) failed: %v", tt.input, err)
			continue
		}
		if got.UTC().Format(time.RFC3339) != tt.want {
			t.Errorf("parseTime(%q) = %s, want %s", tt.input, got.UTC().Format(time.RFC3339), tt.want)
		}
	}
}

func TestSplitPair(t *testing.T) {
	ref, qty, err := splitPair("B-260315-001=12.5")
	if err != nil {
		t.Fatalf("splitPair failed: %v", err)
	}
	if ref != "B-260315-001" {
		t.Errorf("ref = %q", ref)
	}
	if qty.String() != "12.5" {
		t.Errorf("qty = %s, want 12.5", qty)
	}

	for _, bad := range []string{"noequals", "=5", "batch=", "batch=abc"} {
		if _, _, err := splitPair(bad); err == nil {
			t.Errorf("splitPair(%q) should fail", bad)
		}
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortCommit = %q, want 0123456", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("shortCommit = %q, want abc", got)
	}
}
