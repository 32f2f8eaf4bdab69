package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "valid date", input: "2026-03-15", want: "2026-03-15"},
		{name: "leap day", input: "2028-02-29", want: "2028-02-29"},
		{name: "invalid leap day", input: "2026-02-29", wantErr: true},
		{name: "wrong format", input: "15/03/2026", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "not-a-date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && d.String() != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, d.String(), tt.want)
			}
		})
	}
}

func TestDateDaysUntil(t *testing.T) {
	base := MustParseDate("2026-01-31")

	tests := []struct {
		name  string
		other Date
		want  int
	}{
		{name: "same day", other: MustParseDate("2026-01-31"), want: 0},
		{name: "next day", other: MustParseDate("2026-02-01"), want: 1},
		{name: "past", other: MustParseDate("2026-01-01"), want: -30},
		{name: "across year", other: MustParseDate("2027-01-31"), want: 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.DaysUntil(tt.other); got != tt.want {
				t.Errorf("DaysUntil = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDateAddDays(t *testing.T) {
	d := MustParseDate("2026-02-27").AddDays(2)
	if d.String() != "2026-03-01" {
		t.Errorf("AddDays crossed month boundary wrong: got %s", d.String())
	}
	d = MustParseDate("2026-01-01").AddDays(-1)
	if d.String() != "2025-12-31" {
		t.Errorf("negative AddDays: got %s", d.String())
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	type doc struct {
		Expires Date  `json:"expires"`
		Issued  *Date `json:"issued,omitempty"`
	}

	in := doc{Expires: MustParseDate("2026-06-30")}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"expires":"2026-06-30"}` {
		t.Errorf("unexpected JSON: %s", b)
	}

	var out doc
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Expires.Equal(in.Expires) {
		t.Errorf("round trip changed date: %s != %s", out.Expires, in.Expires)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2026-04-01"); err != nil {
		t.Fatalf("scan text: %v", err)
	}
	if d.String() != "2026-04-01" {
		t.Errorf("scan text = %s", d)
	}

	// Timestamps truncate to their calendar day.
	if err := d.Scan("2026-04-01 13:45:00"); err != nil {
		t.Fatalf("scan timestamp: %v", err)
	}
	if d.String() != "2026-04-01" {
		t.Errorf("scan timestamp = %s", d)
	}

	if err := d.Scan(time.Date(2026, 4, 2, 23, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("scan time.Time: %v", err)
	}
	if d.String() != "2026-04-02" {
		t.Errorf("scan time.Time = %s", d)
	}

	if err := d.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !d.IsZero() {
		t.Error("scan nil should produce zero date")
	}
}

func TestWarningLevelFor(t *testing.T) {
	tests := []struct {
		days int
		want WarningLevel
	}{
		{-5, LevelExpired},
		{0, LevelExpired},
		{1, LevelCritical},
		{30, LevelCritical},
		{31, LevelWarning},
		{60, LevelWarning},
		{61, LevelCaution},
		{90, LevelCaution},
		{91, LevelSafe},
		{365, LevelSafe},
	}

	for _, tt := range tests {
		if got := WarningLevelFor(tt.days); got != tt.want {
			t.Errorf("WarningLevelFor(%d) = %s, want %s", tt.days, got, tt.want)
		}
	}
}
