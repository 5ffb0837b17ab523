package types

import (
	"testing"
	"time"
)

func TestDateOfUsesLocation(t *testing.T) {
	// 23:30 UTC on March 1st is already March 2nd in Tokyo.
	instant := time.Date(2025, time.March, 1, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)

	if got := DateOf(instant, nil); got != NewDate(2025, time.March, 1) {
		t.Errorf("DateOf(UTC) = %s", got)
	}
	if got := DateOf(instant, tokyo); got != NewDate(2025, time.March, 2) {
		t.Errorf("DateOf(JST) = %s", got)
	}
}

func TestDateArithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  Date
		want string
	}{
		{"add day", MustParseDate("2024-02-28").AddDays(1), "2024-02-29"},
		{"add day over year", MustParseDate("2024-12-31").AddDays(1), "2025-01-01"},
		{"subtract day", MustParseDate("2025-03-01").AddDays(-1), "2025-02-28"},
		{"add month", MustParseDate("2025-01-15").AddMonths(1), "2025-02-15"},
		{"add month clamps", MustParseDate("2025-01-31").AddMonths(1), "2025-02-28"},
		{"add month leap", MustParseDate("2024-01-31").AddMonths(1), "2024-02-29"},
		{"add month over year", MustParseDate("2025-12-10").AddMonths(1), "2026-01-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.String() != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestDateCompare(t *testing.T) {
	a := MustParseDate("2025-05-01")
	b := MustParseDate("2025-05-02")

	if !a.Before(b) || a.After(b) {
		t.Error("expected a before b")
	}
	if b.DaysSince(a) != 1 {
		t.Errorf("DaysSince = %d, want 1", b.DaysSince(a))
	}
	if a.DaysSince(MustParseDate("2025-04-01")) != 30 {
		t.Errorf("DaysSince across months = %d, want 30", a.DaysSince(MustParseDate("2025-04-01")))
	}
}

func TestDateText(t *testing.T) {
	d := MustParseDate("2025-07-04")
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var back Date
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != d {
		t.Errorf("got %s, want %s", back, d)
	}

	if _, err := ParseDate("07/04/2025"); err == nil {
		t.Error("expected error for invalid layout")
	}

	opt, err := ParseOptionalDate("")
	if err != nil || opt != nil {
		t.Errorf("ParseOptionalDate(\"\") = %v, %v", opt, err)
	}
	if FormatDate(nil) != "" {
		t.Error("FormatDate(nil) should be empty")
	}
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)

	c.AdvanceDays(2)
	if got := DateOf(c.Now(), nil); got != NewDate(2025, time.January, 3) {
		t.Errorf("after AdvanceDays: %s", got)
	}

	c.Advance(12 * time.Hour)
	if got := DateOf(c.Now(), nil); got != NewDate(2025, time.January, 4) {
		t.Errorf("after Advance: %s", got)
	}
}
