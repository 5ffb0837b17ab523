package premium

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want Duration
		ok   bool
	}{
		{"", Monthly, true},
		{"monthly", Monthly, true},
		{"YEARLY", Yearly, true},
		{"weekly", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDuration(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDuration(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestUpgrade(t *testing.T) {
	now := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	m := NewMembership("u1", now)

	if m.ActiveAt(now) {
		t.Fatal("new membership should not be premium")
	}

	m.Upgrade(Monthly, now)
	if !m.ActiveAt(now) {
		t.Fatal("expected premium after upgrade")
	}
	if want := now.Add(30 * 24 * time.Hour); !m.ExpiresAt.Equal(want) {
		t.Errorf("expires = %v, want %v", m.ExpiresAt, want)
	}

	// Upgrading again before expiry extends the current period.
	m.Upgrade(Yearly, now.Add(24*time.Hour))
	if want := now.Add((30 + 365) * 24 * time.Hour); !m.ExpiresAt.Equal(want) {
		t.Errorf("extended expires = %v, want %v", m.ExpiresAt, want)
	}

	if m.ActiveAt(now.Add(400 * 24 * time.Hour)) {
		t.Error("membership should lapse after expiry")
	}
}

func TestActiveAtWithoutExpiry(t *testing.T) {
	m := &Membership{Premium: true}
	if !m.ActiveAt(time.Now()) {
		t.Error("premium without expiry should be active")
	}

	var nilMembership *Membership
	if nilMembership.ActiveAt(time.Now()) {
		t.Error("nil membership should not be active")
	}
}
