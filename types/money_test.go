package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyString(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		display string
	}{
		{"USD", USD(999), "$9.99"},
		{"EUR", EUR(1499), "€14.99"},
		{"GBP", GBP(500), "£5.00"},
		{"Zero", Zero("USD"), "$0.00"},
		{"JPY no decimals", Cents(1200, "JPY"), "¥1200"},
		{"Unknown currency", Cents(1000, "chf"), "CHF 10.00"},
		{"Negative", USD(-250), "$-2.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.String(); got != tt.display {
				t.Errorf("String() = %q, want %q", got, tt.display)
			}
		})
	}
}

func TestMoneyCompare(t *testing.T) {
	tests := []struct {
		a, b Money
		want int
	}{
		{USD(0), USD(999), -1},
		{USD(1999), USD(999), 1},
		{USD(999), USD(999), 0},
		{EUR(999), USD(999), -1},
	}

	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(USD(999))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["display"] != "$9.99" {
		t.Errorf("display = %v, want $9.99", raw["display"])
	}

	var back Money
	if err := json.Unmarshal([]byte(`{"amount":1499,"currency":"EUR"}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(EUR(1499)) {
		t.Errorf("got %+v, want %+v", back, EUR(1499))
	}
}
