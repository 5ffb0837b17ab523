package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/rewards/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TransactionID", id.NewTransactionID, "ctxn_"},
		{"SubscriptionID", id.NewSubscriptionID, "usub_"},
		{"AdImpressionID", id.NewAdImpressionID, "adimp_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn()
			if !strings.HasPrefix(got.String(), tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got.String())
			}
			if got.IsNil() {
				t.Error("freshly generated ID should not be nil")
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		id      id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"TransactionID", id.NewTransactionID(), id.ParseTransactionID},
		{"SubscriptionID", id.NewSubscriptionID(), id.ParseSubscriptionID},
		{"AdImpressionID", id.NewAdImpressionID(), id.ParseAdImpressionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := tt.parseFn(tt.id.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != tt.id.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), tt.id.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseTransactionID rejects usub_", id.NewSubscriptionID().String(), id.ParseTransactionID},
		{"ParseSubscriptionID rejects adimp_", id.NewAdImpressionID().String(), id.ParseSubscriptionID},
		{"ParseAdImpressionID rejects ctxn_", id.NewTransactionID().String(), id.ParseAdImpressionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestEncodings(t *testing.T) {
	tests := []struct {
		name   string
		encode func(id.ID) (any, error)
		decode func(*id.ID, any) error
	}{
		{
			name:   "text",
			encode: func(i id.ID) (any, error) { return i.MarshalText() },
			decode: func(i *id.ID, v any) error { return i.UnmarshalText(v.([]byte)) },
		},
		{
			name:   "sql",
			encode: func(i id.ID) (any, error) { return i.Value() },
			decode: func(i *id.ID, v any) error { return i.Scan(v) },
		},
		{
			name: "json",
			encode: func(i id.ID) (any, error) {
				return json.Marshal(struct {
					ID id.ID `json:"id"`
				}{i})
			},
			decode: func(i *id.ID, v any) error {
				var out struct {
					ID id.ID `json:"id"`
				}
				if err := json.Unmarshal(v.([]byte), &out); err != nil {
					return err
				}
				*i = out.ID
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, in := range []id.ID{id.NewTransactionID(), id.NewAdImpressionID(), id.Nil} {
				enc, err := tt.encode(in)
				if err != nil {
					t.Fatalf("encode %q: %v", in, err)
				}
				var out id.ID
				if err := tt.decode(&out, enc); err != nil {
					t.Fatalf("decode %q: %v", in, err)
				}
				if out.String() != in.String() || out.IsNil() != in.IsNil() {
					t.Errorf("got %q, want %q", out, in)
				}
			}
		})
	}
}

func TestScanRejectsNumbers(t *testing.T) {
	var scanned id.ID
	if err := scanned.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		s := id.NewTransactionID().String()
		if seen[s] {
			t.Fatalf("duplicate transaction id %q", s)
		}
		seen[s] = true
	}
}
