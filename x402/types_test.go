package x402

import (
	"encoding/json"
	"testing"
)

func TestFormatAtomicAmount(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
	}{
		{"10000", 6, "0.01"},
		{"1000000", 6, "1"},
		{"1500000", 6, "1.5"},
		{"1", 6, "0.000001"},
		{"0", 6, "0"},
		{"12345", 0, "12345"},
		{"not-a-number", 6, "not-a-number"},
	}

	for _, tt := range tests {
		if got := FormatAtomicAmount(tt.amount, tt.decimals); got != tt.want {
			t.Errorf("FormatAtomicAmount(%q, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
		}
	}
}

func TestPaymentRequirementsJSON(t *testing.T) {
	raw := `{
		"scheme": "exact",
		"network": "base",
		"maxAmountRequired": "10000",
		"resource": "https://api.example.com/price",
		"payTo": "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
		"maxTimeoutSeconds": 60,
		"asset": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		"extra": {"name": "USD Coin", "version": "2"}
	}`

	var req PaymentRequirements
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if req.Network != "base" || req.MaxAmountRequired != "10000" {
		t.Errorf("Unexpected requirement: %+v", req)
	}
	if name, _ := req.Extra["name"].(string); name != "USD Coin" {
		t.Errorf("Expected extra.name, got %v", req.Extra)
	}
}
