package validation

import (
	"testing"

	"github.com/Gordian-Labs/tilde-mcp/x402"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		ok     bool
	}{
		{"0", true},
		{"10000", true},
		{"123456789012345678901234567890", true},
		{"-1", false},
		{"1.5", false},
		{"", false},
		{"abc", false},
	}

	for _, tt := range tests {
		err := ValidateAmount(tt.amount)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateAmount(%q) error = %v, ok = %v", tt.amount, err, tt.ok)
		}
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		network string
		ok      bool
	}{
		{"evm address", "0x209693Bc6afc0C5328bA36FaF03C514EF312287C", "base", true},
		{"evm address on unknown evm chain", "0x209693Bc6afc0C5328bA36FaF03C514EF312287C", "some-new-chain", true},
		{"evm too short", "0x209693", "base", false},
		{"evm no prefix", "209693Bc6afc0C5328bA36FaF03C514EF312287C", "base", false},
		{"solana address", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "solana", true},
		{"solana bad chars", "0OIl+/=EPjFWdd5AufqSSqeM2qN1xzybapC8G4wE", "solana", false},
		{"solana address on evm network", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "base", false},
		{"empty", "", "base", false},
	}

	for _, tt := range tests {
		err := ValidateAddress(tt.address, tt.network)
		if (err == nil) != tt.ok {
			t.Errorf("%s: error = %v, ok = %v", tt.name, err, tt.ok)
		}
	}
}

func TestValidateResourceURL(t *testing.T) {
	tests := []struct {
		resource string
		ok       bool
	}{
		{"https://api.example.com/price", true},
		{"http://localhost:8080/data", true},
		{"ftp://example.com/file", false},
		{"/relative/path", false},
		{"", false},
	}

	for _, tt := range tests {
		err := ValidateResourceURL(tt.resource)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateResourceURL(%q) error = %v, ok = %v", tt.resource, err, tt.ok)
		}
	}
}

func TestValidateDescriptor(t *testing.T) {
	valid := x402.EndpointDescriptor{
		Resource: "https://api.example.com/price",
		Accepts: []x402.PaymentRequirements{
			{
				Network:           "base",
				PayTo:             "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
				MaxAmountRequired: "1000",
			},
		},
	}
	if err := ValidateDescriptor(&valid); err != nil {
		t.Fatalf("Expected valid descriptor, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*x402.EndpointDescriptor)
	}{
		{"relative resource", func(d *x402.EndpointDescriptor) { d.Resource = "/price" }},
		{"no accepts", func(d *x402.EndpointDescriptor) { d.Accepts = nil }},
		{"empty network", func(d *x402.EndpointDescriptor) { d.Accepts[0].Network = "" }},
		{"wrong family payTo", func(d *x402.EndpointDescriptor) { d.Accepts[0].Network = "solana" }},
		{"bad amount", func(d *x402.EndpointDescriptor) { d.Accepts[0].MaxAmountRequired = "lots" }},
	}

	for _, tt := range tests {
		d := valid
		d.Accepts = append([]x402.PaymentRequirements(nil), valid.Accepts...)
		tt.mutate(&d)
		if err := ValidateDescriptor(&d); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
