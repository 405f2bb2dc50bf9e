// Package validation provides validation for x402 payment data and endpoint
// descriptors before any network I/O happens.
package validation

import (
	"fmt"
	"math/big"
	"net/url"
	"regexp"

	"github.com/Gordian-Labs/tilde-mcp/x402"
)

var (
	// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars)
	evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

	// solanaAddressRegex matches Solana base58 addresses (32-44 chars, base58 charset)
	solanaAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// ValidateAmount validates that an amount string is a valid non-negative
// integer in atomic units.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}

	amt, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount format: %s", amount)
	}

	if amt.Sign() < 0 {
		return fmt.Errorf("amount cannot be negative, got: %s", amount)
	}

	return nil
}

// ValidateAddress validates an address using the network's chain family to
// pick the format rules.
func ValidateAddress(address string, network string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch x402.Classify(network) {
	case x402.FamilySolana:
		if !solanaAddressRegex.MatchString(address) {
			return fmt.Errorf("invalid Solana address format: %s (expected base58, 32-44 characters)", address)
		}
	default:
		if !evmAddressRegex.MatchString(address) {
			return fmt.Errorf("invalid EVM address format: %s (expected 0x followed by 40 hex characters)", address)
		}
	}

	return nil
}

// ValidateResourceURL validates that a resource URL is absolute http(s).
func ValidateResourceURL(resource string) error {
	if resource == "" {
		return fmt.Errorf("resource URL cannot be empty")
	}

	u, err := url.Parse(resource)
	if err != nil {
		return fmt.Errorf("invalid resource URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("resource URL must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("resource URL must be absolute: %s", resource)
	}

	return nil
}

// ValidateDescriptor validates an endpoint descriptor before it is used to
// build a signer and issue a request. The first accepted method is what signer
// selection will read, so its fields get the full checks; later entries only
// need to be structurally sound.
func ValidateDescriptor(descriptor *x402.EndpointDescriptor) error {
	if descriptor == nil {
		return fmt.Errorf("endpoint descriptor is nil")
	}

	if err := ValidateResourceURL(descriptor.Resource); err != nil {
		return err
	}

	if len(descriptor.Accepts) == 0 {
		return fmt.Errorf("endpoint has no accepted payment methods")
	}

	first := descriptor.Accepts[0]
	if first.Network == "" {
		return fmt.Errorf("accepted payment method has no network")
	}
	if err := ValidateAddress(first.PayTo, first.Network); err != nil {
		return fmt.Errorf("payTo: %w", err)
	}
	if err := ValidateAmount(first.MaxAmountRequired); err != nil {
		return fmt.Errorf("maxAmountRequired: %w", err)
	}

	return nil
}
