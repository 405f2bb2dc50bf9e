// Package evm provides an EVM payment signer using EIP-3009
// transferWithAuthorization.
package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Gordian-Labs/tilde-mcp/x402"
	"github.com/Gordian-Labs/tilde-mcp/x402/internal/eip3009"
)

// defaultAuthTimeoutSeconds bounds authorization validity when the server
// does not specify one.
const defaultAuthTimeoutSeconds = 60

// Signer signs x402 payments on a single EVM chain. The target chain is
// resolved from the network name at construction, never hardcoded.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chain      x402.ChainConfig
	maxAmount  *big.Int
}

// Option configures a Signer.
type Option func(*Signer) error

// NewSigner creates an EVM signer from a hex private key. The key may carry a
// 0x prefix or not; both forms are accepted. The network name must be a known
// EVM chain.
func NewSigner(network string, privateKeyHex string) (*Signer, error) {
	return NewSignerWithOptions(network, privateKeyHex)
}

// NewSignerWithOptions creates an EVM signer with additional options applied.
func NewSignerWithOptions(network string, privateKeyHex string, opts ...Option) (*Signer, error) {
	if x402.Classify(network) != x402.FamilyEVM {
		return nil, fmt.Errorf("%w: %s is not an EVM network", x402.ErrInvalidNetwork, network)
	}

	chain, ok := x402.LookupChain(network)
	if !ok || chain.ChainID == 0 {
		return nil, fmt.Errorf("%w: %s", x402.ErrInvalidNetwork, network)
	}

	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, x402.ErrInvalidKey
	}

	s := &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chain:      chain,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// WithMaxAmount sets a per-call spending limit in atomic units.
func WithMaxAmount(amount *big.Int) Option {
	return func(s *Signer) error {
		s.maxAmount = amount
		return nil
	}
}

// Family returns x402.FamilyEVM.
func (s *Signer) Family() x402.ChainFamily {
	return x402.FamilyEVM
}

// Network returns the chain's network name.
func (s *Signer) Network() string {
	return s.chain.Network
}

// Address returns the account address derived from the private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// CanSign checks if this signer can satisfy the given payment requirements.
func (s *Signer) CanSign(requirements *x402.PaymentRequirements) bool {
	if requirements == nil {
		return false
	}

	if requirements.Scheme != "" && requirements.Scheme != "exact" {
		return false
	}

	return strings.EqualFold(requirements.Network, s.chain.Network)
}

// Sign creates a signed EIP-3009 payment payload for the given requirements.
func (s *Signer) Sign(requirements *x402.PaymentRequirements) (*x402.PaymentPayload, error) {
	if !s.CanSign(requirements) {
		return nil, x402.ErrNoMatchingRequirement
	}

	amount, ok := new(big.Int).SetString(requirements.MaxAmountRequired, 10)
	if !ok || amount.Sign() < 0 {
		return nil, x402.ErrInvalidAmount
	}

	if s.maxAmount != nil && amount.Cmp(s.maxAmount) > 0 {
		return nil, x402.ErrAmountExceeded
	}

	if !common.IsHexAddress(requirements.PayTo) {
		return nil, fmt.Errorf("%w: invalid payTo address %s", x402.ErrInvalidRequirements, requirements.PayTo)
	}

	tokenAddress := common.HexToAddress(requirements.Asset)
	if requirements.Asset == "" {
		tokenAddress = common.HexToAddress(s.chain.USDCAddress)
	}

	name, version := s.eip3009Params(requirements)

	timeout := requirements.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = defaultAuthTimeoutSeconds
	}

	auth, err := eip3009.CreateAuthorization(
		s.address,
		common.HexToAddress(requirements.PayTo),
		amount,
		timeout,
	)
	if err != nil {
		return nil, err
	}

	signature, err := eip3009.SignAuthorization(s.privateKey, tokenAddress, big.NewInt(s.chain.ChainID), auth, name, version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}

	return &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      "exact",
		Network:     s.chain.Network,
		Payload: x402.EVMPayload{
			Signature: signature,
			Authorization: x402.EVMAuthorization{
				From:        auth.From.Hex(),
				To:          auth.To.Hex(),
				Value:       auth.Value.String(),
				ValidAfter:  auth.ValidAfter.String(),
				ValidBefore: auth.ValidBefore.String(),
				Nonce:       common.BytesToHash(auth.Nonce[:]).Hex(),
			},
		},
	}, nil
}

// eip3009Params resolves the EIP-712 domain name/version from the requirement
// extras, falling back to the chain registry values.
func (s *Signer) eip3009Params(requirements *x402.PaymentRequirements) (name, version string) {
	name = s.chain.EIP3009Name
	version = s.chain.EIP3009Version

	if requirements.Extra == nil {
		return name, version
	}
	if v, ok := requirements.Extra["name"].(string); ok && v != "" {
		name = v
	}
	if v, ok := requirements.Extra["version"].(string); ok && v != "" {
		version = v
	}
	return name, version
}
