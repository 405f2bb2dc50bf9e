// Package signers constructs family-specific payment signers. It is the only
// place that maps a ChainFamily to a concrete signer implementation; callers
// dispatch through here so EVM/Solana selection stays in one spot.
package signers

import (
	"github.com/Gordian-Labs/tilde-mcp/x402"
	"github.com/Gordian-Labs/tilde-mcp/x402/signers/evm"
	"github.com/Gordian-Labs/tilde-mcp/x402/signers/svm"
)

// New creates a signer for the given chain family. For EVM families the
// network name selects the target chain (ID, USDC asset, EIP-3009 domain)
// from the chain registry; for Solana the network parameter is not consulted.
// Malformed key material fails with x402.ErrInvalidKey.
func New(family x402.ChainFamily, rawKey string, network string) (x402.Signer, error) {
	switch family {
	case x402.FamilySolana:
		return svm.NewSigner(rawKey)
	default:
		return evm.NewSigner(network, rawKey)
	}
}
