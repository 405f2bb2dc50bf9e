package x402

// Signer creates signed payment payloads for one blockchain network. A signer
// is an explicit family-tagged capability: the payment client dispatches on
// Family rather than runtime inspection of the implementation.
//
// Signers are created fresh per invocation (or once at startup for the search
// path), are immutable after construction, and hold no cross-call state.
type Signer interface {
	// Family returns the chain family this signer belongs to.
	Family() ChainFamily

	// Network returns the network name this signer pays on (e.g., "base").
	Network() string

	// CanSign checks if this signer can satisfy the given payment requirements.
	CanSign(requirements *PaymentRequirements) bool

	// Sign creates a signed PaymentPayload for the given requirements.
	// Returns an error if signing fails or the payment exceeds configured limits.
	Sign(requirements *PaymentRequirements) (*PaymentPayload, error)
}
