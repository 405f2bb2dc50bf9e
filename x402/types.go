// Package x402 implements the buyer side of the x402 payment protocol:
// chain-family classification, payment signers for EVM and Solana networks,
// and the wire types exchanged during an HTTP 402 challenge-response cycle.
package x402

import (
	"github.com/shopspring/decimal"
)

// X402Version is the protocol version spoken by this module.
const X402Version = 1

// PaymentRequirements defines a single acceptable payment option. Resource
// servers list these in the "accepts" array of a 402 response, and endpoint
// descriptors carry the same shape in their accepted-methods list.
type PaymentRequirements struct {
	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme,omitempty"`

	// Network is the blockchain network name (e.g., "base", "solana").
	Network string `json:"network"`

	// MaxAmountRequired is the payment amount in atomic units (e.g., 10000 = 0.01 USDC).
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Resource is the URL of the protected resource.
	Resource string `json:"resource,omitempty"`

	// Description is an optional human-readable description.
	Description string `json:"description,omitempty"`

	// MimeType is the content type of the protected resource.
	MimeType string `json:"mimeType,omitempty"`

	// PayTo is the recipient address for the payment.
	PayTo string `json:"payTo"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds,omitempty"`

	// Asset is the token contract address (EVM) or mint address (Solana).
	Asset string `json:"asset"`

	// Extra contains scheme-specific additional data (EIP-3009 domain
	// parameters for EVM, feePayer for Solana).
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequired is the 402 response body sent by resource servers.
type PaymentRequired struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// Error is a human-readable error message.
	Error string `json:"error,omitempty"`

	// Accepts is an array of payment options the server will accept.
	Accepts []PaymentRequirements `json:"accepts"`
}

// PaymentPayload is the payment proof attached to a retried request via the
// X-PAYMENT header. The Payload field is blockchain-specific and opaque to
// everything outside the signer that produced it.
type PaymentPayload struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme the proof was created for.
	Scheme string `json:"scheme"`

	// Network is the network the proof was created for.
	Network string `json:"network"`

	// Payload contains the blockchain-specific signed payment data.
	// For EVM: EVMPayload with signature and authorization.
	// For Solana: SVMPayload with a partially signed transaction.
	Payload interface{} `json:"payload"`
}

// EVMPayload contains EIP-3009 authorization data for EVM payments.
type EVMPayload struct {
	// Signature is the hex-encoded ECDSA signature.
	Signature string `json:"signature"`

	// Authorization contains the EIP-3009 transferWithAuthorization parameters.
	Authorization EVMAuthorization `json:"authorization"`
}

// EVMAuthorization contains EIP-3009 transferWithAuthorization parameters.
type EVMAuthorization struct {
	// From is the payer's address.
	From string `json:"from"`

	// To is the recipient's address.
	To string `json:"to"`

	// Value is the payment amount in atomic units (wei).
	Value string `json:"value"`

	// ValidAfter is the unix timestamp after which the authorization is valid.
	ValidAfter string `json:"validAfter"`

	// ValidBefore is the unix timestamp before which the authorization is valid.
	ValidBefore string `json:"validBefore"`

	// Nonce is a unique 32-byte hex string to prevent replay attacks.
	Nonce string `json:"nonce"`
}

// SVMPayload contains a partially signed Solana transaction.
type SVMPayload struct {
	// Transaction is the base64-encoded partially signed Solana transaction.
	// The client signs with their private key; the facilitator adds the fee
	// payer signature before broadcast.
	Transaction string `json:"transaction"`
}

// SettleResponse is the settlement receipt carried in the X-PAYMENT-RESPONSE
// header of a paid response.
type SettleResponse struct {
	// Success indicates whether the payment was successfully settled.
	Success bool `json:"success"`

	// ErrorReason provides a short error code if the payment failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// Transaction is the blockchain transaction hash.
	Transaction string `json:"transaction,omitempty"`

	// Network is the blockchain network where the payment was settled.
	Network string `json:"network,omitempty"`

	// Payer is the address that made the payment.
	Payer string `json:"payer,omitempty"`
}

// EndpointDescriptor describes a callable machine-payable resource, as
// returned by the discovery service. Descriptors are read-only inputs: the
// first entry of Accepts is authoritative for signer selection.
type EndpointDescriptor struct {
	// Resource is the absolute URL of the endpoint.
	Resource string `json:"resource"`

	// Accepts is the ordered list of payment methods the endpoint accepts.
	Accepts []PaymentRequirements `json:"accepts"`
}

// FormatAtomicAmount renders an atomic-unit amount string as a decimal display
// amount ("10000" with 6 decimals becomes "0.01"). Invalid input is returned
// unchanged; this is a logging/display helper, not a validator.
func FormatAtomicAmount(amount string, decimals int) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.Shift(int32(-decimals)).String()
}
