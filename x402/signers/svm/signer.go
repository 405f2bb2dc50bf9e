// Package svm provides a Solana payment signer producing partially signed SPL
// token transfers.
package svm

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Gordian-Labs/tilde-mcp/x402"
	solutil "github.com/Gordian-Labs/tilde-mcp/x402/internal/solana"
)

// blockhashTimeout bounds the RPC round-trip when fetching a recent blockhash.
const blockhashTimeout = 5 * time.Second

// RPCClient is the interface for the Solana RPC operations needed by the
// signer. It exists for dependency injection in tests.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// Signer signs x402 payments on Solana. There is no chain-selection dimension:
// the keypair is the whole story, derived directly from the base58 key.
type Signer struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	network    string
	maxAmount  *big.Int
	rpcClient  RPCClient
}

// Option configures a Signer.
type Option func(*Signer) error

// NewSigner creates a Solana signer from a base58-encoded private key.
func NewSigner(privateKeyBase58 string, opts ...Option) (*Signer, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, x402.ErrInvalidKey
	}

	s := &Signer{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		network:    x402.SolanaMainnet.Network,
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

// WithRPCClient sets a custom RPC client.
func WithRPCClient(client RPCClient) Option {
	return func(s *Signer) error {
		s.rpcClient = client
		return nil
	}
}

// Family returns x402.FamilySolana.
func (s *Signer) Family() x402.ChainFamily {
	return x402.FamilySolana
}

// Network returns the Solana network name.
func (s *Signer) Network() string {
	return s.network
}

// Address returns the signer's public key.
func (s *Signer) Address() solana.PublicKey {
	return s.publicKey
}

// CanSign checks if this signer can satisfy the given payment requirements.
func (s *Signer) CanSign(requirements *x402.PaymentRequirements) bool {
	if requirements == nil {
		return false
	}

	if requirements.Scheme != "" && requirements.Scheme != "exact" {
		return false
	}

	return x402.Classify(requirements.Network) == x402.FamilySolana
}

// Sign creates a partially signed SPL transfer payload for the given
// requirements. The facilitator adds the fee payer signature before broadcast.
func (s *Signer) Sign(requirements *x402.PaymentRequirements) (*x402.PaymentPayload, error) {
	if !s.CanSign(requirements) {
		return nil, x402.ErrNoMatchingRequirement
	}

	amount := new(big.Int)
	if _, ok := amount.SetString(requirements.MaxAmountRequired, 10); !ok {
		return nil, x402.ErrInvalidAmount
	}
	if amount.Sign() <= 0 {
		return nil, x402.ErrInvalidAmount
	}
	if s.maxAmount != nil && amount.Cmp(s.maxAmount) > 0 {
		return nil, x402.ErrAmountExceeded
	}
	if !amount.IsUint64() {
		return nil, x402.ErrAmountExceeded
	}

	mintAddress, err := solana.PublicKeyFromBase58(requirements.Asset)
	if err != nil {
		return nil, fmt.Errorf("invalid mint address: %w", err)
	}

	recipient, err := solana.PublicKeyFromBase58(requirements.PayTo)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	feePayer, err := extractFeePayer(requirements)
	if err != nil {
		return nil, fmt.Errorf("invalid fee payer: %w", err)
	}

	decimals := uint8(x402.SolanaMainnet.Decimals)
	if chain, ok := x402.LookupChain(requirements.Network); ok {
		decimals = uint8(chain.Decimals)
	}

	client := s.rpcClient
	if client == nil {
		rpcURL, err := solutil.RPCURL(requirements.Network)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve RPC URL: %w", err)
		}
		client = rpc.New(rpcURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), blockhashTimeout)
	defer cancel()
	recent, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	txBase64, err := buildPartiallySignedTransfer(
		s.privateKey,
		s.publicKey,
		mintAddress,
		recipient,
		amount.Uint64(),
		decimals,
		feePayer,
		recent.Value.Blockhash,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}

	return &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      "exact",
		Network:     requirements.Network,
		Payload: x402.SVMPayload{
			Transaction: txBase64,
		},
	}, nil
}

// extractFeePayer reads the facilitator fee payer from requirements.Extra.
func extractFeePayer(requirements *x402.PaymentRequirements) (solana.PublicKey, error) {
	if requirements.Extra == nil {
		return solana.PublicKey{}, fmt.Errorf("missing extra field in requirements")
	}

	feePayerStr, ok := requirements.Extra["feePayer"].(string)
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("feePayer not found or not a string in extra field")
	}

	feePayer, err := solana.PublicKeyFromBase58(feePayerStr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid feePayer address: %w", err)
	}

	return feePayer, nil
}

// buildPartiallySignedTransfer creates a partially signed SPL token transfer.
// Only the client signature is present; the fee payer slot stays empty for the
// facilitator to fill.
func buildPartiallySignedTransfer(
	clientPrivateKey solana.PrivateKey,
	clientPublicKey solana.PublicKey,
	mint solana.PublicKey,
	recipient solana.PublicKey,
	amount uint64,
	decimals uint8,
	feePayer solana.PublicKey,
	blockhash solana.Hash,
) (string, error) {
	sourceATA, err := solutil.DeriveAssociatedTokenAddress(clientPublicKey, mint)
	if err != nil {
		return "", fmt.Errorf("failed to find source ATA: %w", err)
	}

	destATA, err := solutil.DeriveAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return "", fmt.Errorf("failed to find destination ATA: %w", err)
	}

	// CreateIdempotent succeeds even when the destination ATA already exists;
	// the fee payer sponsors the rent-exempt balance if it does not.
	createATAInstruction, err := solutil.BuildCreateIdempotentATAInstruction(feePayer, recipient, mint)
	if err != nil {
		return "", fmt.Errorf("failed to build ATA creation instruction: %w", err)
	}

	instructions := []solana.Instruction{
		solutil.BuildSetComputeUnitLimitInstruction(solutil.DefaultComputeUnits),
		solutil.BuildSetComputeUnitPriceInstruction(solutil.DefaultComputeUnitPrice),
		createATAInstruction,
		solutil.BuildTransferCheckedInstruction(sourceATA, mint, destATA, clientPublicKey, amount, decimals),
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(feePayer),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(clientPublicKey) {
			return &clientPrivateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to marshal transaction: %w", err)
	}

	return base64.StdEncoding.EncodeToString(txBytes), nil
}
