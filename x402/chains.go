package x402

import "strings"

// ChainFamily identifies the signing/transaction model a network belongs to.
type ChainFamily int

const (
	// FamilyEVM covers Ethereum-compatible chains (EIP-3009 authorization flow).
	FamilyEVM ChainFamily = iota
	// FamilySolana covers Solana (partially signed SPL transfer flow).
	FamilySolana
)

// String returns a short lowercase name for the family.
func (f ChainFamily) String() string {
	switch f {
	case FamilySolana:
		return "solana"
	default:
		return "evm"
	}
}

// Classify maps a network identifier to its chain family. It is total and
// case-insensitive: the literal "solana" maps to FamilySolana, every other
// value maps to FamilyEVM. Unknown names are deliberately not rejected so new
// EVM chains work without a registry update.
//
// Classify is the single source of truth for family dispatch; the signer
// factory, both invokers, and configuration validation all call it.
func Classify(network string) ChainFamily {
	if strings.EqualFold(network, "solana") {
		return FamilySolana
	}
	return FamilyEVM
}

// ChainConfig holds per-network constants needed to construct payments.
type ChainConfig struct {
	// Network is the plain network name used on the wire (e.g. "base").
	Network string

	// ChainID is the EIP-155 chain ID (zero for non-EVM chains).
	ChainID int64

	// USDCAddress is the official Circle USDC contract or mint address.
	USDCAddress string

	// Decimals is the number of decimal places for USDC (always 6).
	Decimals int

	// EIP3009Name is the EIP-3009 domain parameter "name" (empty for non-EVM chains).
	EIP3009Name string

	// EIP3009Version is the EIP-3009 domain parameter "version" (empty for non-EVM chains).
	EIP3009Version string
}

// Predefined chain configurations - EVM mainnets.
var (
	// BaseMainnet is the configuration for Base mainnet.
	// USDC address and EIP-3009 parameters verified 2025-10-28.
	BaseMainnet = ChainConfig{
		Network:        "base",
		ChainID:        8453,
		USDCAddress:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	// PolygonMainnet is the configuration for Polygon PoS mainnet.
	// USDC address and EIP-3009 parameters verified 2025-10-28.
	PolygonMainnet = ChainConfig{
		Network:        "polygon",
		ChainID:        137,
		USDCAddress:    "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	// AvalancheMainnet is the configuration for Avalanche C-Chain mainnet.
	// USDC address and EIP-3009 parameters verified 2025-10-28.
	AvalancheMainnet = ChainConfig{
		Network:        "avalanche",
		ChainID:        43114,
		USDCAddress:    "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	// EthereumMainnet is the configuration for Ethereum mainnet.
	// USDC address and EIP-3009 parameters verified 2025-10-28.
	EthereumMainnet = ChainConfig{
		Network:        "ethereum",
		ChainID:        1,
		USDCAddress:    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}
)

// Predefined chain configurations - EVM testnets.
var (
	// BaseSepolia is the configuration for Base Sepolia testnet.
	// USDC address and EIP-3009 parameters verified 2025-10-30.
	BaseSepolia = ChainConfig{
		Network:        "base-sepolia",
		ChainID:        84532,
		USDCAddress:    "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}

	// PolygonAmoy is the configuration for Polygon Amoy testnet.
	// USDC address and EIP-3009 parameters verified 2025-10-28.
	PolygonAmoy = ChainConfig{
		Network:        "polygon-amoy",
		ChainID:        80002,
		USDCAddress:    "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}

	// AvalancheFuji is the configuration for Avalanche Fuji testnet.
	// USDC address and EIP-3009 parameters verified 2025-10-28.
	AvalancheFuji = ChainConfig{
		Network:        "avalanche-fuji",
		ChainID:        43113,
		USDCAddress:    "0x5425890298aed601595a70AB815c96711a31Bc65",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	// Sepolia is the configuration for Ethereum Sepolia testnet.
	// USDC address and EIP-3009 parameters verified 2025-10-28.
	Sepolia = ChainConfig{
		Network:        "sepolia",
		ChainID:        11155111,
		USDCAddress:    "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}
)

// Predefined chain configurations - Solana.
var (
	// SolanaMainnet is the configuration for Solana mainnet.
	// USDC mint verified 2025-10-28.
	SolanaMainnet = ChainConfig{
		Network:     "solana",
		USDCAddress: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Decimals:    6,
	}

	// SolanaDevnet is the configuration for Solana devnet.
	// USDC mint verified 2025-10-28.
	SolanaDevnet = ChainConfig{
		Network:     "solana-devnet",
		USDCAddress: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		Decimals:    6,
	}
)

// chainConfigByNetwork maps plain network names to chain configurations.
var chainConfigByNetwork = map[string]ChainConfig{
	// EVM mainnets
	"base":      BaseMainnet,
	"polygon":   PolygonMainnet,
	"avalanche": AvalancheMainnet,
	"ethereum":  EthereumMainnet,
	// EVM testnets
	"base-sepolia":   BaseSepolia,
	"polygon-amoy":   PolygonAmoy,
	"avalanche-fuji": AvalancheFuji,
	"sepolia":        Sepolia,
	// Solana
	"solana":        SolanaMainnet,
	"solana-devnet": SolanaDevnet,
}

// LookupChain returns the chain configuration for a plain network name.
// Lookup is case-insensitive.
func LookupChain(network string) (ChainConfig, bool) {
	config, ok := chainConfigByNetwork[strings.ToLower(network)]
	return config, ok
}
