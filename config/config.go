// Package config loads and validates the server configuration from the
// environment. Loading never terminates the process; it returns the validated
// configuration or the list of problems, and the caller decides what to do.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Gordian-Labs/tilde-mcp/x402"
)

// Environment variable names.
const (
	EnvEVMPrivateKey = "TILDE_EVM_PRIVATE_KEY"
	EnvSVMPrivateKey = "TILDE_SVM_PRIVATE_KEY"
	EnvNetworks      = "TILDE_NETWORKS"
	EnvAssets        = "TILDE_ASSETS"
	EnvFacilitators  = "TILDE_FACILITATORS"
	EnvMaxResults    = "TILDE_MAX_RESULTS"
	EnvSearchURL     = "TILDE_SEARCH_URL"
	EnvTimeout       = "TILDE_TIMEOUT"
	EnvLogLevel      = "TILDE_LOG_LEVEL"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultMaxResults = 20
	DefaultSearchURL  = "https://search.x402.dev"
	DefaultTimeout    = 60 * time.Second
	DefaultNetwork    = "base"
)

// Config holds the validated server configuration. Private keys are kept as
// raw strings and handed to the signer factory; they are never logged.
type Config struct {
	// EVMPrivateKey is the hex-encoded EVM private key. Optional if a
	// Solana key is configured.
	EVMPrivateKey string

	// SVMPrivateKey is the base58-encoded Solana private key. Optional if
	// an EVM key is configured.
	SVMPrivateKey string

	// Networks is the ordered list of supported networks. The first entry
	// selects the chain the search tool pays on.
	Networks []string `validate:"required,min=1,dive,min=1"`

	// Assets and Facilitators are optional search filter defaults.
	Assets       []string
	Facilitators []string

	// MaxResults caps numResults on search requests.
	MaxResults int `validate:"gt=0"`

	// SearchURL is the origin of the search service.
	SearchURL string `validate:"required,url"`

	// Timeout bounds each outgoing request, payment retry included.
	Timeout time.Duration `validate:"gt=0"`

	// LogLevel is the zap level name. Empty means info.
	LogLevel string
}

// MissingKeyError reports that no private key is configured for a chain
// family. The message names the variable to set.
type MissingKeyError struct {
	Family x402.ChainFamily
	EnvVar string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("no private key configured for %s networks: set %s", e.Family, e.EnvVar)
}

// KeyFor returns the raw private key for the given chain family, or a
// *MissingKeyError if it is not configured.
func (c *Config) KeyFor(family x402.ChainFamily) (string, error) {
	switch family {
	case x402.FamilySolana:
		if c.SVMPrivateKey == "" {
			return "", &MissingKeyError{Family: family, EnvVar: EnvSVMPrivateKey}
		}
		return c.SVMPrivateKey, nil
	default:
		if c.EVMPrivateKey == "" {
			return "", &MissingKeyError{Family: family, EnvVar: EnvEVMPrivateKey}
		}
		return c.EVMPrivateKey, nil
	}
}

// Load reads configuration from a .env file (if present) and the process
// environment.
func Load() (*Config, []error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()
	return FromEnvironment(os.Getenv)
}

// FromEnvironment builds a Config from the given lookup function and
// validates it. It returns every problem found, not just the first.
func FromEnvironment(lookup func(string) string) (*Config, []error) {
	var errs []error

	cfg := &Config{
		EVMPrivateKey: strings.TrimSpace(lookup(EnvEVMPrivateKey)),
		SVMPrivateKey: strings.TrimSpace(lookup(EnvSVMPrivateKey)),
		Networks:      splitList(lookup(EnvNetworks)),
		Assets:        splitList(lookup(EnvAssets)),
		Facilitators:  splitList(lookup(EnvFacilitators)),
		MaxResults:    DefaultMaxResults,
		SearchURL:     DefaultSearchURL,
		Timeout:       DefaultTimeout,
		LogLevel:      strings.TrimSpace(lookup(EnvLogLevel)),
	}

	if len(cfg.Networks) == 0 {
		cfg.Networks = []string{DefaultNetwork}
	}

	if raw := strings.TrimSpace(lookup(EnvMaxResults)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive integer, got %q", EnvMaxResults, raw))
		} else {
			cfg.MaxResults = n
		}
	}

	if raw := strings.TrimSpace(lookup(EnvSearchURL)); raw != "" {
		cfg.SearchURL = raw
	}

	if raw := strings.TrimSpace(lookup(EnvTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration, got %q", EnvTimeout, raw))
		} else {
			cfg.Timeout = d
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, verr := range verrs {
				errs = append(errs, fmt.Errorf("invalid configuration field %s: %s", verr.Field(), verr.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if cfg.EVMPrivateKey == "" && cfg.SVMPrivateKey == "" {
		errs = append(errs, fmt.Errorf("at least one private key is required: set %s or %s", EnvEVMPrivateKey, EnvSVMPrivateKey))
	} else if _, err := cfg.KeyFor(x402.Classify(cfg.Networks[0])); err != nil {
		errs = append(errs, fmt.Errorf("first supported network %q is unusable: %w", cfg.Networks[0], err))
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return cfg, nil
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
