// Package client provides an HTTP client that transparently completes x402
// payments. A request that comes back 402 is signed and reissued exactly
// once; everything else passes through untouched.
package client

import (
	"net/http"
	"time"

	"github.com/Gordian-Labs/tilde-mcp/x402"
)

// Option configures a Client.
type Option func(*Client)

// Client wraps http.Client with x402 payment handling.
type Client struct {
	*http.Client
}

// New creates a payment-capable HTTP client backed by the given signer.
//
// The base transport is a fresh clone of http.DefaultTransport with
// compression disabled, so the buffered body replayed on the payment retry is
// byte-identical to the probe and no decompression state leaks between the
// two attempts. Client.Timeout bounds the whole exchange, probe and paid
// retry together.
func New(signer x402.Signer, opts ...Option) *Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DisableCompression = true

	c := &Client{
		Client: &http.Client{
			Transport: &Transport{
				Base:   base,
				Signer: signer,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the overall deadline for a request, covering both the
// initial attempt and the payment retry.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.Client.Timeout = d
	}
}

// WithBaseTransport replaces the underlying RoundTripper. The replacement is
// used as-is; callers who need compression disabled must configure it
// themselves.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.paymentTransport().Base = rt
	}
}

// WithPaymentCallbacks registers observers for payment attempts, successes,
// and failures. Any of the callbacks may be nil.
func WithPaymentCallbacks(onAttempt, onSuccess, onFailure x402.PaymentCallback) Option {
	return func(c *Client) {
		t := c.paymentTransport()
		t.OnPaymentAttempt = onAttempt
		t.OnPaymentSuccess = onSuccess
		t.OnPaymentFailure = onFailure
	}
}

func (c *Client) paymentTransport() *Transport {
	return c.Client.Transport.(*Transport)
}
