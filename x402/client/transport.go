package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Gordian-Labs/tilde-mcp/x402"
	"github.com/Gordian-Labs/tilde-mcp/x402/encoding"
)

// PaymentHeader is the request header carrying the payment proof.
const PaymentHeader = "X-PAYMENT"

// SettlementHeader is the response header carrying the settlement receipt.
const SettlementHeader = "X-PAYMENT-RESPONSE"

// Transport is a RoundTripper that handles x402 payment flows. It wraps a base
// RoundTripper and performs at most one payment retry per request: a 402 on
// the first attempt triggers signing and a single reissue; the second response
// is returned verbatim, even if it is another 402.
//
// Payment selection and signing failures return a *x402.PaymentError carrying
// the 402 status, so callers can distinguish "payment failed" from transport
// errors without inspecting a response.
type Transport struct {
	// Base is the underlying RoundTripper.
	Base http.RoundTripper

	// Signer produces payment proofs for this transport's chain family.
	Signer x402.Signer

	// OnPaymentAttempt is called when a payment attempt is made.
	OnPaymentAttempt x402.PaymentCallback

	// OnPaymentSuccess is called when a payment succeeds.
	OnPaymentSuccess x402.PaymentCallback

	// OnPaymentFailure is called when a payment fails.
	OnPaymentFailure x402.PaymentCallback
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// Buffer the outgoing body up front so the retry can replay it
	// byte-identically. The original body may not be rewindable.
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = b
	}

	resp, err := base.RoundTrip(cloneRequest(req, body))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	challenge, err := parsePaymentRequired(resp)
	if err != nil {
		return nil, err
	}

	requirement := t.selectRequirement(challenge.Accepts)
	if requirement == nil {
		perr := x402.NewPaymentError(
			x402.ErrCodeNoMatchingRequirement,
			"no accepted payment method matches signer family "+t.Signer.Family().String(),
			x402.ErrNoMatchingRequirement,
		).WithDetails("url", req.URL.String())
		t.emitFailure(req, perr, 0)
		return nil, perr
	}

	startTime := time.Now()
	t.emit(t.OnPaymentAttempt, x402.PaymentEvent{
		Type:      x402.PaymentEventAttempt,
		Timestamp: startTime,
		URL:       req.URL.String(),
		Network:   requirement.Network,
		Scheme:    requirement.Scheme,
		Amount:    requirement.MaxAmountRequired,
		Asset:     requirement.Asset,
		Recipient: requirement.PayTo,
	})

	payment, err := t.Signer.Sign(requirement)
	if err != nil {
		perr := x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to sign payment", err)
		t.emitFailure(req, perr, time.Since(startTime))
		return nil, perr
	}

	header, err := encoding.EncodePayment(*payment)
	if err != nil {
		perr := x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to build payment header", err)
		t.emitFailure(req, perr, time.Since(startTime))
		return nil, perr
	}

	retry := cloneRequest(req, body)
	retry.Header.Set(PaymentHeader, header)

	respRetry, err := base.RoundTrip(retry)
	duration := time.Since(startTime)
	if err != nil {
		t.emitFailure(req, err, duration)
		return nil, err
	}

	if respRetry.StatusCode < 300 {
		event := x402.PaymentEvent{
			Type:      x402.PaymentEventSuccess,
			Timestamp: time.Now(),
			URL:       req.URL.String(),
			Network:   requirement.Network,
			Scheme:    requirement.Scheme,
			Amount:    requirement.MaxAmountRequired,
			Asset:     requirement.Asset,
			Recipient: requirement.PayTo,
			Duration:  duration,
		}
		if settlement := GetSettlement(respRetry); settlement != nil {
			event.Transaction = settlement.Transaction
			event.Payer = settlement.Payer
		}
		t.emit(t.OnPaymentSuccess, event)
	}

	return respRetry, nil
}

// selectRequirement picks the first accepted payment method whose network
// belongs to the signer's chain family and which the signer agrees to handle.
func (t *Transport) selectRequirement(accepts []x402.PaymentRequirements) *x402.PaymentRequirements {
	for i := range accepts {
		req := &accepts[i]
		if x402.Classify(req.Network) != t.Signer.Family() {
			continue
		}
		if t.Signer.CanSign(req) {
			return req
		}
	}
	return nil
}

func (t *Transport) emit(cb x402.PaymentCallback, event x402.PaymentEvent) {
	if cb != nil {
		cb(event)
	}
}

func (t *Transport) emitFailure(req *http.Request, err error, duration time.Duration) {
	t.emit(t.OnPaymentFailure, x402.PaymentEvent{
		Type:      x402.PaymentEventFailure,
		Timestamp: time.Now(),
		URL:       req.URL.String(),
		Error:     err,
		Duration:  duration,
	})
}

// cloneRequest clones req and installs a fresh reader over the buffered body
// so every attempt sends identical bytes.
func cloneRequest(req *http.Request, body []byte) *http.Request {
	clone := req.Clone(req.Context())
	if body == nil {
		clone.Body = nil
		return clone
	}
	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.ContentLength = int64(len(body))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return clone
}

// parsePaymentRequired decodes the payment requirements from a 402 response
// body and closes it.
func parsePaymentRequired(resp *http.Response) (*x402.PaymentRequired, error) {
	defer resp.Body.Close()

	var challenge x402.PaymentRequired
	if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "failed to decode payment requirements", err)
	}

	if len(challenge.Accepts) == 0 {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "no payment requirements in response", x402.ErrInvalidRequirements)
	}

	return &challenge, nil
}

// GetSettlement extracts settlement information from a paid response. Returns
// nil if the header is absent or cannot be parsed.
func GetSettlement(resp *http.Response) *x402.SettleResponse {
	headerValue := resp.Header.Get(SettlementHeader)
	if headerValue == "" {
		return nil
	}
	settlement, err := encoding.DecodeSettlement(headerValue)
	if err != nil {
		return nil
	}
	return &settlement
}
