package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gordian-Labs/tilde-mcp/x402"
	"github.com/Gordian-Labs/tilde-mcp/x402/encoding"
)

// mockSigner implements x402.Signer for testing.
type mockSigner struct {
	family   x402.ChainFamily
	network  string
	signFunc func(*x402.PaymentRequirements) (*x402.PaymentPayload, error)
}

func (m *mockSigner) Family() x402.ChainFamily { return m.family }
func (m *mockSigner) Network() string          { return m.network }
func (m *mockSigner) CanSign(req *x402.PaymentRequirements) bool {
	return req != nil && strings.EqualFold(req.Network, m.network)
}
func (m *mockSigner) Sign(req *x402.PaymentRequirements) (*x402.PaymentPayload, error) {
	if m.signFunc != nil {
		return m.signFunc(req)
	}
	return &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      "exact",
		Network:     req.Network,
		Payload:     map[string]interface{}{"signature": "0xmocksig"},
	}, nil
}

func baseSigner() *mockSigner {
	return &mockSigner{family: x402.FamilyEVM, network: "base"}
}

func challenge() x402.PaymentRequired {
	return x402.PaymentRequired{
		X402Version: x402.X402Version,
		Error:       "Payment required",
		Accepts: []x402.PaymentRequirements{
			{
				Scheme:            "exact",
				Network:           "base",
				Asset:             "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
				PayTo:             "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
				MaxAmountRequired: "10000",
				MaxTimeoutSeconds: 60,
			},
		},
	}
}

func write402(w http.ResponseWriter, c x402.PaymentRequired) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(c)
}

func TestClient_NoPaymentRequired(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := New(baseSigner())
	resp, err := c.Get(server.URL + "/api/data")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("Expected 1 request, got %d", n)
	}
}

func TestClient_PaysAndRetriesOnce(t *testing.T) {
	var attempts int32
	var replayedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&attempts, 1)
		if count == 1 {
			write402(w, challenge())
			return
		}

		header := r.Header.Get(PaymentHeader)
		if header == "" {
			t.Error("Expected X-PAYMENT header on retry")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payment, err := encoding.DecodePayment(header)
		if err != nil {
			t.Errorf("Failed to decode payment header: %v", err)
		} else if payment.Network != "base" {
			t.Errorf("Expected base payment, got %s", payment.Network)
		}

		replayedBody, _ = io.ReadAll(r.Body)

		settlement := x402.SettleResponse{Success: true, Transaction: "0xabc", Network: "base"}
		encoded, _ := encoding.EncodeSettlement(settlement)
		w.Header().Set(SettlementHeader, encoded)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"paid":true}`))
	}))
	defer server.Close()

	body := []byte(`{"q":"price of ETH"}`)
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/data", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	c := New(baseSigner())
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Errorf("Expected exactly 2 requests, got %d", n)
	}
	if !bytes.Equal(replayedBody, body) {
		t.Errorf("Retry body %q differs from original %q", replayedBody, body)
	}
}

func TestClient_SecondChallengeReturnedVerbatim(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		write402(w, challenge())
	}))
	defer server.Close()

	c := New(baseSigner())
	resp, err := c.Get(server.URL + "/api/data")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()

	// No third attempt: the second 402 comes back as the final response.
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("Expected status 402, got %d", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Errorf("Expected exactly 2 requests, got %d", n)
	}
}

func TestClient_FamilyMismatch(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		write402(w, challenge())
	}))
	defer server.Close()

	signer := &mockSigner{family: x402.FamilySolana, network: "solana"}
	c := New(signer)
	_, err := c.Get(server.URL + "/api/data")
	if err == nil {
		t.Fatal("Expected error for family mismatch")
	}

	var perr *x402.PaymentError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *x402.PaymentError, got %T: %v", err, err)
	}
	if perr.Code != x402.ErrCodeNoMatchingRequirement {
		t.Errorf("Expected NO_MATCHING_REQUIREMENT, got %s", perr.Code)
	}
	if perr.Status != http.StatusPaymentRequired {
		t.Errorf("Expected status 402 on error, got %d", perr.Status)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("Expected 1 request, got %d", n)
	}
}

func TestClient_SigningFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		write402(w, challenge())
	}))
	defer server.Close()

	signer := baseSigner()
	signer.signFunc = func(*x402.PaymentRequirements) (*x402.PaymentPayload, error) {
		return nil, x402.ErrAmountExceeded
	}

	c := New(signer)
	_, err := c.Get(server.URL + "/api/data")

	var perr *x402.PaymentError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *x402.PaymentError, got %T: %v", err, err)
	}
	if perr.Code != x402.ErrCodeSigningFailed {
		t.Errorf("Expected SIGNING_FAILED, got %s", perr.Code)
	}
	if !errors.Is(err, x402.ErrAmountExceeded) {
		t.Error("Expected underlying ErrAmountExceeded to be preserved")
	}
}

func TestClient_EmptyAccepts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		write402(w, x402.PaymentRequired{X402Version: x402.X402Version})
	}))
	defer server.Close()

	c := New(baseSigner())
	_, err := c.Get(server.URL + "/api/data")

	var perr *x402.PaymentError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *x402.PaymentError, got %T: %v", err, err)
	}
	if perr.Code != x402.ErrCodeInvalidRequirements {
		t.Errorf("Expected INVALID_REQUIREMENTS, got %s", perr.Code)
	}
}

func TestClient_PaymentCallbacks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(PaymentHeader) == "" {
			write402(w, challenge())
			return
		}
		settlement := x402.SettleResponse{Success: true, Transaction: "0xdeadbeef", Network: "base", Payer: "0xPayer"}
		encoded, _ := encoding.EncodeSettlement(settlement)
		w.Header().Set(SettlementHeader, encoded)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var mu sync.Mutex
	var events []x402.PaymentEvent
	record := func(event x402.PaymentEvent) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	}

	c := New(baseSigner(), WithPaymentCallbacks(record, record, record))
	resp, err := c.Get(server.URL + "/api/data")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("Expected attempt and success events, got %d", len(events))
	}
	if events[0].Type != x402.PaymentEventAttempt {
		t.Errorf("Expected attempt event first, got %s", events[0].Type)
	}
	if events[0].Amount != "10000" || events[0].Network != "base" {
		t.Errorf("Attempt event missing challenge details: %+v", events[0])
	}
	if events[1].Type != x402.PaymentEventSuccess {
		t.Errorf("Expected success event, got %s", events[1].Type)
	}
	if events[1].Transaction != "0xdeadbeef" {
		t.Errorf("Expected settlement transaction on success event, got %q", events[1].Transaction)
	}
}

func TestClient_TimeoutCoversRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			write402(w, challenge())
			return
		}
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(baseSigner(), WithTimeout(50*time.Millisecond))
	_, err := c.Get(server.URL + "/api/data")
	if err == nil {
		t.Fatal("Expected timeout to cover the payment retry")
	}
}

func TestClient_DisablesCompression(t *testing.T) {
	c := New(baseSigner())
	base := c.paymentTransport().Base.(*http.Transport)
	if !base.DisableCompression {
		t.Error("Expected compression disabled on the base transport")
	}
}

func TestClient_ConcurrentIsolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(PaymentHeader) == "" {
			write402(w, challenge())
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := New(baseSigner())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Get(server.URL + "/api/data")
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("Expected status 200, got %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()
}
