package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Gordian-Labs/tilde-mcp/config"
	"github.com/Gordian-Labs/tilde-mcp/x402"
	"github.com/Gordian-Labs/tilde-mcp/x402/client"
	"github.com/Gordian-Labs/tilde-mcp/x402/signers"
	"github.com/Gordian-Labs/tilde-mcp/x402/validation"
)

// ExecuteRequest is the argument shape of the execute tool. The endpoint
// descriptor comes straight out of a search result.
type ExecuteRequest struct {
	Endpoint x402.EndpointDescriptor `json:"endpoint"`
	Params   map[string]interface{}  `json:"params,omitempty"`
	Method   string                  `json:"method,omitempty"`
	Body     interface{}             `json:"body,omitempty"`
}

// Executor calls machine-payable endpoints, paying x402 challenges on the
// fly. Every invocation gets its own signer and client; nothing is shared
// across calls.
type Executor struct {
	cfg *config.Config
	log *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(cfg *config.Config, log *zap.Logger) *Executor {
	return &Executor{cfg: cfg, log: log}
}

// Execute performs a paid call to the endpoint described by req. The chain
// family, and with it the private key, is chosen from the first accepted
// payment method; later entries never influence signer selection.
//
// Payment and HTTP failures come back as structured results. A missing or
// malformed private key is a configuration problem and returns an error.
func (e *Executor) Execute(ctx context.Context, req *ExecuteRequest) (InvocationResult, error) {
	if err := validation.ValidateDescriptor(&req.Endpoint); err != nil {
		return failure(0, "invalid endpoint descriptor: "+err.Error(), nil), nil
	}

	method, err := normalizeMethod(req.Method)
	if err != nil {
		return failure(0, err.Error(), nil), nil
	}

	network := req.Endpoint.Accepts[0].Network
	family := x402.Classify(network)

	key, err := e.cfg.KeyFor(family)
	if err != nil {
		return InvocationResult{}, err
	}

	signer, err := signers.New(family, key, network)
	if err != nil {
		return InvocationResult{}, fmt.Errorf("failed to create %s signer: %w", family, err)
	}

	target, err := buildTargetURL(req.Endpoint.Resource, req.Params)
	if err != nil {
		return failure(0, err.Error(), nil), nil
	}

	var bodyReader io.Reader
	contentType := ""
	if req.Body != nil && (method == http.MethodPost || method == http.MethodPut) {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return failure(0, "failed to encode request body: "+err.Error(), nil), nil
		}
		bodyReader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return failure(0, "failed to build request: "+err.Error(), nil), nil
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpClient := client.New(signer,
		client.WithTimeout(e.cfg.Timeout),
		client.WithPaymentCallbacks(paymentLoggers(e.log)),
	)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return resultFromError(err)
	}

	result := resultFromResponse(resp)
	e.log.Info("endpoint call finished",
		zap.String("url", req.Endpoint.Resource),
		zap.String("method", method),
		zap.Int("status", result.Status),
		zap.Bool("success", result.Success),
	)
	return result, nil
}

// normalizeMethod applies the GET default and rejects anything outside the
// supported verb set.
func normalizeMethod(method string) (string, error) {
	if method == "" {
		return http.MethodGet, nil
	}
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("unsupported method %q: use GET, POST, PUT or DELETE", method)
}

// buildTargetURL merges params into the resource URL's query string, keeping
// any query parameters already present on the resource.
func buildTargetURL(resource string, params map[string]interface{}) (string, error) {
	parsed, err := url.Parse(resource)
	if err != nil {
		return "", fmt.Errorf("invalid resource URL: %w", err)
	}

	if len(params) == 0 {
		return parsed.String(), nil
	}

	query := parsed.Query()
	for key, value := range params {
		query.Set(key, paramString(value))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// paramString renders a query parameter value. Strings pass through;
// everything else is JSON-encoded.
func paramString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}

// paymentLoggers returns payment event callbacks that log to the server
// logger. Key material never reaches these events.
func paymentLoggers(log *zap.Logger) (x402.PaymentCallback, x402.PaymentCallback, x402.PaymentCallback) {
	onAttempt := func(event x402.PaymentEvent) {
		decimals := 6
		if chain, ok := x402.LookupChain(event.Network); ok {
			decimals = chain.Decimals
		}
		log.Info("payment attempt",
			zap.String("url", event.URL),
			zap.String("network", event.Network),
			zap.String("asset", event.Asset),
			zap.String("amount", x402.FormatAtomicAmount(event.Amount, decimals)),
			zap.String("recipient", event.Recipient),
		)
	}
	onSuccess := func(event x402.PaymentEvent) {
		log.Info("payment settled",
			zap.String("url", event.URL),
			zap.String("network", event.Network),
			zap.String("transaction", event.Transaction),
			zap.Duration("duration", event.Duration),
		)
	}
	onFailure := func(event x402.PaymentEvent) {
		log.Warn("payment failed",
			zap.String("url", event.URL),
			zap.Error(event.Error),
			zap.Duration("duration", event.Duration),
		)
	}
	return onAttempt, onSuccess, onFailure
}
