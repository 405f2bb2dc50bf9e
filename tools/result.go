package tools

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/Gordian-Labs/tilde-mcp/x402"
)

// InvocationResult is the normalized outcome of a tool invocation. Payment
// and transport failures are reported through it as regular results so the
// calling agent can react; only configuration and programming errors
// propagate as hard failures.
type InvocationResult struct {
	Success bool            `json:"success"`
	Status  int             `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// failure builds a failed result. status 0 means no HTTP status applies.
func failure(status int, message string, data json.RawMessage) InvocationResult {
	return InvocationResult{
		Success: false,
		Status:  status,
		Data:    data,
		Message: message,
	}
}

// resultFromResponse normalizes a terminal HTTP response. The body is
// passed through as raw JSON when it parses, otherwise re-encoded as a JSON
// string so the result is always valid JSON.
func resultFromResponse(resp *http.Response) InvocationResult {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(resp.StatusCode, "failed to read response body: "+err.Error(), nil)
	}

	data := rawJSON(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return InvocationResult{
			Success: true,
			Status:  resp.StatusCode,
			Data:    data,
		}
	}

	return failure(resp.StatusCode, "request failed with status "+resp.Status, data)
}

// resultFromError maps a client error to a structured failure where the
// error is part of normal payment/transport operation. The second return is
// non-nil for errors that should abort the invocation instead.
func resultFromError(err error) (InvocationResult, error) {
	var perr *x402.PaymentError
	if errors.As(err, &perr) {
		return failure(perr.Status, "payment failed: "+perr.Error(), nil), nil
	}

	// http.Client wraps transport failures (DNS, connect, timeout) in
	// *url.Error; those are operational, not exceptional. Status stays
	// unset since no response was received.
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return failure(0, "request failed: "+err.Error(), nil), nil
	}

	return InvocationResult{}, err
}

// rawJSON returns body as-is when it is valid JSON, otherwise quoted as a
// JSON string. Empty bodies become nil.
func rawJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}
