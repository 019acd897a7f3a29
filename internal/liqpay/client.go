package liqpay

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/backend-trainer/internal/obs"
	"github.com/noah-isme/backend-trainer/internal/resilience"
)

// Version is the LiqPay API protocol version this client speaks.
const Version = 3

// TestSignaturePrefix marks signatures used by integration tooling. Requests
// carrying such a signature skip verification only when the intake handler is
// explicitly configured to allow them.
const TestSignaturePrefix = "test_signature_"

const (
	checkoutPath = "/api/3/checkout"
	requestPath  = "/api/request"
)

// IsTestSignature reports whether the signature carries the test prefix.
func IsTestSignature(signature string) bool {
	return strings.HasPrefix(signature, TestSignaturePrefix)
}

// DecodeError describes a payload that could not be decoded.
type DecodeError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("liqpay: decode %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *DecodeError) Unwrap() error { return e.Err }

// Client encodes, signs and verifies LiqPay payloads and talks to the LiqPay
// request API. The private key is supplied from configuration and is never
// included in logs or payloads.
type Client struct {
	PublicKey  string
	PrivateKey string
	BaseURL    string
	HTTP       *resilience.HTTPClient
}

// Encode serialises the value as UTF-8 JSON wrapped in standard base64.
func (c Client) Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("liqpay: encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode, returning the raw JSON object. A *DecodeError is
// returned when the input is not valid base64 or the decoded bytes are not a
// JSON object.
func (c Client) Decode(data string) (map[string]any, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, &DecodeError{Stage: "base64", Err: err}
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &DecodeError{Stage: "json", Err: err}
	}
	return payload, nil
}

// Sign computes the LiqPay callback signature for an encoded payload:
// base64(SHA-1(private_key + data + private_key)).
func (c Client) Sign(data string) string {
	sum := sha1.Sum([]byte(c.PrivateKey + data + c.PrivateKey))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Verify recomputes the signature for the payload and compares it against the
// provided one in constant time.
func (c Client) Verify(data, signature string) bool {
	expected := c.Sign(data)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// CheckoutRequest carries merchant-supplied fields for a hosted checkout form.
type CheckoutRequest struct {
	Action      string  `json:"action"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	ResultURL   string  `json:"result_url,omitempty"`
	ServerURL   string  `json:"server_url,omitempty"`
	Language    string  `json:"language,omitempty"`
}

// CheckoutData is a signed data/signature pair ready to be posted to the
// LiqPay checkout endpoint.
type CheckoutData struct {
	Data      string `json:"data"`
	Signature string `json:"signature"`
	URL       string `json:"url"`
}

// Checkout builds the signed payload for the hosted checkout form.
func (c Client) Checkout(req CheckoutRequest) (CheckoutData, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return CheckoutData{}, errors.New("liqpay: order id is required")
	}
	if req.Action == "" {
		req.Action = "pay"
	}
	payload := map[string]any{
		"version":     Version,
		"public_key":  c.PublicKey,
		"action":      req.Action,
		"amount":      req.Amount,
		"currency":    req.Currency,
		"description": req.Description,
		"order_id":    req.OrderID,
	}
	if req.ResultURL != "" {
		payload["result_url"] = req.ResultURL
	}
	if req.ServerURL != "" {
		payload["server_url"] = req.ServerURL
	}
	if req.Language != "" {
		payload["language"] = req.Language
	}
	data, err := c.Encode(payload)
	if err != nil {
		return CheckoutData{}, err
	}
	return CheckoutData{
		Data:      data,
		Signature: c.Sign(data),
		URL:       c.baseURL() + checkoutPath,
	}, nil
}

// StatusResponse is the subset of the LiqPay status API response the
// application consumes.
type StatusResponse struct {
	Status         string  `json:"status"`
	PaymentID      int64   `json:"payment_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	ErrCode        string  `json:"err_code"`
	ErrDescription string  `json:"err_description"`
}

// Status queries the LiqPay request API for the current state of an order.
func (c Client) Status(ctx context.Context, orderID string) (StatusResponse, error) {
	var zero StatusResponse
	if strings.TrimSpace(orderID) == "" {
		return zero, errors.New("liqpay: order id is required")
	}
	data, err := c.Encode(map[string]any{
		"version":    Version,
		"public_key": c.PublicKey,
		"action":     "status",
		"order_id":   orderID,
	})
	if err != nil {
		return zero, err
	}
	body, err := json.Marshal(map[string]string{
		"data":      data,
		"signature": c.Sign(data),
	})
	if err != nil {
		return zero, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+requestPath, bytes.NewReader(body))
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		recordStatusResult("error")
		return zero, fmt.Errorf("liqpay: status request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		recordStatusResult("error")
		return zero, fmt.Errorf("liqpay: status request: unexpected response %s", resp.Status)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		recordStatusResult("error")
		return zero, fmt.Errorf("liqpay: read status response: %w", err)
	}
	var status StatusResponse
	if err := json.Unmarshal(payload, &status); err != nil {
		recordStatusResult("error")
		return zero, &DecodeError{Stage: "json", Err: err}
	}
	recordStatusResult("success")
	return status, nil
}

func (c Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.HTTP != nil {
		return c.HTTP.Do(ctx, req)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func (c Client) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return "https://www.liqpay.ua"
	}
	return base
}

func recordStatusResult(result string) {
	if obs.LiqPayStatusRequests != nil {
		obs.LiqPayStatusRequests.WithLabelValues(result).Inc()
	}
}

// GenerateOrderID produces a merchant order id in the TP_<unix-ms>_<suffix>
// format the rest of the application correlates on.
func GenerateOrderID() string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		suffix = []byte{0, 0, 0, 0}
	}
	return fmt.Sprintf("TP_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
