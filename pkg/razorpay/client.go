package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campusprint/campusprint-backend/pkg/config"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.razorpay.com/v1"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024

	// PaymentStatusCaptured is the only gateway status that settles an order.
	PaymentStatusCaptured = "captured"
)

var errCredentialsRequired = errors.New("razorpay key id and secret are required")

// Client calls the Razorpay Orders and Payments REST APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a client from config. The configured timeout bounds every call.
func NewClient(cfg config.RazorpayConfig, opts ...Option) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	secret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || secret == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		keyID:      keyID,
		keySecret:  secret,
	}
	if cfg.BaseURL != "" {
		client.baseURL = strings.TrimSpace(cfg.BaseURL)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// KeyID is the public key the browser checkout needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrderRequest opens a gateway order. Amount is in minor units (paise).
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway's view of an order.
type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is the gateway's view of a payment. Fee and Tax are minor units.
type Payment struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Fee      int64  `json:"fee"`
	Tax      int64  `json:"tax"`
	Captured bool   `json:"captured"`
}

// IsCaptured reports whether the payment settled against gatewayOrderID.
func (p *Payment) IsCaptured(gatewayOrderID string) bool {
	return p != nil && p.Status == PaymentStatusCaptured && p.OrderID == gatewayOrderID
}

// CreateOrder opens a gateway order for the charge.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal razorpay order")
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "orders", bytes.NewReader(payload), &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay order response missing id")
	}
	return &order, nil
}

// FetchPayment reads a payment by its gateway id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	var payment Payment
	if err := c.do(ctx, http.MethodGet, "payments/"+url.PathEscape(trimmed), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build razorpay request")
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute razorpay request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode razorpay response")
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	var apiErr struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	detail := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
		detail = apiErr.Error.Code + ": " + apiErr.Error.Description
	}

	code := pkgerrors.CodeDependency
	if resp.StatusCode == http.StatusNotFound {
		code = pkgerrors.CodeNotFound
	}
	return pkgerrors.Wrap(code, fmt.Errorf("status %d: %s", resp.StatusCode, detail), "razorpay request failed")
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}
