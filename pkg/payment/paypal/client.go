package paypal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/supermart/pkg/config"
)

// Client talks to the PayPal REST API (v2 checkout orders and captures).
// The request/response shapes are the provider's fixed contract.
type Client struct {
	apiBase      string
	clientID     string
	clientSecret string
	currency     string
	httpClient   *http.Client
}

func NewClient(cfg *config.PayPalConfig) *Client {
	return &Client{
		apiBase:      strings.TrimRight(cfg.APIBase, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		currency:     cfg.Currency,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx provider response, surfaced with status code and
// body. An ambiguous response is never treated as a successful payment.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: unexpected status %d: %s", e.StatusCode, e.Body)
}

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type Capture struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Amount     Amount `json:"amount"`
	CreateTime string `json:"create_time"`
}

type Payments struct {
	Captures []Capture `json:"captures"`
}

type PurchaseUnit struct {
	Amount   *Amount  `json:"amount,omitempty"`
	Payments Payments `json:"payments,omitempty"`
}

type Payer struct {
	PayerID      string `json:"payer_id"`
	EmailAddress string `json:"email_address"`
}

type OrderResult struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Payer         Payer          `json:"payer"`
}

// FirstCapture returns the first capture across all purchase units, which is
// the capture the transaction record is keyed on.
func (r *OrderResult) FirstCapture() (*Capture, bool) {
	for _, unit := range r.PurchaseUnits {
		if len(unit.Payments.Captures) > 0 {
			return &unit.Payments.Captures[0], true
		}
	}
	return nil, false
}

type RefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token tokenResponse
	if err := c.do(req, &token); err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("paypal: empty access token")
	}
	return token.AccessToken, nil
}

// CreateOrder creates a CAPTURE-intent order for the given amount and
// returns the provider order id.
func (c *Client) CreateOrder(ctx context.Context, amount float64) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": Amount{
					CurrencyCode: c.currency,
					Value:        fmt.Sprintf("%.2f", amount),
				},
			},
		},
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, "/v2/checkout/orders", token, body)
	if err != nil {
		return "", err
	}

	var order OrderResult
	if err := c.do(req, &order); err != nil {
		return "", fmt.Errorf("failed to create provider order: %w", err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("paypal: create order returned no id")
	}
	return order.ID, nil
}

// CaptureOrder captures an approved provider order and returns the full
// capture result for reconciliation.
func (c *Client) CaptureOrder(ctx context.Context, providerOrderID string) (*OrderResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := c.jsonRequest(ctx, http.MethodPost,
		"/v2/checkout/orders/"+providerOrderID+"/capture", token, nil)
	if err != nil {
		return nil, err
	}

	var result OrderResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("failed to capture provider order %s: %w", providerOrderID, err)
	}
	return &result, nil
}

// RefundCapture refunds a capture, optionally partially. A nil amount
// refunds in full.
func (c *Client) RefundCapture(ctx context.Context, captureID string, amount *float64) (*RefundResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var body interface{}
	if amount != nil {
		body = map[string]interface{}{
			"amount": Amount{
				CurrencyCode: c.currency,
				Value:        fmt.Sprintf("%.2f", *amount),
			},
		}
	}
	req, err := c.jsonRequest(ctx, http.MethodPost,
		"/v2/payments/captures/"+captureID+"/refund", token, body)
	if err != nil {
		return nil, err
	}

	var result RefundResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("failed to refund capture %s: %w", captureID, err)
	}
	return &result, nil
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("paypal: failed to decode response: %w", err)
	}
	return nil
}
