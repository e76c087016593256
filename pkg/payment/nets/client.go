package nets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/supermart/pkg/config"
)

// Client talks to the NETS QR sandbox API. Both endpoints are keyed by the
// provider-assigned transaction retrieval reference, not a database id.
type Client struct {
	apiBase    string
	apiKey     string
	projectID  string
	txnID      string
	httpClient *http.Client
}

func NewClient(cfg *config.NetsConfig) *Client {
	return &Client{
		apiBase:   strings.TrimRight(cfg.APIBase, "/"),
		apiKey:    cfg.APIKey,
		projectID: cfg.ProjectID,
		txnID:     cfg.TxnID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Data is the provider's payload. response_code "00" with txn_status 1 means
// the operation (QR issuance or payment) succeeded; txn_status 2 means the
// payment failed.
type Data struct {
	ResponseCode    string `json:"response_code"`
	TxnStatus       int    `json:"txn_status"`
	QRCode          string `json:"qr_code,omitempty"`
	TxnRetrievalRef string `json:"txn_retrieval_ref,omitempty"`
	NetworkStatus   int    `json:"network_status"`
	Instruction     string `json:"instruction,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

type Response struct {
	Result struct {
		Data Data `json:"data"`
	} `json:"result"`
}

// Request asks the provider to issue a QR code for the given dollar amount.
func (c *Client) Request(ctx context.Context, amountDollars float64) (*Response, error) {
	body := map[string]interface{}{
		"txn_id":         c.txnID,
		"amt_in_dollars": amountDollars,
		"notify_mobile":  0,
	}
	return c.post(ctx, "/api/v1/common/payments/nets-qr/request", body)
}

// Query polls the payment status for a retrieval reference. frontendTimeout
// is escalated to 1 once the client-side polling budget is exhausted.
func (c *Client) Query(ctx context.Context, retrievalRef string, frontendTimeout int) (*Response, error) {
	body := map[string]interface{}{
		"txn_retrieval_ref":       retrievalRef,
		"frontend_timeout_status": frontendTimeout,
	}
	return c.post(ctx, "/api/v1/common/payments/nets-qr/query", body)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("project-id", c.projectID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("nets: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("nets: failed to decode response: %w", err)
	}
	return &out, nil
}
