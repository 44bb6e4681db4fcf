package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Intent is the provider's view of a payment reference, normalized to the
// fields the worker enforces.
type Intent struct {
	ID       string
	Status   string
	Amount   int64
	Currency string
	Used     bool
}

// StatusSucceeded is the only provider status the worker accepts.
const StatusSucceeded = "succeeded"

// Verifier is what the report worker needs from the payment provider.
type Verifier interface {
	// Verify fetches the normalized intent for a payment reference.
	Verify(ctx context.Context, ref string) (Intent, error)
	// MarkUsed flags the reference so it cannot pay for a second report.
	MarkUsed(ctx context.Context, ref string) error
}

// Client talks to a payment-intents style REST API with a bearer secret
// key. The prior-use marker lives in the intent's metadata.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// Options configures the payment client.
type Options struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		secretKey:  opts.SecretKey,
		httpClient: client,
	}
}

type intentResponse struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) Verify(ctx context.Context, ref string) (Intent, error) {
	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Intent{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	var body intentResponse
	if err := c.do(req, &body); err != nil {
		return Intent{}, err
	}

	return Intent{
		ID:       body.ID,
		Status:   body.Status,
		Amount:   body.Amount,
		Currency: strings.ToLower(body.Currency),
		Used:     body.Metadata["report_generated"] == "true",
	}, nil
}

func (c *Client) MarkUsed(ctx context.Context, ref string) error {
	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseURL, url.PathEscape(ref))
	form := url.Values{}
	form.Set("metadata[report_generated]", "true")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, &intentResponse{})
}

func (c *Client) do(req *http.Request, out *intentResponse) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr intentResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			return fmt.Errorf("payment provider status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("payment provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("payment provider status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode payment response: %w", err)
	}
	return nil
}
