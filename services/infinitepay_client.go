package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-backend/models"
)

// InfinitePayClient is the REST adapter for the redirect-based
// provider: a checkout is created server-side, the customer is sent to
// the returned URL, and confirmation arrives later on the webhook
// keyed by order_nsu.
type InfinitePayClient struct {
	baseURL    string
	handle     string
	apiKey     string
	webhookURL string
	httpClient *http.Client
}

// NewInfinitePayClient creates a new InfinitePayClient. webhookURL is
// the absolute callback the provider will POST payment events to.
func NewInfinitePayClient(baseURL, handle, apiKey, webhookURL string) *InfinitePayClient {
	return &InfinitePayClient{
		baseURL:    baseURL,
		handle:     handle,
		apiKey:     apiKey,
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type infinitePayItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	PriceCents  int    `json:"price"` // minor units
}

type infinitePayCheckoutRequest struct {
	Handle      string            `json:"handle"`
	OrderNSU    string            `json:"order_nsu"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	WebhookURL  string            `json:"webhook_url"`
	Items       []infinitePayItem `json:"items"`
}

type infinitePayCheckoutResponse struct {
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}

// CreateCheckout registers the order with the provider and returns the
// hosted-checkout redirect URL.
func (c *InfinitePayClient) CreateCheckout(ctx context.Context, order *models.Order) (string, error) {
	items := make([]infinitePayItem, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		items = append(items, infinitePayItem{
			Description: item.ProductName,
			Quantity:    item.Quantity,
			PriceCents:  item.Price,
		})
	}
	// The discount is not a provider concept; the payable amount is
	// carried by pricing a synthetic line when a discount applied.
	if order.DiscountAmount > 0 {
		items = append(items, infinitePayItem{
			Description: "Discount",
			Quantity:    1,
			PriceCents:  -order.DiscountAmount,
		})
	}

	reqBody := infinitePayCheckoutRequest{
		Handle:     c.handle,
		OrderNSU:   order.ID.String(),
		WebhookURL: c.webhookURL,
		Items:      items,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoices/public/checkout/links", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read checkout response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("checkout rejected: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out infinitePayCheckoutResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("checkout response missing url: %s", string(body))
	}

	return out.URL, nil
}
