package lane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-checkout/internal/common"
)

// InventoryItem is one line of a remote lane's inventory listing.
type InventoryItem struct {
	ItemID   string `json:"itemId"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Discount *struct {
		Kind     string `json:"kind"`
		Discount string `json:"discount,omitempty"`
	} `json:"discount"`
}

// Inventory is a remote lane's inventory listing.
type Inventory struct {
	Items    []InventoryItem `json:"items"`
	Currency string          `json:"currency"`
}

// Client talks to a running lane over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a Client whose requests carry trace context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Inventory fetches the lane's inventory listing.
func (c *Client) Inventory(ctx context.Context) (Inventory, error) {
	var inv Inventory
	err := c.do(ctx, http.MethodGet, "/api/v1/inventory", nil, &inv)
	return inv, err
}

// Stock registers or restocks an item on the lane.
func (c *Client) Stock(ctx context.Context, itemID, price string, quantity int) error {
	body := map[string]any{"itemId": itemID, "quantity": quantity}
	if price != "" {
		body["price"] = price
	}
	return c.do(ctx, http.MethodPost, "/api/v1/inventory", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error common.ErrorBody `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
			return &common.AppError{Code: "REMOTE", Message: resp.Status, HTTPStatus: resp.StatusCode}
		}
		return &common.AppError{Code: envelope.Error.Code, Message: envelope.Error.Message, HTTPStatus: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
