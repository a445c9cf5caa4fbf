// Package backend is the HTTP client for the storefront's edge-function API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/khetikara/internal/domain"
)

const (
	EndpointProducts      = "products"
	EndpointOrders        = "orders"
	EndpointMarketMetrics = "market-metrics"

	maxResponseBytes = 4 << 20
)

var (
	// ErrMalformedResponse is returned when a 2xx response cannot be decoded
	// or lacks the expected fields.
	ErrMalformedResponse = errors.New("malformed response from backend")

	// ErrNotConfigured is returned when no base URL was configured.
	ErrNotConfigured = errors.New("backend URL is not configured")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Observer is notified after every request with the endpoint, how long the
// call took and its outcome.
type Observer func(endpoint string, elapsed time.Duration, err error)

// Client calls {baseURL}/functions/v1/{endpoint} with a bearer API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	observe    Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver installs a request observer, typically for metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

// New creates a backend client. timeout bounds every request.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domain.OrderService = (*Client)(nil)

type productsResponse struct {
	Products []domain.Product `json:"products"`
}

type metricsResponse struct {
	Metrics []domain.MarketMetric `json:"metrics"`
}

type orderResponse struct {
	OrderNumber string `json:"order_number"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListProducts fetches the active catalogue.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, EndpointProducts, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Products == nil {
		return nil, fmt.Errorf("%w: missing products", ErrMalformedResponse)
	}
	return resp.Products, nil
}

// MarketMetrics fetches the latest market indicators.
func (c *Client) MarketMetrics(ctx context.Context) ([]domain.MarketMetric, error) {
	var resp metricsResponse
	if err := c.do(ctx, http.MethodGet, EndpointMarketMetrics, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Metrics == nil {
		return nil, fmt.Errorf("%w: missing metrics", ErrMalformedResponse)
	}
	return resp.Metrics, nil
}

// CreateOrder submits payload and returns the assigned order number.
func (c *Client) CreateOrder(ctx context.Context, payload domain.OrderPayload) (string, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, EndpointOrders, payload, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.OrderNumber) == "" {
		return "", fmt.Errorf("%w: empty order_number", ErrMalformedResponse)
	}
	return resp.OrderNumber, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(endpoint, time.Since(start), err)
		}
	}()

	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	url := fmt.Sprintf("%s/functions/v1/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "API request failed"
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
