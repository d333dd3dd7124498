package api

// API CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrSessionExpired is returned for any call the backend rejects with 401.
// The caller must drop all local session state and force re-authentication.
var ErrSessionExpired = errors.New("session expired")

// Error is a non-2xx backend response. Msg carries the backend's own message
// verbatim when the body had one.
type Error struct {
	Status int
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("unexpected status: %d", e.Status)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// ClearToken drops the bearer token on logout or session expiry.
func (c *Client) ClearToken() {
	c.token = ""
}

// do runs one JSON request/response cycle. Session expiry and backend error
// bodies are handled here, centrally, not per call.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("Backend rejected credentials",
			zap.String("path", path))
		return ErrSessionExpired
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &Error{Status: resp.StatusCode}
		var errBody struct {
			Msg string `json:"msg"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Msg = errBody.Msg
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Login authenticates a cashier. The returned token is not installed
// automatically; session setup is the caller's job.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &result); err != nil {
		return nil, err
	}

	if result.AccessToken == "" || result.User.Username == "" {
		return nil, fmt.Errorf("invalid login response from backend")
	}
	return &result, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, err
	}

	for _, p := range products {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("malformed product list: %w", err)
		}
	}
	return products, nil
}

func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	if err := c.do(ctx, http.MethodGet, "/customers", nil, &customers); err != nil {
		return nil, err
	}

	for _, cust := range customers {
		if err := cust.validate(); err != nil {
			return nil, fmt.Errorf("malformed customer list: %w", err)
		}
	}
	return customers, nil
}

// CreateSale submits a checkout payload. The backend recomputes prices and
// tax from its own catalog; the response total is authoritative.
func (c *Client) CreateSale(ctx context.Context, req SaleRequest) (*Sale, error) {
	var sale Sale
	if err := c.do(ctx, http.MethodPost, "/sales", req, &sale); err != nil {
		return nil, err
	}

	if sale.ID <= 0 {
		return nil, fmt.Errorf("invalid sale response from backend")
	}
	return &sale, nil
}

func (c *Client) ListSales(ctx context.Context) ([]Sale, error) {
	var sales []Sale
	if err := c.do(ctx, http.MethodGet, "/sales", nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (c *Client) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	var summary DashboardSummary
	if err := c.do(ctx, http.MethodGet, "/dashboard", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
