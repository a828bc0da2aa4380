/**
 * @description
 * This package provides a client for the backend's billing endpoints:
 * fetching entitlement status, starting checkout flows, and opening
 * the self-service billing portal. It also hosts the lifecycle-scoped
 * entitlement poller used by long-lived consumers.
 */
package billingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrAuthenticationRequired is returned when an operation that needs an
// identity is invoked while signed out. No network call is made.
var ErrAuthenticationRequired = errors.New("authentication required")

// EntitlementStatus mirrors the billing status endpoint's response.
type EntitlementStatus struct {
	Subscribed       bool       `json:"subscribed"`
	SubscriptionTier *string    `json:"subscription_tier"`
	SubscriptionEnd  *time.Time `json:"subscription_end"`
}

// Client calls the backend's billing endpoints with a bearer token.
// The token is settable at any time; an empty token means signed out.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a new billing client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken replaces the identity token. An empty string signs out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current identity token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchStatus queries the caller's entitlement. Signed-out callers get
// ErrAuthenticationRequired without any network call.
func (c *Client) FetchStatus(ctx context.Context) (*EntitlementStatus, error) {
	var status EntitlementStatus
	if err := c.do(ctx, http.MethodGet, "/api/billing/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StartCheckout starts a payment flow for a plan and returns the
// hosted checkout URL for the caller to open in a new browsing
// context. Signed-out callers get ErrAuthenticationRequired without
// any network call.
func (c *Client) StartCheckout(ctx context.Context, plan string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	body := map[string]string{"plan": plan}
	if err := c.do(ctx, http.MethodPost, "/api/billing/checkout-session", body, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// OpenBillingPortal returns a URL to the billing management page. Same
// authentication precondition as StartCheckout.
func (c *Client) OpenBillingPortal(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/billing/portal-session", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// do performs an authenticated request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	token := c.Token()
	if token == "" {
		return ErrAuthenticationRequired
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call billing service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The backend returns a JSON error envelope for billing failures.
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != "" {
			return errors.New(envelope.Error)
		}
		return fmt.Errorf("billing service returned status %d", resp.StatusCode)
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
