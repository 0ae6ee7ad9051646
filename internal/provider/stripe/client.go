package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	providerdomain "github.com/agiletools/billingsync/internal/provider/domain"
)

// Client calls the Stripe REST API for manual sync and portal sessions.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

// FindActiveSubscription implements domain.Client.
func (c *Client) FindActiveSubscription(ctx context.Context, customerID string) (*providerdomain.Subscription, error) {
	if c.apiKey == "" {
		return nil, providerdomain.ErrNotConfigured
	}

	query := url.Values{}
	query.Set("customer", customerID)
	query.Set("status", "active")
	query.Set("limit", "1")

	var list struct {
		Data []stripeSubscription `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/v1/subscriptions?"+query.Encode(), nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return list.Data[0].toDomain(), nil
}

// CreatePortalSession implements domain.Client.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if c.apiKey == "" {
		return "", providerdomain.ErrNotConfigured
	}

	values := url.Values{}
	values.Set("customer", customerID)
	values.Set("return_url", returnURL)

	var session struct {
		URL string `json:"url"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/billing_portal/sessions", values, &session); err != nil {
		return "", err
	}
	if strings.TrimSpace(session.URL) == "" {
		return "", providerdomain.ErrRequestFailed
	}
	return session.URL, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, values url.Values, out any) error {
	body := ""
	if values != nil {
		body = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err == nil {
			if message := strings.TrimSpace(stripeErr.Error.Message); message != "" {
				return fmt.Errorf("%w: %s", providerdomain.ErrRequestFailed, message)
			}
		}
		return fmt.Errorf("%w: status %d", providerdomain.ErrRequestFailed, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
