package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Notification is one queued message retrieved from the relay.
type Notification struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Client talks to the polling relay service over its JSON HTTP surface.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a relay client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type registerRequest struct {
	DeviceID string `json:"deviceId"`
	UserID   string `json:"userId"`
}

type registerResponse struct {
	Token string `json:"token"`
}

// Register announces a device to the relay and returns the relay token.
func (c *Client) Register(ctx context.Context, deviceID, userID string) (string, error) {
	var resp registerResponse
	if err := c.post(ctx, "/api/register", registerRequest{DeviceID: deviceID, UserID: userID}, &resp); err != nil {
		return "", fmt.Errorf("relay register failed: %w", err)
	}
	return resp.Token, nil
}

type sendRequest struct {
	UserID       string           `json:"userId"`
	Notification sendNotification `json:"notification"`
}

type sendNotification struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Send queues one notification for a user. Delivery happens whenever one of
// the user's pollers next fetches; the target may not be polling at all.
func (c *Client) Send(ctx context.Context, targetUserID, title, body string, data map[string]any) error {
	req := sendRequest{
		UserID: targetUserID,
		Notification: sendNotification{
			Title: title,
			Body:  body,
			Data:  data,
		},
	}
	if err := c.post(ctx, "/api/send", req, nil); err != nil {
		return fmt.Errorf("relay send failed: %w", err)
	}
	return nil
}

type fetchResponse struct {
	Notifications []Notification `json:"notifications"`
}

// Fetch retrieves the queued notifications for a device in arrival order.
func (c *Client) Fetch(ctx context.Context, userID, deviceID string) ([]Notification, error) {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("deviceId", deviceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/notifications?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay fetch failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay fetch returned status %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}

	var resp fetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal relay response: %w", err)
	}
	return resp.Notifications, nil
}

type acknowledgeRequest struct {
	UserID          string   `json:"userId"`
	DeviceID        string   `json:"deviceId"`
	NotificationIDs []string `json:"notificationIds"`
}

// Acknowledge tells the relay to purge the given notification IDs.
func (c *Client) Acknowledge(ctx context.Context, userID, deviceID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	req := acknowledgeRequest{UserID: userID, DeviceID: deviceID, NotificationIDs: ids}
	if err := c.post(ctx, "/api/acknowledge", req, nil); err != nil {
		return fmt.Errorf("relay acknowledge failed: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("received non-2xx status code: %d", resp.StatusCode)
	}

	if out != nil {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
