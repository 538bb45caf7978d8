package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notification is the device-facing payload.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Gateway delivers one notification to one device token.
type Gateway interface {
	Send(ctx context.Context, token string, n Notification) error
}

// ExpoGateway posts push requests to an Expo-compatible push endpoint.
type ExpoGateway struct {
	url    string
	client *http.Client
}

// NewExpoGateway constructs a gateway against url with the given per-request timeout.
func NewExpoGateway(url string, timeout time.Duration) *ExpoGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExpoGateway{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type expoRequest struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Sound string            `json:"sound"`
	Data  map[string]string `json:"data,omitempty"`
}

type expoResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
}

// Send delivers a single push request. Any transport or gateway-reported
// failure comes back as an error for the caller to count; nothing retries.
func (g *ExpoGateway) Send(ctx context.Context, token string, n Notification) error {
	payload, err := json.Marshal(expoRequest{
		To:    token,
		Title: n.Title,
		Body:  n.Body,
		Sound: "default",
		Data:  n.Data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}

	var decoded expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode push gateway response: %w", err)
	}
	if decoded.Data.Status != "" && decoded.Data.Status != "ok" {
		return fmt.Errorf("push gateway rejected token: %s", decoded.Data.Message)
	}
	return nil
}
