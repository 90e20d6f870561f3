package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultButtondownBaseURL = "https://api.buttondown.com/v1"

type ButtondownConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func (c ButtondownConfig) IsConfigured() bool {
	return c.APIKey != ""
}

// ButtondownNotifier adds signups as newsletter subscribers.
type ButtondownNotifier struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type buttondownSubscriberRequest struct {
	EmailAddress string            `json:"email_address"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
}

func NewButtondownNotifier(cfg ButtondownConfig) (*ButtondownNotifier, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("buttondown: %w (BUTTONDOWN_API_KEY is required)", ErrNotConfigured)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultButtondownBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &ButtondownNotifier{apiKey: cfg.APIKey, baseURL: baseURL, client: client}, nil
}

func (b *ButtondownNotifier) Name() string { return "buttondown" }

func (b *ButtondownNotifier) Notify(ctx context.Context, subscriber Subscriber) error {
	request := buttondownSubscriberRequest{
		EmailAddress: subscriber.Email,
		Metadata: map[string]string{
			"name":         subscriber.Name,
			"creator_type": subscriber.CreatorType,
		},
	}
	if tag := strings.TrimSpace(subscriber.CreatorType); tag != "" {
		request.Tags = []string{tag}
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("buttondown: encode subscriber: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/subscribers", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("buttondown: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("buttondown: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	// Re-subscribing an existing address is not a failure.
	if resp.StatusCode == http.StatusConflict || bytes.Contains(body, []byte("already")) {
		return nil
	}

	return fmt.Errorf("buttondown: create subscriber returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
