package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const mailchimpMemberExists = "Member Exists"

type MailchimpConfig struct {
	APIKey       string
	ServerPrefix string
	ListID       string

	// BaseURL overrides https://<prefix>.api.mailchimp.com/3.0.
	BaseURL    string
	HTTPClient *http.Client
}

func (c MailchimpConfig) IsConfigured() bool {
	return c.APIKey != "" && c.ServerPrefix != "" && c.ListID != ""
}

// MailchimpNotifier subscribes signups to a Mailchimp audience list.
type MailchimpNotifier struct {
	apiKey  string
	listID  string
	baseURL string
	client  *http.Client
}

type mailchimpMemberRequest struct {
	EmailAddress string            `json:"email_address"`
	Status       string            `json:"status"`
	MergeFields  map[string]string `json:"merge_fields"`
}

type mailchimpMemberResponse struct {
	ID string `json:"id"`
}

type mailchimpProblem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func NewMailchimpNotifier(cfg MailchimpConfig) (*MailchimpNotifier, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("mailchimp: %w (MAILCHIMP_API_KEY, MAILCHIMP_SERVER_PREFIX and MAILCHIMP_LIST_ID are required)", ErrNotConfigured)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", cfg.ServerPrefix)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &MailchimpNotifier{
		apiKey:  cfg.APIKey,
		listID:  cfg.ListID,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (m *MailchimpNotifier) Name() string { return "mailchimp" }

func (m *MailchimpNotifier) Notify(ctx context.Context, subscriber Subscriber) error {
	payload, err := json.Marshal(mailchimpMemberRequest{
		EmailAddress: subscriber.Email,
		Status:       "subscribed",
		MergeFields: map[string]string{
			"FNAME": subscriber.Name,
			"CTYPE": subscriber.CreatorType,
		},
	})
	if err != nil {
		return fmt.Errorf("mailchimp: encode member: %w", err)
	}

	endpoint := fmt.Sprintf("%s/lists/%s/members", m.baseURL, url.PathEscape(m.listID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mailchimp: build request: %w", err)
	}
	req.SetBasicAuth("waitlist", m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailchimp: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("mailchimp: read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var member mailchimpMemberResponse
		if err := json.Unmarshal(body, &member); err != nil {
			return fmt.Errorf("mailchimp: decode response: %w", err)
		}
		return nil
	}

	var problem mailchimpProblem
	_ = json.Unmarshal(body, &problem)

	// Already on the list counts as subscribed.
	if resp.StatusCode == http.StatusBadRequest && problem.Title == mailchimpMemberExists {
		return nil
	}

	return fmt.Errorf("mailchimp: add list member returned %d: %s %s", resp.StatusCode, problem.Title, problem.Detail)
}
