package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

const defaultWelcomeSubject = "You're on the waitlist"

//go:embed templates/*.html
var templateFS embed.FS

var welcomeTemplate = template.Must(template.ParseFS(templateFS, "templates/welcome.html"))

type ResendConfig struct {
	APIKey  string
	From    string
	Subject string

	// BaseURL overrides the Resend API endpoint.
	BaseURL string
}

func (c ResendConfig) IsConfigured() bool {
	return c.APIKey != "" && c.From != ""
}

// ResendNotifier sends a transactional welcome email.
type ResendNotifier struct {
	client  *resend.Client
	from    string
	subject string
}

type welcomeData struct {
	Email       string
	Name        string
	CreatorType string
	Year        int
}

func NewResendNotifier(cfg ResendConfig) (*ResendNotifier, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("resend: %w (RESEND_API_KEY and WELCOME_EMAIL_FROM are required)", ErrNotConfigured)
	}

	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("resend: invalid base URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = baseURL
	}

	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		subject = defaultWelcomeSubject
	}

	return &ResendNotifier{client: client, from: cfg.From, subject: subject}, nil
}

func (r *ResendNotifier) Name() string { return "resend" }

func (r *ResendNotifier) Notify(ctx context.Context, subscriber Subscriber) error {
	html, err := renderWelcome(subscriber)
	if err != nil {
		return err
	}

	sent, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{subscriber.Email},
		Subject: r.subject,
		Html:    html,
	})
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			return fmt.Errorf("resend: rate limit exceeded (limit: %s, resets in: %s seconds): %w",
				rateLimitErr.Limit, rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend: send welcome email: %w", err)
	}

	if sent == nil || sent.Id == "" {
		return fmt.Errorf("resend: empty response for %s", subscriber.Email)
	}

	return nil
}

func renderWelcome(subscriber Subscriber) (string, error) {
	signedUpAt := subscriber.SignedUpAt
	if signedUpAt.IsZero() {
		signedUpAt = time.Now()
	}

	var buf bytes.Buffer
	err := welcomeTemplate.Execute(&buf, welcomeData{
		Email:       subscriber.Email,
		Name:        subscriber.Name,
		CreatorType: subscriber.CreatorType,
		Year:        signedUpAt.Year(),
	})
	if err != nil {
		return "", fmt.Errorf("resend: render welcome template: %w", err)
	}

	return buf.String(), nil
}
