// Package notify pushes new waitlist signups to third-party providers.
//
// Every provider is optional. Failures are reported to the Dispatcher, which
// logs and counts them; they are never surfaced to the signup caller.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by provider constructors when required
// settings are missing.
var ErrNotConfigured = errors.New("notifier is not configured")

type Subscriber struct {
	Email       string
	Name        string
	CreatorType string
	SignedUpAt  time.Time
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, subscriber Subscriber) error
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
