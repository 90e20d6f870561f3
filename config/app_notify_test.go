package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/akeren/go-waitlist/internal/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func clearNotifierEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MAILCHIMP_API_KEY", "MAILCHIMP_SERVER_PREFIX", "MAILCHIMP_LIST_ID", "MAILCHIMP_BASE_URL",
		"BUTTONDOWN_API_KEY", "BUTTONDOWN_BASE_URL",
		"RESEND_API_KEY", "WELCOME_EMAIL_FROM", "WELCOME_EMAIL_SUBJECT", "RESEND_BASE_URL",
		"NOTIFY_TIMEOUT", "NOTIFY_ASYNC",
	} {
		t.Setenv(key, "")
	}
}

func TestNewNotifierConfig_FromEnv(t *testing.T) {
	clearNotifierEnv(t)
	t.Setenv("MAILCHIMP_API_KEY", `"abc-us21"`)
	t.Setenv("MAILCHIMP_SERVER_PREFIX", "us21")
	t.Setenv("MAILCHIMP_LIST_ID", "list1")
	t.Setenv("NOTIFY_TIMEOUT", "2s")
	t.Setenv("NOTIFY_ASYNC", "true")

	nc := NewNotifierConfig()
	assert.Equal(t, "abc-us21", nc.Mailchimp.APIKey)
	assert.Equal(t, "us21", nc.Mailchimp.ServerPrefix)
	assert.Equal(t, "list1", nc.Mailchimp.ListID)
	assert.Equal(t, 2*time.Second, nc.Timeout)
	assert.True(t, nc.Async)
}

func TestNotifierConfig_NewDispatcher(t *testing.T) {
	logger := &log.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	t.Run("nothing configured", func(t *testing.T) {
		clearNotifierEnv(t)
		d := NewNotifierConfig().NewDispatcher(logger, prometheus.NewRegistry())
		assert.Equal(t, 0, d.Len())
	})

	t.Run("buttondown and resend configured", func(t *testing.T) {
		clearNotifierEnv(t)
		t.Setenv("BUTTONDOWN_API_KEY", "bd-key")
		t.Setenv("RESEND_API_KEY", "re_key")
		t.Setenv("WELCOME_EMAIL_FROM", "Team <hello@example.com>")

		d := NewNotifierConfig().NewDispatcher(logger, prometheus.NewRegistry())
		assert.Equal(t, 2, d.Len())
	})
}
