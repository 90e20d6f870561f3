package config

import (
	"errors"
	"time"

	"github.com/akeren/go-waitlist/internal/log"
	"github.com/akeren/go-waitlist/pkg/notify"
	"github.com/akeren/go-waitlist/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
)

type NotifierConfig struct {
	Mailchimp  notify.MailchimpConfig
	Buttondown notify.ButtondownConfig
	Resend     notify.ResendConfig
	Timeout    time.Duration
	Async      bool
}

func NewNotifierConfig() *NotifierConfig {
	return &NotifierConfig{
		Mailchimp: notify.MailchimpConfig{
			APIKey:       sanitizeEnv(utils.GetEnvTrimmed("MAILCHIMP_API_KEY")),
			ServerPrefix: sanitizeEnv(utils.GetEnvTrimmed("MAILCHIMP_SERVER_PREFIX")),
			ListID:       sanitizeEnv(utils.GetEnvTrimmed("MAILCHIMP_LIST_ID")),
			BaseURL:      utils.GetEnvTrimmed("MAILCHIMP_BASE_URL"),
		},
		Buttondown: notify.ButtondownConfig{
			APIKey:  sanitizeEnv(utils.GetEnvTrimmed("BUTTONDOWN_API_KEY")),
			BaseURL: utils.GetEnvTrimmed("BUTTONDOWN_BASE_URL"),
		},
		Resend: notify.ResendConfig{
			APIKey:  sanitizeEnv(utils.GetEnvTrimmed("RESEND_API_KEY")),
			From:    sanitizeEnv(utils.GetEnvTrimmed("WELCOME_EMAIL_FROM")),
			Subject: utils.GetEnvTrimmed("WELCOME_EMAIL_SUBJECT"),
			BaseURL: utils.GetEnvTrimmed("RESEND_BASE_URL"),
		},
		Timeout: utils.GetEnvDurationOrDefault("NOTIFY_TIMEOUT", notify.DefaultTimeout),
		Async:   utils.GetEnvBoolOrDefault("NOTIFY_ASYNC", false),
	}
}

// NewDispatcher builds every configured notifier. Missing configuration only
// disables that provider.
func (nc *NotifierConfig) NewDispatcher(logger *log.Logger, registerer prometheus.Registerer) *notify.Dispatcher {
	var notifiers []notify.Notifier

	if n, err := notify.NewMailchimpNotifier(nc.Mailchimp); err != nil {
		warnNotifierDisabled(logger, "mailchimp", err)
	} else {
		notifiers = append(notifiers, n)
	}

	if n, err := notify.NewButtondownNotifier(nc.Buttondown); err != nil {
		warnNotifierDisabled(logger, "buttondown", err)
	} else {
		notifiers = append(notifiers, n)
	}

	if n, err := notify.NewResendNotifier(nc.Resend); err != nil {
		warnNotifierDisabled(logger, "resend", err)
	} else {
		notifiers = append(notifiers, n)
	}

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Timeout:    nc.Timeout,
		Async:      nc.Async,
		Registerer: registerer,
		Logger:     logger,
	}, notifiers...)

	logger.Info("Signup notifiers configured", "count", dispatcher.Len(), "async", nc.Async, "timeout", nc.Timeout.String())
	return dispatcher
}

func warnNotifierDisabled(logger *log.Logger, name string, err error) {
	if errors.Is(err, notify.ErrNotConfigured) {
		logger.Warn("Notifier not configured - skipping", "notifier", name, "reason", err.Error())
		return
	}
	logger.Error("Notifier disabled due to invalid configuration", "notifier", name, "error", err)
}
