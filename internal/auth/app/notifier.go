package app

import (
	"fmt"
	"log/slog"

	"github.com/srcvote/evote/internal/auth/notify"
)

// InitNotifier builds the email driver selected by cfg.Notifier.
func InitNotifier(cfg Config, logger *slog.Logger) (notify.Notifier, error) {
	switch cfg.Notifier {
	case "smtp":
		n, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("email delivery via smtp", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return n, nil

	case "sendgrid":
		n, err := notify.NewSendGrid(notify.SendGridConfig{
			APIKey:      cfg.SendGridAPIKey,
			From:        cfg.MailFrom,
			FromName:    cfg.MailFromName,
			SandboxMode: cfg.SendGridSandbox,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("email delivery via sendgrid", "sandbox", cfg.SendGridSandbox)
		return n, nil

	case "log", "":
		if cfg.Env == "prod" {
			logger.Warn("log notifier writes one-time codes to the log")
		}
		return notify.Log{Logger: logger}, nil

	default:
		return nil, fmt.Errorf("unknown notifier %q (supported: log, smtp, sendgrid)", cfg.Notifier)
	}
}
