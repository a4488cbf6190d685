package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// ErrSendGridAPIKeyRequired is returned when no API key is configured.
var ErrSendGridAPIKeyRequired = errors.New("notify: sendgrid api key is required")

// SendGridConfig configures the SendGrid driver.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string

	// SandboxMode asks SendGrid to validate without delivering.
	SandboxMode bool

	// Host overrides the API base URL (tests).
	Host string
}

// SendGrid is a Notifier backed by the SendGrid v3 mail API.
type SendGrid struct {
	cfg SendGridConfig
}

// NewSendGrid constructs a SendGrid notifier.
func NewSendGrid(cfg SendGridConfig) (*SendGrid, error) {
	if cfg.APIKey == "" {
		return nil, ErrSendGridAPIKeyRequired
	}
	if cfg.From == "" {
		return nil, ErrNoSender
	}
	if cfg.Host == "" {
		cfg.Host = sendGridHost
	}
	return &SendGrid{cfg: cfg}, nil
}

// Send posts msg to SendGrid. Any non-2xx status is an error.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	from := mail.NewEmail(s.cfg.FromName, s.cfg.From)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	if s.cfg.SandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	req := sendgrid.GetRequest(s.cfg.APIKey, sendGridEndpoint, s.cfg.Host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
