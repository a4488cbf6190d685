package notify

import (
	"context"
	"log/slog"
)

// Log writes messages to the logger instead of delivering them. It is the
// development default; bodies carry secrets, so never enable it in production.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
