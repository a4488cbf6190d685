// Package notify delivers one-time codes and authenticator keys to account
// holders. Drivers are interchangeable behind Notifier.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoRecipient is returned when Message.To is empty.
	ErrNoRecipient = errors.New("notify: no recipient")
	// ErrNoSender is returned when a driver has no From address configured.
	ErrNoSender = errors.New("notify: no sender configured")
)

// Message is a provider-agnostic plain-text notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	return nil
}

// Notifier sends a message to an address. Send is synchronous: it returns
// once the provider accepted or rejected the message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// OTPCode builds the email carrying a login code.
func OTPCode(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your login code",
		Body: fmt.Sprintf(
			"Your one-time login code is %s.\n\nIt expires in %d minutes. If you did not try to sign in, ignore this email.",
			code, int(ttl.Minutes())),
	}
}

// ManualKey builds the email carrying an authenticator setup key, for
// admins who cannot scan the QR code.
func ManualKey(to, key, issuer string) Message {
	return Message{
		To:      to,
		Subject: "Set up two-factor authentication",
		Body: fmt.Sprintf(
			"Add %s to your authenticator app with this key:\n\n%s\n\nThen sign in with the 6-digit code it shows.",
			issuer, key),
	}
}
