package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithAccount tags the request logger with the account being authenticated.
// Only the opaque id and kind are logged, never the identifier itself.
func WithAccount(ctx context.Context, accountID, kind string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("account_id", accountID, "account_kind", kind))
}
