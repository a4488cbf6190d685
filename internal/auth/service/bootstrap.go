package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/slogx"
)

var ErrBootstrapIncomplete = errors.New("bootstrap requires both email and password")

// BootstrapService creates the first super admin when none exists.
type BootstrapService struct {
	Store    store.Store
	Accounts *AccountService
}

// IsBootstrapped reports whether any super admin exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	return s.Store.Accounts().HasKind(ctx, domain.KindSuperAdmin)
}

// EnsureSuperAdmin creates the configured super admin unless one already
// exists. It reports whether an account was created. Two-factor is left
// disabled so the first login walks through authenticator setup.
func (s *BootstrapService) EnsureSuperAdmin(ctx context.Context, data domain.BootstrapData) (bool, error) {
	l := slogx.FromContext(ctx)

	if data.Email == "" || data.Password == "" {
		return false, ErrBootstrapIncomplete
	}

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return false, err
	}
	if bootstrapped {
		l.Debug("super admin already present, skipping bootstrap")
		return false, nil
	}

	name := data.Name
	if name == "" {
		name = "Super Admin"
	}
	password := data.Password
	acct, err := s.Accounts.Create(ctx, NewAccount{
		Kind:       domain.KindSuperAdmin,
		Identifier: data.Email,
		Email:      data.Email,
		Name:       name,
		Password:   &password,
		Verified:   true,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		l.Warn("bootstrap email already belongs to another account", slog.String("email", data.Email))
		return false, err
	}
	if err != nil {
		return false, err
	}

	l.Info("bootstrapped super admin", slog.String("account_id", acct.ID))
	return true, nil
}
