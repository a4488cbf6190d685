package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/cryptox"
	"github.com/srcvote/evote/pkg/idx"
	"github.com/srcvote/evote/pkg/otpx"
	"github.com/srcvote/evote/pkg/validatorx"
)

// NewAccount is the input to AccountService.Create.
type NewAccount struct {
	Kind         domain.Kind `json:"kind" validate:"required,oneof=student university_admin super_admin"`
	Identifier   string      `json:"identifier" validate:"required,max=254"`
	Email        string      `json:"email" validate:"required,email,max=254"`
	Name         string      `json:"name" validate:"max=200"`
	UniversityID string      `json:"university_id" validate:"required_unless=Kind super_admin,excluded_if=Kind super_admin"`

	// Password is optional; nil leaves the password unusable.
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=1024"`

	// Verified marks the account active and verified from the start.
	Verified bool `json:"-"`
}

// AccountService is the write side of the user directory used by
// bootstrap and imports.
type AccountService struct {
	Store     store.Store
	Clock     clock.Clocker
	Validator *validatorx.Validator
}

// Create inserts an account with a fresh TOTP secret.
func (s *AccountService) Create(ctx context.Context, in NewAccount) (domain.Account, error) {
	if s.Validator != nil {
		if err := s.Validator.Struct(in); err != nil {
			return domain.Account{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	secret, err := otpx.GenerateSecret()
	if err != nil {
		return domain.Account{}, err
	}

	now := nowFrom(s.Clock)
	acct := domain.Account{
		ID:         idx.NewAt(now).String(),
		Kind:       in.Kind,
		Identifier: strings.ToLower(strings.TrimSpace(in.Identifier)),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Name:       strings.TrimSpace(in.Name),
		OTPSecret:  &secret,
		IsActive:   in.Verified,
		IsVerified: in.Verified,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.UniversityID != "" {
		acct.UniversityID = &in.UniversityID
	}
	if in.Password != nil {
		hash, err := cryptox.HashPassword(*in.Password)
		if err != nil {
			return domain.Account{}, fmt.Errorf("hash password: %w", err)
		}
		acct.PasswordHash = &hash
	}

	if err := s.Store.Accounts().CreateAccount(ctx, acct); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

// SetPassword replaces the account's password with an argon2id hash.
func (s *AccountService) SetPassword(ctx context.Context, accountID, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is empty", ErrInvalidRequest)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	return retryOnConflict(ctx, s.Store, &acct, func(a *domain.Account) error {
		if err := s.Store.Accounts().UpdatePasswordHash(ctx, a.ID, a.Version, &hash); err != nil {
			return err
		}
		a.PasswordHash = &hash
		a.Version++
		return nil
	})
}
