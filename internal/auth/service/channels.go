package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/notify"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/otpx"
)

const (
	// DefaultEmailOTPTTL is how long an emailed code stays valid.
	DefaultEmailOTPTTL = 5 * time.Minute

	// DefaultTOTPIssuer labels the account inside authenticator apps.
	DefaultTOTPIssuer = "SRC Voting"
)

// OTPChannel issues and verifies one-time codes over one transport.
//
// Issue and Verify update acct in place (fields and Version) after each
// successful store write so callers can chain further compare-and-sets.
type OTPChannel interface {
	Method() domain.OTPMethod
	Issue(ctx context.Context, acct *domain.Account) (domain.ChannelResult, error)
	Verify(ctx context.Context, acct *domain.Account, code string, now time.Time) error
}

var (
	_ OTPChannel = (*AuthenticatorChannel)(nil)
	_ OTPChannel = (*EmailChannel)(nil)
)

// AuthenticatorChannel is TOTP through an authenticator app. Nothing is
// ever transmitted by Issue.
type AuthenticatorChannel struct {
	Store  store.Store
	Issuer string
}

func (c *AuthenticatorChannel) Method() domain.OTPMethod { return domain.MethodAuthenticator }

// Issue makes sure acct has a secret, generating and persisting one if it
// has none, and returns the provisioning URI and manual key.
func (c *AuthenticatorChannel) Issue(ctx context.Context, acct *domain.Account) (domain.ChannelResult, error) {
	err := retryOnConflict(ctx, c.Store, acct, func(a *domain.Account) error {
		if _, ok := a.Secret(); ok {
			return nil
		}
		secret, err := otpx.GenerateSecret()
		if err != nil {
			return err
		}
		if err := c.Store.Accounts().SetOTPSecret(ctx, a.ID, a.Version, secret); err != nil {
			return err
		}
		a.OTPSecret = &secret
		a.Version++
		return nil
	})
	if err != nil {
		return domain.ChannelResult{}, fmt.Errorf("ensure otp secret: %w", err)
	}

	secret, _ := acct.Secret()
	uri, err := otpx.ProvisioningURI(secret, accountLabel(acct), c.issuer())
	if err != nil {
		return domain.ChannelResult{}, fmt.Errorf("provisioning uri: %w", err)
	}

	return domain.ChannelResult{
		Method:          domain.MethodAuthenticator,
		ProvisioningURI: uri,
		ManualKey:       secret,
	}, nil
}

// Verify accepts codes for now-30s, now and now+30s.
func (c *AuthenticatorChannel) Verify(_ context.Context, acct *domain.Account, code string, now time.Time) error {
	secret, ok := acct.Secret()
	if !ok {
		return ErrNotSetUp
	}
	if !otpx.Validate(code, secret, now) {
		return ErrInvalidOTP
	}
	return nil
}

func (c *AuthenticatorChannel) issuer() string {
	if c.Issuer == "" {
		return DefaultTOTPIssuer
	}
	return c.Issuer
}

// EmailChannel sends a random numeric code by email. Only the latest code
// is valid and each code can be consumed once.
type EmailChannel struct {
	Store    store.Store
	Notifier notify.Notifier
	Clock    clock.Clocker
	TTL      time.Duration
}

func (c *EmailChannel) Method() domain.OTPMethod { return domain.MethodEmail }

// Issue stores a fresh code, overwriting any earlier one, then sends it.
// A send failure is returned wrapped in ErrDeliveryFailure; the stored code
// stays valid.
func (c *EmailChannel) Issue(ctx context.Context, acct *domain.Account) (domain.ChannelResult, error) {
	code, err := otpx.RandomNumericCode(otpx.DefaultCodeLength)
	if err != nil {
		return domain.ChannelResult{}, err
	}
	// Stored as unix ms; truncate so the reported expiry is the stored one.
	expiry := nowFrom(c.Clock).Add(c.ttl()).Truncate(time.Millisecond)

	err = retryOnConflict(ctx, c.Store, acct, func(a *domain.Account) error {
		if err := c.Store.Accounts().SetTempOTP(ctx, a.ID, a.Version, code, expiry); err != nil {
			return err
		}
		a.OTPTemp, a.OTPExpiryTemp = &code, &expiry
		a.Version++
		return nil
	})
	if err != nil {
		return domain.ChannelResult{}, fmt.Errorf("store email otp: %w", err)
	}

	res := domain.ChannelResult{Method: domain.MethodEmail, ExpiresAt: expiry}
	if err := c.Notifier.Send(ctx, notify.OTPCode(acct.Email, code, c.ttl())); err != nil {
		return res, fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
	}
	res.Delivered = true
	return res, nil
}

// Verify checks code against the stored one. A mismatch leaves the stored
// code in place. A match consumes it, and then succeeds only if now is
// strictly before the expiry.
func (c *EmailChannel) Verify(ctx context.Context, acct *domain.Account, code string, now time.Time) error {
	stored, expiry, ok := acct.PendingCode()
	if !ok {
		return ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(stored)) != 1 {
		return ErrInvalidOTP
	}

	// The clear is a compare-and-set, so of two concurrent verifications
	// holding the same version only one gets past this point.
	if err := c.Store.Accounts().ClearTempOTP(ctx, acct.ID, acct.Version); err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("clear email otp: %w", err)
	}
	acct.OTPTemp, acct.OTPExpiryTemp = nil, nil
	acct.Version++

	if !now.Before(expiry) {
		return ErrExpiredOTP
	}
	return nil
}

func (c *EmailChannel) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultEmailOTPTTL
	}
	return c.TTL
}

// accountLabel names the account inside authenticator apps.
func accountLabel(acct *domain.Account) string {
	if acct.Email != "" {
		return acct.Email
	}
	return acct.Identifier
}

// retryOnConflict runs fn and, if it lost a compare-and-set, reloads acct
// and runs fn once more.
func retryOnConflict(ctx context.Context, s store.Store, acct *domain.Account, fn func(a *domain.Account) error) error {
	err := fn(acct)
	if !errors.Is(err, store.ErrConflict) {
		return err
	}

	fresh, err := s.Accounts().GetAccountByID(ctx, acct.ID)
	if err != nil {
		return err
	}
	*acct = fresh
	return fn(acct)
}

func nowFrom(c clock.Clocker) time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c.Now()
}
