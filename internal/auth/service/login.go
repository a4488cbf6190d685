package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/metrics"
	"github.com/srcvote/evote/internal/auth/notify"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/cryptox"
	"github.com/srcvote/evote/pkg/slogx"
	"github.com/srcvote/evote/pkg/validatorx"
)

// LoginRequest submits credentials. Password is deliberately not required:
// an empty password is just a wrong password.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"max=1024"`
	Method     string `json:"method" validate:"omitempty,oneof=email authenticator"`
}

const (
	// DefaultChallengeTTL is how long an MFA token from Login stays usable.
	DefaultChallengeTTL = 10 * time.Minute

	// DefaultChallengeAttempts bounds wrong codes per MFA token.
	DefaultChallengeAttempts = 5
)

// VerifyOTPRequest submits a one-time code for a pending login. MFAToken is
// the token Login returned; without it no code is accepted.
type VerifyOTPRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	MFAToken   string `json:"mfa_token" validate:"required,max=128"`
	Code       string `json:"code" validate:"required,otp_code"`

	// Method is accepted for compatibility; the challenge fixes the channel.
	Method  string `json:"method" validate:"omitempty,oneof=email authenticator"`
	IsSetup bool   `json:"is_setup"`
}

// Disable2FARequest turns two-factor off for a super admin.
type Disable2FARequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"max=1024"`

	// ActorID, when set, must be the account being changed.
	ActorID string `json:"-"`
}

// LoginService runs the login protocol:
//
//	Start -> CredentialsChecked -> OTPSetupPending | OTPChallengePending -> Authenticated
//
// with Rejected reachable from every step. Login stores the pending step as
// a LoginChallenge and hands out its MFA token; VerifyOTP only answers that
// challenge.
type LoginService struct {
	Store         store.Store
	Credentials   CredentialVerifier
	Authenticator *AuthenticatorChannel
	Email         *EmailChannel
	Sessions      *SessionIssuer
	Limiter       *AttemptLimiter
	Notifier      notify.Notifier
	Clock         clock.Clocker
	Metrics       *metrics.Metrics
	Validator     *validatorx.Validator

	ChallengeTTL      time.Duration
	ChallengeAttempts int
}

// Login checks credentials and opens an OTP challenge or setup. kinds, when
// given, restricts which account kinds may log in through this call; any
// other kind is rejected exactly like a wrong password.
//
// For an emailed challenge whose delivery failed, the result is returned
// together with an error wrapping ErrDeliveryFailure.
func (s *LoginService) Login(ctx context.Context, req LoginRequest, kinds ...domain.Kind) (domain.LoginResult, error) {
	if err := s.validate(req); err != nil {
		return rejected(), err
	}
	method, err := domain.ParseOTPMethod(req.Method)
	if err != nil {
		return rejected(), fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// 1. Credentials
	acct, err := s.authenticate(ctx, req.Identifier, req.Password, kinds)
	if err != nil {
		s.Metrics.Login(kindLabel(kinds), "invalid_credentials")
		return rejected(), err
	}
	ctx = slogx.WithAccount(ctx, acct.ID, string(acct.Kind))
	l := slogx.FromContext(ctx)

	// 2. Branch on kind and two-factor state
	state, channel := s.pendingState(&acct, method)
	if state == domain.StateOTPSetupPending {
		return s.beginSetup(ctx, &acct)
	}

	res, err := channel.Issue(ctx, &acct)
	if err != nil && !errors.Is(err, ErrDeliveryFailure) {
		l.Error("failed to issue otp challenge", slog.Any("error", err))
		s.Metrics.Login(string(acct.Kind), "error")
		return rejected(), err
	}
	if channel.Method() == domain.MethodEmail {
		s.Metrics.OTPIssued(string(domain.MethodEmail), res.Delivered)
	}

	out := domain.LoginResult{
		State:     domain.StateOTPChallengePending,
		AccountID: acct.ID,
		Kind:      acct.Kind,
		Method:    channel.Method(),
		ExpiresAt: res.ExpiresAt,
	}
	// Students and university admins may be enrolling the app on this very
	// login, so they get the URI. Enrolled super admins never see it again.
	if channel.Method() == domain.MethodAuthenticator && acct.Kind != domain.KindSuperAdmin {
		out.ProvisioningURI = res.ProvisioningURI
	}

	// The emailed code stays stored when delivery fails, so the challenge
	// is opened either way and a resend can be answered.
	if cerr := s.openChallenge(ctx, &acct, &out); cerr != nil {
		l.Error("failed to open login challenge", slog.Any("error", cerr))
		s.Metrics.Login(string(acct.Kind), "error")
		return rejected(), cerr
	}

	if err != nil {
		l.Warn("otp email delivery failed", slog.Any("error", err))
		s.Metrics.Login(string(acct.Kind), "delivery_failed")
		return out, err
	}

	l.Info("otp challenge issued", slog.String("method", string(out.Method)))
	s.Metrics.Login(string(acct.Kind), "otp_required")
	return out, nil
}

// beginSetup issues the authenticator secret for a super admin who has not
// completed two-factor setup, and emails the manual key as a fallback.
func (s *LoginService) beginSetup(ctx context.Context, acct *domain.Account) (domain.LoginResult, error) {
	l := slogx.FromContext(ctx)

	res, err := s.Authenticator.Issue(ctx, acct)
	if err != nil {
		l.Error("failed to issue authenticator secret", slog.Any("error", err))
		s.Metrics.Login(string(acct.Kind), "error")
		return rejected(), err
	}

	out := domain.LoginResult{
		State:           domain.StateOTPSetupPending,
		AccountID:       acct.ID,
		Kind:            acct.Kind,
		Method:          domain.MethodAuthenticator,
		ProvisioningURI: res.ProvisioningURI,
		ManualKey:       res.ManualKey,
	}
	if err := s.openChallenge(ctx, acct, &out); err != nil {
		l.Error("failed to open login challenge", slog.Any("error", err))
		s.Metrics.Login(string(acct.Kind), "error")
		return rejected(), err
	}

	delivered := true
	if s.Notifier != nil {
		msg := notify.ManualKey(acct.Email, res.ManualKey, s.Authenticator.issuer())
		if err := s.Notifier.Send(ctx, msg); err != nil {
			delivered = false
			l.Warn("manual key delivery failed", slog.Any("error", fmt.Errorf("%w: %w", ErrDeliveryFailure, err)))
		}
	}
	s.Metrics.OTPIssued(string(domain.MethodAuthenticator), delivered)
	s.Metrics.Login(string(acct.Kind), "setup_required")
	l.Info("two-factor setup issued")
	return out, nil
}

// openChallenge records that acct passed the password step and sets the
// MFA token on out. It replaces any earlier challenge of the account.
func (s *LoginService) openChallenge(ctx context.Context, acct *domain.Account, out *domain.LoginResult) error {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	now := nowFrom(s.Clock).Truncate(time.Millisecond)
	c := domain.LoginChallenge{
		ID:        cryptox.FingerprintToken(token),
		AccountID: acct.ID,
		State:     out.State,
		Method:    out.Method,
		CreatedAt: now,
		ExpiresAt: now.Add(s.challengeTTL()),
	}
	if err := s.Store.LoginChallenges().CreateChallenge(ctx, c); err != nil {
		return fmt.Errorf("store login challenge: %w", err)
	}
	out.MFAToken = token
	out.MFATokenExpiresAt = c.ExpiresAt
	return nil
}

// VerifyOTP answers the challenge Login opened and mints a session. The
// MFA token decides the account, the step and the channel; the identifier
// must name the same account.
func (s *LoginService) VerifyOTP(ctx context.Context, req VerifyOTPRequest, kinds ...domain.Kind) (domain.TokenPair, error) {
	if err := s.validate(req); err != nil {
		return domain.TokenPair{}, err
	}
	if _, err := domain.ParseOTPMethod(req.Method); err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	now := nowFrom(s.Clock)
	challenges := s.Store.LoginChallenges()
	l := slogx.FromContext(ctx)

	// 1. The pending challenge
	challengeID := cryptox.FingerprintToken(req.MFAToken)
	challenge, err := challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.OTPVerification("unknown", "login_expired")
			return domain.TokenPair{}, ErrLoginExpired
		}
		return domain.TokenPair{}, err
	}
	method := string(challenge.Method)
	if challenge.Expired(now) {
		_ = challenges.DeleteChallenge(ctx, challengeID)
		s.Metrics.OTPVerification(method, "login_expired")
		return domain.TokenPair{}, ErrLoginExpired
	}
	if challenge.Attempts >= s.challengeAttempts() {
		_ = challenges.DeleteChallenge(ctx, challengeID)
		l.Warn("login challenge exceeded max attempts", slog.String("account_id", challenge.AccountID))
		s.Metrics.OTPVerification(method, "too_many_attempts")
		return domain.TokenPair{}, ErrTooManyAttempts
	}

	// 2. The account it belongs to. A mismatch looks like a wrong code.
	acct, err := s.Store.Accounts().GetAccountByID(ctx, challenge.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrLoginExpired
		}
		return domain.TokenPair{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(req.Identifier), acct.Identifier) ||
		(len(kinds) > 0 && !slices.Contains(kinds, acct.Kind)) {
		s.Metrics.OTPVerification(method, "invalid")
		return domain.TokenPair{}, ErrInvalidOTP
	}
	ctx = slogx.WithAccount(ctx, acct.ID, string(acct.Kind))
	l = slogx.FromContext(ctx)

	// 3. Attempt budget across challenges
	if !s.Limiter.Allow(acct.ID, now) {
		l.Warn("otp attempt budget exhausted")
		s.Metrics.OTPVerification(method, "too_many_attempts")
		return domain.TokenPair{}, ErrTooManyAttempts
	}

	// 4. Verify through the challenge's channel
	state, channel := challenge.State, s.channelFor(challenge.Method)
	if state == domain.StateOTPSetupPending && !req.IsSetup {
		s.Metrics.OTPVerification(method, "not_set_up")
		return domain.TokenPair{}, ErrNotSetUp
	}

	if err := channel.Verify(ctx, &acct, req.Code, now); err != nil {
		s.Metrics.OTPVerification(method, verifyResult(err))
		l.Info("otp verification failed",
			slog.String("state", state.String()),
			slog.String("method", method),
			slog.Any("error", err),
		)
		if errors.Is(err, ErrInvalidOTP) {
			if _, ierr := challenges.IncrementAttempts(ctx, challengeID); ierr != nil && !errors.Is(ierr, store.ErrNotFound) {
				l.Error("failed to count login challenge attempt", slog.Any("error", ierr))
			}
		}
		return domain.TokenPair{}, err
	}

	// 5. Consume the challenge. Losing this race means another request
	// already completed the login.
	if err := challenges.DeleteChallenge(ctx, challengeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.OTPVerification(method, "login_expired")
			return domain.TokenPair{}, ErrLoginExpired
		}
		return domain.TokenPair{}, err
	}

	// 6. Persist the transition
	err = retryOnConflict(ctx, s.Store, &acct, func(a *domain.Account) error {
		if state == domain.StateOTPSetupPending && !a.TwoFAEnabled {
			if err := s.Store.Accounts().EnableTwoFactor(ctx, a.ID, a.Version); err != nil {
				return err
			}
			a.TwoFAEnabled = true
			a.Version++
		}
		if !a.IsActive || !a.IsVerified {
			if err := s.Store.Accounts().MarkVerified(ctx, a.ID, a.Version); err != nil {
				return err
			}
			a.IsActive, a.IsVerified = true, true
			a.Version++
		}
		return nil
	})
	if err != nil {
		l.Error("failed to persist login transition", slog.Any("error", err))
		return domain.TokenPair{}, err
	}
	s.Limiter.Reset(acct.ID)

	// 7. Authenticated
	pair, err := s.Sessions.Mint(&acct, amrFor(channel.Method()))
	if err != nil {
		s.Metrics.Token("mint", "error")
		return domain.TokenPair{}, err
	}
	s.Metrics.OTPVerification(method, "success")
	s.Metrics.Token("mint", "ok")
	l.Info("login completed", slog.String("state", state.String()), slog.String("method", method))
	return pair, nil
}

// Disable2FA re-checks the super admin's password, clears two-factor and
// the TOTP secret, and invalidates every session issued so far.
func (s *LoginService) Disable2FA(ctx context.Context, req Disable2FARequest) error {
	if err := s.validate(req); err != nil {
		return err
	}

	acct, err := s.authenticate(ctx, req.Identifier, req.Password, nil)
	if err != nil {
		return err
	}
	if acct.Kind != domain.KindSuperAdmin || (req.ActorID != "" && req.ActorID != acct.ID) {
		return ErrNotPermitted
	}
	ctx = slogx.WithAccount(ctx, acct.ID, string(acct.Kind))
	now := nowFrom(s.Clock)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		fresh, err := tx.Accounts().GetAccountByID(ctx, acct.ID)
		if err != nil {
			return err
		}
		if err := tx.Accounts().DisableTwoFactor(ctx, fresh.ID, fresh.Version); err != nil {
			return err
		}
		return tx.Accounts().BumpTokensNotBefore(ctx, fresh.ID, fresh.Version+1, now)
	})
	if err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}

	slogx.FromContext(ctx).Info("two-factor disabled")
	return nil
}

// Refresh renews an access token.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	pair, err := s.Sessions.Refresh(ctx, refreshToken)
	s.Metrics.Token("refresh", tokenResult(err))
	return pair, err
}

// Revoke denylists a refresh token.
func (s *LoginService) Revoke(ctx context.Context, refreshToken string) error {
	err := s.Sessions.Revoke(ctx, refreshToken)
	s.Metrics.Token("revoke", tokenResult(err))
	return err
}

// pendingState decides which OTP step acct is in and through which channel
// it must be answered.
func (s *LoginService) pendingState(acct *domain.Account, requested domain.OTPMethod) (domain.LoginState, OTPChannel) {
	if acct.Kind == domain.KindSuperAdmin {
		if acct.NeedsTwoFactorSetup() {
			return domain.StateOTPSetupPending, s.Authenticator
		}
		return domain.StateOTPChallengePending, s.Authenticator
	}
	if requested == domain.MethodAuthenticator {
		return domain.StateOTPChallengePending, s.Authenticator
	}
	return domain.StateOTPChallengePending, s.Email
}

func (s *LoginService) channelFor(m domain.OTPMethod) OTPChannel {
	if m == domain.MethodAuthenticator {
		return s.Authenticator
	}
	return s.Email
}

func (s *LoginService) challengeTTL() time.Duration {
	if s.ChallengeTTL <= 0 {
		return DefaultChallengeTTL
	}
	return s.ChallengeTTL
}

func (s *LoginService) challengeAttempts() int {
	if s.ChallengeAttempts <= 0 {
		return DefaultChallengeAttempts
	}
	return s.ChallengeAttempts
}

// authenticate looks the account up and checks the password. Every failure
// is ErrInvalidCredentials, and unknown identifiers cost as much time as
// wrong passwords.
func (s *LoginService) authenticate(ctx context.Context, identifier, password string, kinds []domain.Kind) (domain.Account, error) {
	l := slogx.FromContext(ctx)

	acct, err := s.Store.Accounts().GetAccountByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, err
		}
		s.Credentials.burnCheck(password)
		l.Info("login rejected", slog.String("reason", "unknown identifier"))
		return domain.Account{}, ErrInvalidCredentials
	}

	if !s.Credentials.CheckPassword(password, acct.PasswordHash) {
		l.Info("login rejected", slog.String("reason", "password mismatch"), slog.String("account_id", acct.ID))
		return domain.Account{}, ErrInvalidCredentials
	}
	if len(kinds) > 0 && !slices.Contains(kinds, acct.Kind) {
		l.Info("login rejected", slog.String("reason", "kind not allowed"), slog.String("account_id", acct.ID))
		return domain.Account{}, ErrInvalidCredentials
	}

	if s.Credentials.NeedsRehash(acct.PasswordHash) {
		s.rehash(ctx, &acct, password)
	}
	return acct, nil
}

// rehash upgrades a legacy hash. Failure only costs the upgrade.
func (s *LoginService) rehash(ctx context.Context, acct *domain.Account, password string) {
	l := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Warn("password rehash failed", slog.Any("error", err))
		return
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, acct.ID, acct.Version, &hash); err != nil {
		l.Warn("password rehash not stored", slog.Any("error", err))
		return
	}
	acct.PasswordHash = &hash
	acct.Version++
	l.Info("password hash upgraded", slog.String("account_id", acct.ID))
}

func (s *LoginService) validate(req any) error {
	if s.Validator == nil {
		return nil
	}
	if err := s.Validator.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func rejected() domain.LoginResult {
	return domain.LoginResult{State: domain.StateRejected}
}

func amrFor(method domain.OTPMethod) []string {
	if method == domain.MethodEmail {
		return []string{AMRPassword, AMREmail}
	}
	return []string{AMRPassword, AMROTP}
}

func kindLabel(kinds []domain.Kind) string {
	if len(kinds) == 1 {
		return string(kinds[0])
	}
	return "any"
}

func verifyResult(err error) string {
	switch {
	case errors.Is(err, ErrExpiredOTP):
		return "expired"
	case errors.Is(err, ErrNotSetUp):
		return "not_set_up"
	case errors.Is(err, ErrInvalidOTP):
		return "invalid"
	default:
		return "error"
	}
}

func tokenResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	default:
		return "error"
	}
}
