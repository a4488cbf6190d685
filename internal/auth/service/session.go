package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/jwtx"
	"github.com/srcvote/evote/pkg/slogx"
)

// Authentication Methods Reference values carried in the "amr" claim.
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
	AMREmail    = "email"
)

// SessionIssuer mints and renews JWT session pairs. Minting is pure; the
// store is only consulted to enforce revocation on Refresh.
type SessionIssuer struct {
	Signer     jwtx.Signer
	Verifier   jwtx.Verifier
	Store      store.Store
	Clock      clock.Clocker
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Mint produces an access/refresh pair bound to acct's id and kind.
func (s *SessionIssuer) Mint(acct *domain.Account, amr []string) (domain.TokenPair, error) {
	now := nowFrom(s.Clock)

	access, accessExp, err := s.sign(acct, jwtx.TypeAccess, s.accessTTL(), amr, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := s.sign(acct, jwtx.TypeRefresh, s.refreshTTL(), amr, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// returned pair has no refresh token. Every rejection is ErrInvalidToken.
func (s *SessionIssuer) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	acct, err := s.Store.Accounts().GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}

	// The kind is bound at mint time; a changed kind invalidates the session.
	if string(acct.Kind) != claims.Kind || !acct.IsActive {
		l.Info("refresh rejected for changed account", slog.String("account_id", acct.ID))
		return domain.TokenPair{}, ErrInvalidToken
	}
	if acct.TokensNotBefore != nil && claims.IssuedBefore(*acct.TokensNotBefore) {
		l.Info("refresh rejected by tokens_not_before", slog.String("account_id", acct.ID))
		return domain.TokenPair{}, ErrInvalidToken
	}

	access, accessExp, err := s.sign(&acct, jwtx.TypeAccess, s.accessTTL(), claims.AMR, nowFrom(s.Clock))
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:     access,
		TokenType:       "Bearer",
		AccessExpiresAt: accessExp,
	}, nil
}

// Revoke denylists the refresh token's jti until its natural expiry.
func (s *SessionIssuer) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	return s.Store.RevokedTokens().Revoke(ctx, domain.RevokedToken{
		JTI:       claims.ID,
		AccountID: claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: nowFrom(s.Clock),
	})
}

// verifyRefresh checks signature, expiry, type and the denylist.
func (s *SessionIssuer) verifyRefresh(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		slogx.FromContext(ctx).Debug("refresh token rejected", slog.Any("error", err))
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := claims.ValidateType(jwtx.TypeRefresh); err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return jwtx.Claims{}, ErrInvalidToken
	}

	revoked, err := s.Store.RevokedTokens().IsRevoked(ctx, claims.ID)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if revoked {
		return jwtx.Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (s *SessionIssuer) sign(
	acct *domain.Account,
	typ string,
	ttl time.Duration,
	amr []string,
	now time.Time,
) (string, time.Time, error) {
	claims := jwtx.NewClaims(jwtx.ClaimsParams{
		Subject:      acct.ID,
		Kind:         string(acct.Kind),
		Type:         typ,
		Email:        acct.Email,
		UniversityID: acct.UniversityRef(),
		AMR:          amr,
		Issuer:       s.Issuer,
		Audience:     s.Audience,
		TTL:          ttl,
		Now:          now,
	})
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return token, claims.ExpiresAt.Time, nil
}

func (s *SessionIssuer) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}

func (s *SessionIssuer) refreshTTL() time.Duration {
	if s.RefreshTTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.RefreshTTL
}
