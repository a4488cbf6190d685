package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for session tokens.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the session-token claims shared by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is the account kind the token was minted for
	// ("student", "university_admin", "super_admin").
	Kind string `json:"kind,omitempty"`

	// Type separates access from refresh tokens so one can never stand in
	// for the other.
	Type string `json:"typ,omitempty"`

	// Authentication Methods Reference ["pwd","otp"] or ["pwd","email"].
	AMR []string `json:"amr,omitempty"`

	Email        string `json:"email,omitempty"`
	UniversityID string `json:"university_id,omitempty"`
}

// ClaimsParams is the input to NewClaims.
type ClaimsParams struct {
	Subject      string
	Kind         string
	Type         string
	Email        string
	UniversityID string
	AMR          []string
	Issuer       string
	Audience     []string
	TTL          time.Duration
	Now          time.Time
}

// NewClaims builds minimally-correct claims with a fresh jti.
func NewClaims(p ClaimsParams) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(p.Now),
			NotBefore: jwt.NewNumericDate(p.Now),
			ExpiresAt: jwt.NewNumericDate(p.Now.Add(p.TTL)),
			ID:        NewJTI(),
		},
		Kind:         p.Kind,
		Type:         p.Type,
		AMR:          p.AMR,
		Email:        p.Email,
		UniversityID: p.UniversityID,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateType checks the "typ" claim.
func (c *Claims) ValidateType(expected string) error {
	if c.Type != expected {
		return ErrWrongType
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf
// at the given instant, allowing leeway for clock skew.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// IssuedBefore reports whether the token was issued strictly before t.
// iat has second precision, so t is truncated to the second as well.
// Tokens without iat are treated as issued at the beginning of time.
func (c *Claims) IssuedBefore(t time.Time) bool {
	if c.IssuedAt == nil {
		return true
	}
	return c.IssuedAt.Before(t.Truncate(time.Second))
}
