package domain

import (
	"fmt"
	"time"
)

// Kind discriminates the three account variants sharing one record.
type Kind string

const (
	KindStudent         Kind = "student"
	KindUniversityAdmin Kind = "university_admin"
	KindSuperAdmin      Kind = "super_admin"
)

// Valid reports whether k is a known account kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStudent, KindUniversityAdmin, KindSuperAdmin:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// ParseKind converts a stored or transported kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("domain: unknown account kind %q", s)
	}
	return k, nil
}

// Account is a student, university admin or super admin.
//
// OTPTemp and OTPExpiryTemp are always both nil or both set. Version is
// bumped by every OTP or flag mutation and guards compare-and-set updates.
type Account struct {
	ID           string
	Kind         Kind
	Identifier   string // student id, or email for admins
	Email        string
	Name         string
	UniversityID *string // nil for super admins

	PasswordHash *string // nil means unusable, never a match
	IsActive     bool
	IsVerified   bool

	OTPSecret     *string // base32, 32 chars
	OTPTemp       *string
	OTPExpiryTemp *time.Time
	TwoFAEnabled  bool

	Version         int64
	TokensNotBefore *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Authenticatable is the capability shared by every account kind: what the
// credential verifier and OTP channels need to read.
type Authenticatable interface {
	AccountID() string
	AccountKind() Kind
	Address() string
	StoredPasswordHash() *string
	Secret() (string, bool)
	PendingCode() (code string, expiry time.Time, ok bool)
}

var _ Authenticatable = (*Account)(nil)

func (a *Account) AccountID() string           { return a.ID }
func (a *Account) AccountKind() Kind           { return a.Kind }
func (a *Account) Address() string             { return a.Email }
func (a *Account) StoredPasswordHash() *string { return a.PasswordHash }

// Secret returns the TOTP shared secret if one has been generated.
func (a *Account) Secret() (string, bool) {
	if a.OTPSecret == nil || *a.OTPSecret == "" {
		return "", false
	}
	return *a.OTPSecret, true
}

// PendingCode returns the emailed code awaiting verification, if any.
func (a *Account) PendingCode() (string, time.Time, bool) {
	if a.OTPTemp == nil || a.OTPExpiryTemp == nil {
		return "", time.Time{}, false
	}
	return *a.OTPTemp, *a.OTPExpiryTemp, true
}

// UniversityRef returns the university id or "" for super admins.
func (a *Account) UniversityRef() string {
	if a.UniversityID == nil {
		return ""
	}
	return *a.UniversityID
}

// NeedsTwoFactorSetup reports whether a super admin has yet to confirm an
// authenticator app. Other kinds never go through setup.
func (a *Account) NeedsTwoFactorSetup() bool {
	if a.Kind != KindSuperAdmin {
		return false
	}
	_, hasSecret := a.Secret()
	return !a.TwoFAEnabled || !hasSecret
}

// RevokedToken is a denylisted refresh token, kept until its natural expiry.
type RevokedToken struct {
	JTI       string
	AccountID string
	ExpiresAt time.Time
	RevokedAt time.Time
}
