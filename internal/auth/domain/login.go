package domain

import (
	"fmt"
	"strings"
	"time"
)

// LoginState is the position of an account in the login protocol.
type LoginState int

const (
	StateStart LoginState = iota
	StateCredentialsChecked
	StateOTPSetupPending
	StateOTPChallengePending
	StateAuthenticated
	StateRejected
)

func (s LoginState) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateCredentialsChecked:
		return "credentials_checked"
	case StateOTPSetupPending:
		return "otp_setup_pending"
	case StateOTPChallengePending:
		return "otp_challenge_pending"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("LoginState(%d)", int(s))
	}
}

// ParseLoginState is the inverse of LoginState.String.
func ParseLoginState(s string) (LoginState, error) {
	for st := StateStart; st <= StateRejected; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("domain: unknown login state %q", s)
}

// OTPMethod selects the channel a one-time code travels through.
type OTPMethod string

const (
	MethodEmail         OTPMethod = "email"
	MethodAuthenticator OTPMethod = "authenticator"
)

// ParseOTPMethod maps request input to a method. Empty selects email.
func ParseOTPMethod(s string) (OTPMethod, error) {
	switch OTPMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodEmail:
		return MethodEmail, nil
	case MethodAuthenticator:
		return MethodAuthenticator, nil
	}
	return "", fmt.Errorf("domain: unknown otp method %q", s)
}

// ChannelResult is what an OTP channel hands back after issuing a challenge.
type ChannelResult struct {
	Method OTPMethod

	// Authenticator only.
	ProvisioningURI string
	ManualKey       string

	// Email only.
	ExpiresAt time.Time
	Delivered bool
}

// LoginResult is the outcome of a successful credentials check.
type LoginResult struct {
	State     LoginState
	AccountID string
	Kind      Kind
	Method    OTPMethod

	// Set when State is StateOTPSetupPending.
	ProvisioningURI string
	ManualKey       string

	// Set for emailed challenges.
	ExpiresAt time.Time

	// MFAToken must accompany the code in VerifyOTP. It is the only proof
	// that the password step passed.
	MFAToken          string
	MFATokenExpiresAt time.Time
}

// RequiresSetup reports whether the caller must enrol an authenticator app.
func (r LoginResult) RequiresSetup() bool { return r.State == StateOTPSetupPending }

// LoginChallenge is a login that passed the password check and now waits
// for a one-time code. The caller holds the opaque MFA token; only its
// fingerprint is stored.
type LoginChallenge struct {
	ID        string
	AccountID string
	State     LoginState // StateOTPSetupPending or StateOTPChallengePending
	Method    OTPMethod
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the challenge can no longer be answered at now.
func (c LoginChallenge) Expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }
