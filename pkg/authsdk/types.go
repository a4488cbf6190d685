package authsdk

import (
	"time"

	"github.com/srcvote/evote/pkg/jwtx"
)

// Login states reported in LoginResponse.State.
const (
	StateOTPChallengePending = "otp_challenge_pending"
	StateOTPSetupPending     = "otp_setup_pending"
)

// OTP methods.
const (
	MethodEmail         = "email"
	MethodAuthenticator = "authenticator"
)

// LoginRequest is the body of the login endpoints.
type LoginRequest struct {
	Identifier string `json:"identifier" example:"stu001"`
	Password   string `json:"password"`

	// Method picks the OTP channel for students and university admins.
	// Super admins always use the authenticator.
	Method string `json:"method,omitempty" enums:"email,authenticator"`
}

// LoginResponse reports the pending OTP step after valid credentials.
type LoginResponse struct {
	State         string `json:"state" enums:"otp_challenge_pending,otp_setup_pending"`
	RequiresOTP   bool   `json:"requires_otp"`
	RequiresSetup bool   `json:"requires_setup"`
	Method        string `json:"method" enums:"email,authenticator"`
	AccountID     string `json:"account_id"`
	Kind          string `json:"kind"`

	// QRURI and ManualKey are only present while setting up an authenticator.
	QRURI     string `json:"qr_uri,omitempty" example:"otpauth://totp/SRC%20Voting:root@example.edu?secret=JBSWY3DPEHPK3PXP&issuer=SRC%20Voting"`
	ManualKey string `json:"manual_key,omitempty" example:"JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"`

	// ExpiresAt is set for emailed codes.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// MFAToken must be sent back with the code. It is single use and
	// bound to this account and channel.
	MFAToken          string    `json:"mfa_token"`
	MFATokenExpiresAt time.Time `json:"mfa_token_expires_at"`
}

// VerifyOTPRequest submits the one-time code for a pending login.
type VerifyOTPRequest struct {
	Identifier string `json:"identifier"`
	MFAToken   string `json:"mfa_token"`
	Code       string `json:"code" example:"123456"`
	Method     string `json:"method,omitempty" enums:"email,authenticator"`

	// IsSetup confirms a first authenticator enrolment.
	IsSetup bool `json:"is_setup,omitempty"`
}

// TokenResponse carries a session. RefreshToken is omitted on refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int64  `json:"expires_in" example:"900"`
}

// RefreshRequest is the body of the refresh and revoke endpoints.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Disable2FARequest re-confirms the super admin's password.
type Disable2FARequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// StatusResponse is a bare acknowledgement.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// HealthResponse represents the health check endpoint response.
type HealthResponse struct {
	// Status is the overall health status ("ok", "degraded")
	Status string `json:"status"`

	// Uptime is how long the service has been running
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version
	Version string `json:"version,omitempty"`

	// Checks contains the status of individual components (readyz only)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks contains the status of individual service components.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the public key set for verifying access tokens, served
// from GET /.well-known/jwks.json. Empty for HS256 deployments.
type JWKSResponse jwtx.JWKS
