package service

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password so callers cannot probe which identifiers exist.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidOTP is a wrong code, or no code outstanding.
	ErrInvalidOTP = errors.New("invalid_otp")

	// ErrExpiredOTP is a correct emailed code submitted too late. The code
	// is consumed either way.
	ErrExpiredOTP = errors.New("expired_otp")

	// ErrNotSetUp means authenticator verification was attempted before a
	// secret exists or before two-factor setup completed.
	ErrNotSetUp = errors.New("otp_not_set_up")

	ErrInvalidToken = errors.New("invalid_token")

	// ErrDeliveryFailure wraps notifier errors. It never aborts setup since
	// the manual key is returned inline as well.
	ErrDeliveryFailure = errors.New("delivery_failure")

	ErrTooManyAttempts = errors.New("too_many_attempts")

	// ErrLoginExpired is an MFA token that is unknown, already used or past
	// its expiry. The caller has to start over with the password.
	ErrLoginExpired = errors.New("login_expired")

	// ErrNotPermitted is an operation the account kind may not perform.
	ErrNotPermitted = errors.New("not_permitted")

	ErrInvalidRequest = errors.New("invalid_request")
)
