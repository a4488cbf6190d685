package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/srcvote/evote/pkg/httpx"
)

// Error codes carried in the "error" field of every failure response.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidOTP         = "invalid_otp"
	ErrorCodeExpiredOTP         = "expired_otp"
	ErrorCodeLoginExpired       = "login_expired"
	ErrorCodeOTPNotSetUp        = "otp_not_set_up"
	ErrorCodeTooManyAttempts    = "too_many_attempts"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeNotPermitted       = "not_permitted"
	ErrorCodeDeliveryFailed     = "delivery_failed"
	ErrorCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
)

// APIError is the error body returned by the service. Handlers write it,
// and the client returns it for every non-2xx response.
type APIError struct {
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so callers can use errors.Is(err, authsdk.ErrInvalidOTP).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials covers unknown identifiers and wrong passwords alike.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid identifier or password",
	}

	ErrInvalidOTP = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidOTP,
		Description: "the one-time code is invalid",
	}

	ErrExpiredOTP = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeExpiredOTP,
		Description: "the one-time code has expired, log in again for a new one",
	}

	ErrLoginExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeLoginExpired,
		Description: "the login has expired or was already completed, log in again",
	}

	ErrOTPNotSetUp = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeOTPNotSetUp,
		Description: "two-factor authentication is not set up for this account",
	}

	ErrTooManyAttempts = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeTooManyAttempts,
		Description: "too many verification attempts, try again later",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is invalid, expired or revoked",
	}

	ErrNotPermitted = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeNotPermitted,
		Description: "operation not permitted for this account",
	}

	ErrDeliveryFailed = &APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        ErrorCodeDeliveryFailed,
		Description: "the one-time code could not be delivered",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var e APIError
	if err := json.Unmarshal(body, &e); err == nil && e.Code != "" {
		e.StatusCode = resp.StatusCode
		return &e
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
