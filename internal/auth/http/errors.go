package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/srcvote/evote/internal/auth/service"
	"github.com/srcvote/evote/pkg/authsdk"
	"github.com/srcvote/evote/pkg/slogx"
	"github.com/srcvote/evote/pkg/validatorx"
)

// writeServiceError maps service errors onto API error bodies. Anything
// unrecognised is logged and reported as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeInvalidRequest(w, err)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrLoginExpired):
		authsdk.ErrLoginExpired.WriteError(w)
	case errors.Is(err, service.ErrExpiredOTP):
		authsdk.ErrExpiredOTP.WriteError(w)
	case errors.Is(err, service.ErrInvalidOTP):
		authsdk.ErrInvalidOTP.WriteError(w)
	case errors.Is(err, service.ErrNotSetUp):
		authsdk.ErrOTPNotSetUp.WriteError(w)
	case errors.Is(err, service.ErrTooManyAttempts):
		authsdk.ErrTooManyAttempts.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		authsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrNotPermitted):
		authsdk.ErrNotPermitted.WriteError(w)
	case errors.Is(err, service.ErrDeliveryFailure):
		authsdk.ErrDeliveryFailed.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		authsdk.ErrServerError.WriteError(w)
	}
}

func writeInvalidRequest(w http.ResponseWriter, err error) {
	var ve validatorx.ValidationError
	if !errors.As(err, &ve) {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	(&authsdk.APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        authsdk.ErrorCodeInvalidRequest,
		Description: ve.Error(),
	}).WriteError(w)
}
