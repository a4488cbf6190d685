package http

import (
	"net/http"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/service"
	"github.com/srcvote/evote/pkg/authsdk"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/httpx"
)

// VerifyOTPHandler serves POST /v1/auth/verify-otp.
type VerifyOTPHandler struct {
	LoginService *service.LoginService
	Clock        clock.Clocker
}

// ServeHTTP godoc
//
//	@Summary		Verify a one-time code
//	@Description	Answers the pending OTP step and issues a session. mfa_token comes from the login response and is spent on success; an unknown, used or expired token gets login_expired.
//	@Description	Set is_setup when confirming a first authenticator enrolment.
//	@Description	Emailed codes are single use; authenticator codes are accepted for the previous, current and next 30 second step.
//	@Tags			Login
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.VerifyOTPRequest	true	"Code"
//	@Success		200		{object}	authsdk.TokenResponse		"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.APIError			"invalid_request"
//	@Failure		401		{object}	authsdk.APIError			"invalid_otp, expired_otp, login_expired"
//	@Failure		409		{object}	authsdk.APIError			"otp_not_set_up"
//	@Failure		429		{object}	authsdk.APIError			"too_many_attempts, rate_limit_exceeded"
//	@Header			200		{string}	Cache-Control				"no-store"
//	@Router			/v1/auth/verify-otp [post].
func (h *VerifyOTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body authsdk.VerifyOTPRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.LoginService.VerifyOTP(r.Context(), service.VerifyOTPRequest{
		Identifier: body.Identifier,
		MFAToken:   body.MFAToken,
		Code:       body.Code,
		Method:     body.Method,
		IsSetup:    body.IsSetup,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair, now(h.Clock)))
}

func tokenResponse(pair domain.TokenPair, now time.Time) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn(now),
	}
}

func now(c clock.Clocker) time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c.Now()
}
