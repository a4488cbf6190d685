package http

import (
	"errors"
	"net/http"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/service"
	"github.com/srcvote/evote/pkg/authsdk"
	"github.com/srcvote/evote/pkg/httpx"
)

// LoginHandler serves the portal login endpoints. Kinds restricts which
// accounts may log in through this portal.
type LoginHandler struct {
	LoginService *service.LoginService
	Kinds        []domain.Kind
}

// ServeHTTP godoc
//
//	@Summary		Log in with identifier and password
//	@Description	Checks the password and opens the one-time-code step. Unknown identifiers, wrong passwords and accounts of another portal get the same invalid_credentials response.
//	@Description	A super admin without an enrolled authenticator receives requires_setup with qr_uri and manual_key; the key is also emailed.
//	@Tags			Login
//	@Accept			json
//	@Produce		json
//	@Param			portal	path		string					true	"Login portal"	Enums(student, admin, superadmin)
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Pending OTP step"
//	@Failure		400		{object}	authsdk.APIError		"invalid_request"
//	@Failure		401		{object}	authsdk.APIError		"invalid_credentials"
//	@Failure		429		{object}	authsdk.APIError		"rate_limit_exceeded"
//	@Failure		502		{object}	authsdk.APIError		"delivery_failed"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/{portal}/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.LoginService.Login(r.Context(), service.LoginRequest{
		Identifier: body.Identifier,
		Password:   body.Password,
		Method:     body.Method,
	}, h.Kinds...)
	if err != nil {
		// An undelivered email code stays valid but the user has nothing to
		// type in, so it is reported as a failure.
		if errors.Is(err, service.ErrDeliveryFailure) {
			authsdk.ErrDeliveryFailed.WriteError(w)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse(res))
}

func loginResponse(res domain.LoginResult) authsdk.LoginResponse {
	out := authsdk.LoginResponse{
		State:         res.State.String(),
		RequiresOTP:   res.State == domain.StateOTPChallengePending,
		RequiresSetup: res.RequiresSetup(),
		Method:        string(res.Method),
		AccountID:     res.AccountID,
		Kind:          string(res.Kind),
		QRURI:         res.ProvisioningURI,
		ManualKey:     res.ManualKey,

		MFAToken:          res.MFAToken,
		MFATokenExpiresAt: res.MFATokenExpiresAt.UTC(),
	}
	if !res.ExpiresAt.IsZero() {
		exp := res.ExpiresAt.UTC()
		out.ExpiresAt = &exp
	}
	return out
}
