package http

import (
	"net/http"

	"github.com/srcvote/evote/internal/auth/service"
	"github.com/srcvote/evote/pkg/authsdk"
	"github.com/srcvote/evote/pkg/httpx"
)

// Disable2FAHandler serves POST /v1/auth/superadmin/disable-2fa.
type Disable2FAHandler struct {
	LoginService *service.LoginService
}

// ServeHTTP godoc
//
//	@Summary		Disable two-factor authentication
//	@Description	Clears the super admin's authenticator secret after re-checking the password. All existing sessions of the account stop refreshing, and the next login starts authenticator setup again.
//	@Tags			Super admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.Disable2FARequest	true	"Own identifier and password"
//	@Success		200		{object}	authsdk.StatusResponse		"ok"
//	@Failure		400		{object}	authsdk.APIError			"invalid_request"
//	@Failure		401		{object}	authsdk.APIError			"invalid_credentials, invalid_token"
//	@Failure		403		{object}	authsdk.APIError			"not_permitted"
//	@Router			/v1/auth/superadmin/disable-2fa [post].
func (h *Disable2FAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var body authsdk.Disable2FARequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.LoginService.Disable2FA(r.Context(), service.Disable2FARequest{
		Identifier: body.Identifier,
		Password:   body.Password,
		ActorID:    claims.Subject,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Status: "ok"})
}
