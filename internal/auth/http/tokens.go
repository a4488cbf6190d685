package http

import (
	"net/http"
	"strings"

	"github.com/srcvote/evote/internal/auth/service"
	"github.com/srcvote/evote/pkg/authsdk"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/httpx"
	"github.com/srcvote/evote/pkg/slogx"
)

// RefreshHandler serves POST /v1/auth/refresh.
type RefreshHandler struct {
	LoginService *service.LoginService
	Clock        clock.Clocker
}

// ServeHTTP godoc
//
//	@Summary		Refresh an access token
//	@Description	Exchanges a refresh token for a new access token. The refresh token is not rotated.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.APIError		"invalid_request"
//	@Failure		401		{object}	authsdk.APIError		"invalid_token"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil || strings.TrimSpace(body.RefreshToken) == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.LoginService.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair, now(h.Clock)))
}

// RevokeHandler serves POST /v1/auth/revoke. Invalid or unknown tokens
// still get 200 so the endpoint cannot be used to probe tokens.
type RevokeHandler struct {
	LoginService *service.LoginService
}

// ServeHTTP godoc
//
//	@Summary		Revoke a refresh token
//	@Description	Ends a session. Idempotent; answers 200 even for invalid or unknown tokens.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.StatusResponse	"ok"
//	@Failure		400		{object}	authsdk.APIError		"invalid_request"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil || strings.TrimSpace(body.RefreshToken) == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.LoginService.Revoke(r.Context(), body.RefreshToken); err != nil {
		slogx.FromContext(r.Context()).Warn("revoke refresh failed", "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Status: "ok"})
}
