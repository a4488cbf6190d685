package http

import (
	"net/http"
	"time"

	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/authsdk"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/httpx"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	Version     string
	Started     time.Time
	Clock       clock.Clocker
	Store       store.Store
	SignerReady func() bool
}

// Livez godoc
//
//	@Summary		Liveness probe
//	@Description	Always ok while the process serves requests. Does not touch the database.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func (h *HealthHandler) Livez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.response("ok", nil))
}

// Readyz godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the account store and checks that a signing key is loaded. Any failed check reports degraded with 503.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"degraded"
//	@Router			/readyz [get].
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := &authsdk.HealthChecks{Database: "ok", Signer: "ok"}
	degraded := false

	if err := h.Store.Ping(r.Context()); err != nil {
		checks.Database = "error: " + err.Error()
		degraded = true
	}
	if h.SignerReady != nil && !h.SignerReady() {
		checks.Signer = "error: no keys loaded"
		degraded = true
	}

	if degraded {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, h.response("degraded", checks))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.response("ok", checks))
}

func (h *HealthHandler) response(status string, checks *authsdk.HealthChecks) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  now(h.Clock).Sub(h.Started).Truncate(time.Second).String(),
		Version: h.Version,
		Checks:  checks,
	}
}
