package http

import (
	"encoding/json"
	"net/http"

	"github.com/srcvote/evote/pkg/authsdk"
	"github.com/srcvote/evote/pkg/jwtx"
)

// jwksMaxAge lets verifiers cache the key set between key rotations.
const jwksMaxAge = "public, max-age=300"

// JWKSHandler publishes the public half of the token signing key.
type JWKSHandler struct {
	Keys *jwtx.KeySet
}

// ServeHTTP godoc
//
//	@Summary		Signing keys
//	@Description	The Ed25519 key that signs access and refresh tokens, as a JWK set. A deployment on a shared HS256 secret publishes an empty set.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse
//	@Router			/.well-known/jwks.json [get].
func (h *JWKSHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	// Public keys are the one response worth caching, so skip httpx.WriteJSON.
	w.Header().Set("Cache-Control", jwksMaxAge)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(authsdk.JWKSResponse(h.Keys.PublicJWKS()))
}
