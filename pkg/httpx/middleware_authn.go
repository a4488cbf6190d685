package httpx

import (
	"net/http"
	"slices"
	"strings"

	"github.com/srcvote/evote/pkg/jwtx"
	"github.com/srcvote/evote/pkg/slogx"
)

// AuthnMiddleware requires a valid access token in the Authorization header.
// Refresh tokens are rejected here even though they carry a valid signature.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			if err := claims.ValidateType(jwtx.TypeAccess); err != nil {
				writeBearerError(w, "access token required")
				return
			}

			ctx = slogx.WithAccount(contextWithAuth(ctx, claims), claims.Subject, claims.Kind)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireKind lets the request through only if the authenticated account
// is one of kinds.
func RequireKind(kinds ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(kinds, kindFromCtx(r.Context())) {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "access_denied",
					"error_description": "account kind not permitted",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
