package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/srcvote/evote/pkg/httpx"
	"github.com/srcvote/evote/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func newKeyManager(t *testing.T) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Verify: jwtx.VerifyOptions{Issuer: "evote"}})
	require.NoError(t, err)
	return km
}

func sign(t *testing.T, km *jwtx.KeyManager, kind, typ string) string {
	t.Helper()
	tok, err := km.Signer().Sign(jwtx.NewClaims(jwtx.ClaimsParams{
		Subject: "acct-1",
		Kind:    kind,
		Type:    typ,
		Issuer:  "evote",
		TTL:     time.Minute,
		Now:     time.Now(),
	}))
	require.NoError(t, err)
	return tok
}

func TestAuthnMiddleware(t *testing.T) {
	km := newKeyManager(t)

	var seen jwtx.Claims
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}), httpx.AuthnMiddleware(km.Verifier()), httpx.RequireKind("super_admin"))

	do := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing header", func(t *testing.T) {
		rec := do("")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer"))
	})

	t.Run("garbage token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, do("Bearer nope").Code)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, do("Bearer "+sign(t, km, "super_admin", jwtx.TypeRefresh)).Code)
	})

	t.Run("wrong kind", func(t *testing.T) {
		require.Equal(t, http.StatusForbidden, do("Bearer "+sign(t, km, "student", jwtx.TypeAccess)).Code)
	})

	t.Run("ok", func(t *testing.T) {
		rec := do("Bearer " + sign(t, km, "super_admin", jwtx.TypeAccess))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "acct-1", seen.Subject)
	})
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Identifier string `json:"identifier"`
	}

	t.Run("ok", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"identifier":"x"}`))
		require.NoError(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b))
		require.Equal(t, "x", b.Identifier)
	})

	for name, raw := range map[string]string{
		"unknown field": `{"identifier":"x","admin":true}`,
		"trailing data": `{"identifier":"x"}{}`,
		"not json":      `identifier=x`,
	} {
		t.Run(name, func(t *testing.T) {
			var b body
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
			require.ErrorIs(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b), httpx.ErrBadBody)
		})
	}
}

func TestWriteJSONSetsNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteJSON(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}
