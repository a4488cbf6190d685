package http_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/srcvote/evote/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	env.clock.Advance(90 * time.Second)
	live, err := env.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)
	require.Equal(t, "1m30s", live.Uptime)
	require.Nil(t, live.Checks)

	ready, err := env.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)
}

func TestJWKSPublishesSigningKey(t *testing.T) {
	env := setupServer(t)

	jwks, err := env.client.GetJWKS(context.Background())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "EdDSA", jwks.Keys[0].Alg)
	require.Equal(t, env.keys.Signer().KID(), jwks.Keys[0].Kid)

	resp, err := http.Get(env.server.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "public, max-age=300", resp.Header.Get("Cache-Control"))
}

func TestRevokeIsAlwaysOK(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	require.NoError(t, env.client.RevokeToken(ctx, "garbage"))

	err := env.client.RevokeToken(ctx, "")
	requireAPIError(t, err, authsdk.ErrInvalidRequest)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t)
	env.createStudent(t)

	_, err := env.client.Login(context.Background(), authsdk.PortalStudent, authsdk.LoginRequest{Identifier: studentID, Password: studentPass})
	require.NoError(t, err)

	body := get(t, env.server.URL+"/metrics", http.StatusOK)
	require.Contains(t, body, `evote_auth_logins_total{kind="student",result="otp_required"} 1`)
	require.Contains(t, body, `evote_auth_http_requests_total{method="POST",path="/v1/auth/student/login",status="200"} 1`)
}

func TestSwaggerDoc(t *testing.T) {
	env := setupServer(t)

	body := get(t, env.server.URL+"/swagger/doc.json", http.StatusOK)
	require.Contains(t, body, "/v1/auth/verify-otp")
	require.Contains(t, body, "SRC Voting Authentication API")
}

func get(t *testing.T, url string, wantStatus int) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode)
	return string(b)
}
