package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWK_PEM_Ed25519(t *testing.T) {
	publicKey, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	jwk := NewEd25519JWK("test-key-id", "sig", AlgorithmEdDSA, publicKey)

	pemStr, err := jwk.PEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	require.NotNil(t, block)

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	require.Equal(t, publicKey, parsed.(ed25519.PublicKey))
}

func TestJWK_PEM_Unsupported(t *testing.T) {
	_, err := JWK{Kty: "EC", Crv: "P-256", X: "AAAA"}.PEM()
	require.Error(t, err)

	_, err = JWK{Kty: "OKP", Crv: "X25519", X: "AAAA"}.PEM()
	require.Error(t, err)
}

func TestKeySet_ResetFromJWKS(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	ks := NewKeySet()
	require.NoError(t, ks.ResetFromJWKS(JWKS{Keys: []JWK{NewEd25519JWK("a", "sig", AlgorithmEdDSA, pub)}}))
	require.Equal(t, 1, ks.Len())

	got, err := ks.Get("a")
	require.NoError(t, err)
	require.Equal(t, pub, got)

	_, err = ks.Get("b")
	require.ErrorIs(t, err, ErrNoKey)

	require.Error(t, ks.ResetFromJWKS(JWKS{Keys: []JWK{{Kty: "OKP", Crv: "Ed25519", X: "short"}}}))
}
