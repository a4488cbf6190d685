package cryptox_test

import (
	"bytes"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/srcvote/evote/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func parseSigningKey(t *testing.T, pemBytes []byte) ed25519.PrivateKey {
	t.Helper()
	block, rest := pem.Decode(pemBytes)
	require.NotNil(t, block)
	require.Empty(t, bytes.TrimSpace(rest))
	require.Equal(t, "PRIVATE KEY", block.Type)

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	key, ok := parsed.(ed25519.PrivateKey)
	require.True(t, ok, "got %T", parsed)
	return key
}

func TestGenerateEd25519KeySigns(t *testing.T) {
	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	key := parseSigningKey(t, pemBytes)

	msg := []byte("stu001 otp_challenge_pending")
	sig := ed25519.Sign(key, msg)
	pub := key.Public().(ed25519.PublicKey)
	require.True(t, ed25519.Verify(pub, msg, sig))
	require.False(t, ed25519.Verify(pub, []byte("stu002 otp_challenge_pending"), sig))
}

func TestGenerateEd25519KeyFresh(t *testing.T) {
	a, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	b, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.False(t, parseSigningKey(t, a).Equal(parseSigningKey(t, b)))
}
