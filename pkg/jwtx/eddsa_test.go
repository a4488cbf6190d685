package jwtx_test

import (
	"testing"
	"time"

	"github.com/srcvote/evote/pkg/cryptox"
	"github.com/srcvote/evote/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://auth.evote.test"

func testClaims(now time.Time, typ string) jwtx.Claims {
	return jwtx.NewClaims(jwtx.ClaimsParams{
		Subject:  "user-456",
		Kind:     "super_admin",
		Type:     typ,
		AMR:      []string{"pwd", "otp"},
		Issuer:   exampleIssuer,
		Audience: []string{"evote"},
		TTL:      5 * time.Minute,
		Now:      now,
	})
}

func newEdDSASigner(t *testing.T, kid string) jwtx.Signer {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	return signer
}

func TestEdDSASignAndVerify(t *testing.T) {
	signer := newEdDSASigner(t, "test-key-eddsa")
	require.Equal(t, "EdDSA", signer.Alg())
	require.Equal(t, "test-key-eddsa", signer.KID())

	now := time.Now().UTC()
	claims := testClaims(now, jwtx.TypeAccess)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	jwks := keyset.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)

	verifier := jwtx.NewVerifierEdDSA(keyset, jwtx.VerifyOptions{
		Issuer:   exampleIssuer,
		Audience: []string{"evote"},
	})

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims.Subject, parsed.Subject)
	require.Equal(t, claims.Kind, parsed.Kind)
	require.Equal(t, jwtx.TypeAccess, parsed.Type)
	require.ElementsMatch(t, claims.AMR, parsed.AMR)
	require.Equal(t, claims.ID, parsed.ID)
}

func TestEdDSAVerifyFailures(t *testing.T) {
	signer := newEdDSASigner(t, "k1")
	now := time.Unix(1_700_000_000, 0).UTC()

	token, err := signer.Sign(testClaims(now, jwtx.TypeRefresh))
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	at := func(ts time.Time) func() time.Time { return func() time.Time { return ts } }

	t.Run("wrong issuer", func(t *testing.T) {
		v := jwtx.NewVerifierEdDSA(keyset, jwtx.VerifyOptions{Issuer: "wrong-issuer", Now: at(now)})
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		v := jwtx.NewVerifierEdDSA(keyset, jwtx.VerifyOptions{Issuer: exampleIssuer, Now: at(now.Add(time.Hour))})
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("unknown key", func(t *testing.T) {
		other := jwtx.NewKeySet()
		require.NoError(t, other.AddSigner(newEdDSASigner(t, "k2")))

		v := jwtx.NewVerifierEdDSA(other, jwtx.VerifyOptions{Issuer: exampleIssuer, Now: at(now)})
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("tampered payload", func(t *testing.T) {
		v := jwtx.NewVerifierEdDSA(keyset, jwtx.VerifyOptions{Issuer: exampleIssuer, Now: at(now)})

		tampered := []byte(token)
		// Flip a character in the signature segment.
		last := len(tampered) - 2
		if tampered[last] == 'A' {
			tampered[last] = 'B'
		} else {
			tampered[last] = 'A'
		}
		_, err := v.Verify(string(tampered))
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		v := jwtx.NewVerifierEdDSA(keyset, jwtx.VerifyOptions{Issuer: exampleIssuer, Now: at(now)})
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("hs256 token", func(t *testing.T) {
		hs, err := jwtx.NewSignerHS256("k1", []byte("0123456789abcdef0123456789abcdef"))
		require.NoError(t, err)
		hsToken, err := hs.Sign(testClaims(now, jwtx.TypeRefresh))
		require.NoError(t, err)

		v := jwtx.NewVerifierEdDSA(keyset, jwtx.VerifyOptions{Issuer: exampleIssuer, Now: at(now)})
		_, err = v.Verify(hsToken)
		require.Error(t, err)
	})
}

func TestEdDSAValidateFailsForInvalidKey(t *testing.T) {
	_, err := jwtx.NewSignerEdDSA("test", []byte("not-a-pem-key"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid PEM")
}
