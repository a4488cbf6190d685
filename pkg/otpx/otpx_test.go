package otpx_test

import (
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/srcvote/evote/pkg/otpx"
	"github.com/stretchr/testify/require"
)

const (
	secretA = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	secretB = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
)

func TestGenerateSecret(t *testing.T) {
	seen := make(map[string]struct{})
	b32 := regexp.MustCompile(`^[A-Z2-7]{32}$`)

	for range 50 {
		s, err := otpx.GenerateSecret()
		require.NoError(t, err)
		require.Len(t, s, otpx.SecretLength)
		require.Regexp(t, b32, s)

		_, dup := seen[s]
		require.False(t, dup, "secrets should not repeat")
		seen[s] = struct{}{}
	}
}

func TestCodeIsStableWithinStep(t *testing.T) {
	// Start of a 30s step so both instants share a counter.
	base := time.Unix(1_700_000_010, 0).UTC().Truncate(30 * time.Second)

	a, err := otpx.Code(secretA, base)
	require.NoError(t, err)
	b, err := otpx.Code(secretA, base.Add(29*time.Second))
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Len(t, a, 6)
}

func TestCodeRejectsBadSecret(t *testing.T) {
	_, err := otpx.Code("not base32!", time.Now())
	require.ErrorIs(t, err, otpx.ErrInvalidSecret)

	_, err = otpx.Code("", time.Now())
	require.ErrorIs(t, err, otpx.ErrInvalidSecret)
}

func TestValidateAcceptsAdjacentSteps(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	for _, offset := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		t.Run(offset.String(), func(t *testing.T) {
			code, err := otpx.Code(secretA, now.Add(offset))
			require.NoError(t, err)
			require.True(t, otpx.Validate(code, secretA, now))
		})
	}
}

func TestValidateRejectsDistantSteps(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	current, err := otpx.Code(secretA, now)
	require.NoError(t, err)

	for _, offset := range []time.Duration{-5 * time.Minute, 5 * time.Minute} {
		code, err := otpx.Code(secretA, now.Add(offset))
		require.NoError(t, err)
		if code == current {
			continue
		}
		require.False(t, otpx.Validate(code, secretA, now))
	}
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	for _, offset := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		code, err := otpx.Code(secretB, now.Add(offset))
		require.NoError(t, err)
		require.False(t, otpx.Validate(code, secretA, now))
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	now := time.Now()

	require.False(t, otpx.Validate("", secretA, now))
	require.False(t, otpx.Validate("12345", secretA, now))
	require.False(t, otpx.Validate("abcdef", secretA, now))
	require.False(t, otpx.Validate("123456", "", now))
}

func TestRandomNumericCode(t *testing.T) {
	digits := regexp.MustCompile(`^[0-9]+$`)

	t.Run("default length", func(t *testing.T) {
		code, err := otpx.RandomNumericCode(0)
		require.NoError(t, err)
		require.Len(t, code, otpx.DefaultCodeLength)
		require.Regexp(t, digits, code)
	})

	t.Run("custom length", func(t *testing.T) {
		code, err := otpx.RandomNumericCode(8)
		require.NoError(t, err)
		require.Len(t, code, 8)
		require.Regexp(t, digits, code)
	})
}

func TestProvisioningURI(t *testing.T) {
	uri, err := otpx.ProvisioningURI(secretA, "admin@example.edu", "GhanaSRCVoting")
	require.NoError(t, err)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	require.Equal(t, "otpauth", u.Scheme)
	require.Equal(t, "totp", u.Host)
	require.Contains(t, u.Path, "admin@example.edu")

	q := u.Query()
	require.Equal(t, secretA, q.Get("secret"))
	require.Equal(t, "GhanaSRCVoting", q.Get("issuer"))
	require.Equal(t, "30", q.Get("period"))
	require.Equal(t, "6", q.Get("digits"))

	t.Run("missing label", func(t *testing.T) {
		_, err := otpx.ProvisioningURI(secretA, "", "GhanaSRCVoting")
		require.ErrorIs(t, err, otpx.ErrMissingLabel)
	})

	t.Run("bad secret", func(t *testing.T) {
		_, err := otpx.ProvisioningURI("%%%", "a", "b")
		require.ErrorIs(t, err, otpx.ErrInvalidSecret)
	})
}
