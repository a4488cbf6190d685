package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDjangoPBKDF2(t *testing.T) {
	// Low iteration count keeps the test fast; the format is what matters.
	hash, err := HashDjangoPBKDF2("student-pass", "Zp8qWm3R", 1000)
	require.NoError(t, err)
	require.Regexp(t, `^pbkdf2_sha256\$1000\$Zp8qWm3R\$[A-Za-z0-9+/]+=*$`, hash)

	t.Run("matches", func(t *testing.T) {
		require.NoError(t, VerifyPassword("student-pass", hash))
	})

	t.Run("mismatch", func(t *testing.T) {
		require.ErrorIs(t, VerifyPassword("Student-pass", hash), ErrPasswordMismatch)
		require.ErrorIs(t, VerifyPassword("", hash), ErrPasswordMismatch)
	})

	t.Run("deterministic for salt", func(t *testing.T) {
		again, err := HashDjangoPBKDF2("student-pass", "Zp8qWm3R", 1000)
		require.NoError(t, err)
		require.Equal(t, hash, again)
	})

	t.Run("rejects bad salt", func(t *testing.T) {
		_, err := HashDjangoPBKDF2("pw", "", 1000)
		require.ErrorIs(t, err, ErrUnsupportedHash)

		_, err = HashDjangoPBKDF2("pw", "a$b", 1000)
		require.ErrorIs(t, err, ErrUnsupportedHash)
	})
}

func TestDjangoPBKDF2KnownVector(t *testing.T) {
	// PBKDF2-HMAC-SHA256("password", "salt", 1, 32).
	const stored = "pbkdf2_sha256$1$salt$Eg+2z/z4syxD5yJSVsT4N6hlSMkszDVICAWYfLcL4Xs="
	require.NoError(t, VerifyPassword("password", stored))
}
