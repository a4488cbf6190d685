package service

import (
	"testing"

	"github.com/srcvote/evote/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCheckPasswordFailsClosed(t *testing.T) {
	var cv CredentialVerifier
	submitted := []string{"", "password", "!", "$argon2id$"}

	for name, stored := range map[string]*string{
		"never set":   nil,
		"empty":       ptr(""),
		"unusable":    ptr("!unusable"),
		"unparseable": ptr("md5$abc"),
		"truncated":   ptr("$argon2id$v=19$m=19456"),
	} {
		t.Run(name, func(t *testing.T) {
			for _, pw := range submitted {
				require.False(t, cv.CheckPassword(pw, stored), "submitted %q", pw)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	var cv CredentialVerifier

	hash, err := cryptox.HashPassword("correct horse")
	require.NoError(t, err)
	require.True(t, cv.CheckPassword("correct horse", &hash))
	require.False(t, cv.CheckPassword("Correct horse", &hash))
	require.False(t, cv.CheckPassword("", &hash))
	require.False(t, cv.NeedsRehash(&hash))

	legacy, err := cryptox.HashDjangoPBKDF2("correct horse", "pepperless", 1000)
	require.NoError(t, err)
	require.True(t, cv.CheckPassword("correct horse", &legacy))
	require.True(t, cv.NeedsRehash(&legacy))
	require.False(t, cv.NeedsRehash(nil))
}
