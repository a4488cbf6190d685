package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Accounts imported from the previous election system carry Django's
// pbkdf2_sha256$<iterations>$<salt>$<base64 hash> strings. They are
// verified as-is (no pepper) and replaced with Argon2id on next login.
const (
	djangoAlgorithm  = "pbkdf2_sha256"
	djangoIterations = 600000
)

// HashDjangoPBKDF2 encodes password the way the legacy directory stored it.
// It exists for fixtures and import tooling; new hashes use HashPassword.
func HashDjangoPBKDF2(password, salt string, iterations int) (string, error) {
	if iterations <= 0 {
		iterations = djangoIterations
	}
	if salt == "" || strings.Contains(salt, "$") {
		return "", fmt.Errorf("%w: invalid salt", ErrUnsupportedHash)
	}

	dk := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		djangoAlgorithm,
		iterations,
		salt,
		base64.StdEncoding.EncodeToString(dk),
	), nil
}

func verifyDjangoPBKDF2(password, encodedHash string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 4 || parts[0] != djangoAlgorithm {
		return fmt.Errorf("%w: malformed pbkdf2 hash", ErrUnsupportedHash)
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("%w: bad iteration count", ErrUnsupportedHash)
	}

	expected, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: bad pbkdf2 digest", ErrUnsupportedHash)
	}

	computed := pbkdf2.Key([]byte(password), []byte(parts[2]), iterations, len(expected), sha256.New)
	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}
