package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinHS256SecretSize is the shortest HMAC secret we accept (256 bits).
const MinHS256SecretSize = 32

// ErrSecretTooShort is returned when an HS256 secret is below MinHS256SecretSize.
var ErrSecretTooShort = errors.New("jwtx: HS256 secret must be at least 32 bytes")

// HS256Signer signs tokens with a shared HMAC secret. The secret never
// leaves the service, so nothing is published in the JWKS.
type HS256Signer struct {
	kid    string
	secret []byte
}

func newHS256Signer(kid string, secret []byte) (*HS256Signer, error) {
	if len(secret) < MinHS256SecretSize {
		return nil, ErrSecretTooShort
	}

	return &HS256Signer{kid: kid, secret: append([]byte(nil), secret...)}, nil
}

func (s *HS256Signer) Alg() string { return AlgorithmHS256 }
func (s *HS256Signer) KID() string { return s.kid }

func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.secret)
}

func (s *HS256Signer) Validate() error {
	if len(s.secret) < MinHS256SecretSize {
		return ErrSecretTooShort
	}
	return nil
}
