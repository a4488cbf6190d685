package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Verifier validates JWTs signed with the shared HMAC secret.
type HS256Verifier struct {
	kid    string
	secret []byte
	opts   VerifyOptions
}

// NewVerifierHS256 creates a verifier for tokens produced by an HS256Signer
// with the same kid and secret.
func NewVerifierHS256(kid string, secret []byte, opts VerifyOptions) (*HS256Verifier, error) {
	if len(secret) < MinHS256SecretSize {
		return nil, ErrSecretTooShort
	}
	return &HS256Verifier{kid: kid, secret: append([]byte(nil), secret...), opts: opts}, nil
}

func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	return parse(tokenStr, AlgorithmHS256, v.opts, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != v.kid {
			return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
		}
		return v.secret, nil
	})
}
