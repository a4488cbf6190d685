// Package otpx derives the one-time codes used by login: TOTP codes for
// authenticator apps and random numeric codes for the emailed path.
package otpx

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the TOTP time step in seconds.
	Period = 30

	// Skew is the number of steps accepted either side of now.
	Skew = 1

	// SecretSize is the number of random bytes behind a shared secret.
	SecretSize = 20

	// SecretLength is the encoded length of a shared secret (base32, no padding).
	SecretLength = 32

	// DefaultCodeLength is used by RandomNumericCode when no length is given.
	DefaultCodeLength = 6
)

// Digits is the TOTP code length.
const Digits = otp.DigitsSix

var (
	ErrInvalidSecret = errors.New("otpx: invalid secret")
	ErrMissingLabel  = errors.New("otpx: account label and issuer are required")
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    Digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret returns a fresh base32 shared secret of SecretLength characters.
func GenerateSecret() (string, error) {
	raw := make([]byte, SecretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("otpx: read entropy: %w", err)
	}
	return b32.EncodeToString(raw), nil
}

// Code returns the authenticator code for secret at t.
func Code(secret string, t time.Time) (string, error) {
	if _, err := decodeSecret(secret); err != nil {
		return "", err
	}

	code, err := totp.GenerateCodeCustom(secret, t.UTC(), validateOpts())
	if err != nil {
		return "", fmt.Errorf("otpx: generate code: %w", err)
	}
	return code, nil
}

// Validate reports whether code matches secret in the step containing t or
// one step either side of it.
func Validate(code, secret string, t time.Time) bool {
	if code == "" || secret == "" {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, t.UTC(), validateOpts())
	if err != nil {
		return false
	}
	return ok
}

// RandomNumericCode returns a string of length random decimal digits.
// A length of zero or less falls back to DefaultCodeLength.
func RandomNumericCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	ten := big.NewInt(10)

	var sb strings.Builder
	sb.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("otpx: read entropy: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

// ProvisioningURI formats the otpauth:// URI an authenticator app imports
// the secret from. It performs no I/O.
func ProvisioningURI(secret, accountLabel, issuer string) (string, error) {
	if accountLabel == "" || issuer == "" {
		return "", ErrMissingLabel
	}

	raw, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		Period:      Period,
		Secret:      raw,
		Digits:      Digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("otpx: build uri: %w", err)
	}
	return key.URL(), nil
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimSpace(secret))
	if s == "" {
		return nil, ErrInvalidSecret
	}

	raw, err := b32.DecodeString(strings.TrimRight(s, "="))
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidSecret
	}
	return raw, nil
}
