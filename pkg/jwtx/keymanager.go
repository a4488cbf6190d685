package jwtx

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/srcvote/evote/pkg/cryptox"
)

// KeyManager owns the one active signer of an instance, the matching
// verifier, and the KeySet published as the JWKS.
type KeyManager struct {
	KeySet *KeySet

	signer    Signer
	verifier  Verifier
	algorithm string
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Algorithm is AlgorithmEdDSA (default) or AlgorithmHS256.
	Algorithm string

	// KeyFile holds the key material: a PKCS8 PEM for EdDSA or a base64url
	// secret for HS256. It is created on first start. Empty means the key
	// lives only in memory and every restart invalidates issued tokens.
	KeyFile string

	// Verify carries issuer/audience/leeway expectations for the verifier.
	Verify VerifyOptions
}

// NewKeyManager loads or generates key material and wires signer, verifier
// and KeySet together.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Verify.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmEdDSA
	}

	keyset := NewKeySet()
	km := &KeyManager{KeySet: keyset, algorithm: opts.Algorithm}

	switch opts.Algorithm {
	case AlgorithmEdDSA:
		pemKey, err := loadOrCreate(opts.KeyFile, cryptox.GenerateEd25519Key)
		if err != nil {
			return nil, fmt.Errorf("jwtx: ed25519 key: %w", err)
		}
		signer, err := NewSignerEdDSA(keyIDFor(pemKey), pemKey)
		if err != nil {
			return nil, err
		}
		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: add signer to keyset: %w", err)
		}
		km.signer = signer
		km.verifier = NewVerifierEdDSA(keyset, opts.Verify)

	case AlgorithmHS256:
		encoded, err := loadOrCreate(opts.KeyFile, func() ([]byte, error) {
			s, err := cryptox.GenerateToken(cryptox.TokenSize512)
			return []byte(s), err
		})
		if err != nil {
			return nil, fmt.Errorf("jwtx: hs256 secret: %w", err)
		}
		secret, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(encoded)))
		if err != nil {
			return nil, fmt.Errorf("jwtx: decode hs256 secret: %w", err)
		}
		kid := keyIDFor(secret)
		signer, err := NewSignerHS256(kid, secret)
		if err != nil {
			return nil, err
		}
		verifier, err := NewVerifierHS256(kid, secret, opts.Verify)
		if err != nil {
			return nil, err
		}
		km.signer = signer
		km.verifier = verifier

	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: EdDSA, HS256)", opts.Algorithm)
	}

	if err := km.signer.Validate(); err != nil {
		return nil, err
	}
	return km, nil
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string { return km.algorithm }

// Signer returns the active signer.
func (km *KeyManager) Signer() Signer { return km.signer }

// Verifier returns a verifier accepting tokens from Signer.
func (km *KeyManager) Verifier() Verifier { return km.verifier }

// IsReady reports whether a signer is loaded.
func (km *KeyManager) IsReady() bool { return km.signer != nil }

// keyIDFor derives a stable kid from the key material so the same key file
// always yields the same kid.
func keyIDFor(material []byte) string {
	return "evote-" + cryptox.FingerprintToken(string(material))[:16]
}

func loadOrCreate(path string, gen func() ([]byte, error)) ([]byte, error) {
	if path == "" {
		return gen()
	}

	path = filepath.Clean(path)
	b, err := os.ReadFile(path)
	if err == nil {
		return b, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	b, err = gen()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return nil, err
	}
	return b, nil
}
