package service

import (
	"sync"

	"github.com/srcvote/evote/pkg/cryptox"
)

// CredentialVerifier compares submitted passwords with stored hashes.
type CredentialVerifier struct{}

// CheckPassword fails closed: a nil, empty, unusable or unparseable hash
// never matches, whatever was submitted.
func (CredentialVerifier) CheckPassword(submitted string, storedHash *string) bool {
	if storedHash == nil {
		return false
	}
	return cryptox.VerifyPassword(submitted, *storedHash) == nil
}

// NeedsRehash reports whether a matching hash should be upgraded to the
// current scheme.
func (CredentialVerifier) NeedsRehash(storedHash *string) bool {
	return storedHash != nil && cryptox.NeedsRehash(*storedHash)
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnCheck spends roughly the cost of a real verification so an unknown
// identifier answers as slowly as a wrong password.
func (CredentialVerifier) burnCheck(submitted string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("evote-timing-equalizer")
	})
	if dummyHash != "" {
		_ = cryptox.VerifyPassword(submitted, dummyHash)
	}
}
