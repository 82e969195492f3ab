package auth

import (
	"errors"

	"accountd/internal/krypto"
)

// ErrWeakPassword indicates a password does not meet the strength policy.
var ErrWeakPassword = errors.New("password too weak")

// CredentialStore verifies and sets the hashed password credential of an
// account. Implementations are expected to use a slow, salted hashing
// algorithm; callers treat the credential as opaque.
type CredentialStore interface {
	// Verify reports whether pwd matches the credential of the account.
	// A nil account always fails, implementations should take the same
	// time as a failed comparison against a real account.
	Verify(a *Account, pwd Password) bool

	// SetPassword replaces the credential of the account with a hash of
	// pwd. It fails with ErrWeakPassword if pwd does not meet the
	// strength policy. The account is only mutated in memory, persisting
	// it is up to the caller.
	SetPassword(a *Account, pwd Password) error
}

const minPasswordBytes = 8

// Argon2Credentials is a CredentialStore backed by argon2id hashes.
type Argon2Credentials struct {
	// comparisonHash is used to compare passwords when no account was
	// found, so failed lookups take as long as failed matches.
	comparisonHash krypto.Argon2Hash
}

// NewArgon2Credentials creates an Argon2Credentials with a random
// comparison hash.
func NewArgon2Credentials() (*Argon2Credentials, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(tok[:])
	if err != nil {
		return nil, err
	}

	return &Argon2Credentials{
		comparisonHash: hash,
	}, nil
}

func (c *Argon2Credentials) Verify(a *Account, pwd Password) bool {
	if a == nil {
		// Compare against the throwaway hash to prevent timing
		// differences that could lead to account enumeration.
		_ = pwd.Match(c.comparisonHash)
		return false
	}

	return pwd.Match(a.PasswordHash)
}

func (c *Argon2Credentials) SetPassword(a *Account, pwd Password) error {
	if pwd.Len() < minPasswordBytes {
		return ErrWeakPassword
	}

	hash, err := pwd.Hash()
	if err != nil {
		return err
	}

	a.PasswordHash = hash

	return nil
}
