package krypto

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	keyLen = 32

	// SecretMarker is a string we can look for in logs to see if the app
	// is accidentally exposing secrets.
	SecretMarker = "<!SECRET_REDACTED!>"
)

var ErrInvalidKey = errors.New("invalid key")

// Key is a symmetric key used for things like signing session cookies or
// CSRF tokens. Like other secrets it redacts itself when formatted.
type Key struct {
	value []byte
}

// ParseKey expects a hex encoded key of 32 bytes (64 chars as hex).
func ParseKey(raw string) (Key, error) {
	if len(raw) != keyLen*2 {
		return Key{}, ErrInvalidKey
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return Key{}, ErrInvalidKey
	}

	return Key{value: b}, nil
}

func (k Key) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// SecretValue returns the key as a byte slice. This is provided as an
// escape hatch for cases where the key needs to be provided to third
// party packages.
func (k Key) SecretValue() []byte {
	return k.value
}
