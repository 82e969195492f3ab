package krypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	hashLen = 32

	// Argon2id parameters per the OWASP password storage cheat sheet.
	argonVariant     = "argon2id"
	argonMemoryKiB   = 47104
	argonIterations  = 1
	argonParallelism = 1
)

// ErrInvalidInput indicates that the input could not be hashed or parsed.
var ErrInvalidInput = errors.New("invalid input")

// Argon2Hash is the parsed representation of an argon2 hash in PHC string
// format. Storing the parameters alongside the hash means existing hashes
// keep matching after the default parameters change.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes data with a random salt using the argon2id variant.
func HashArgon2(data []byte) (Argon2Hash, error) {
	if len(data) == 0 {
		return Argon2Hash{}, fmt.Errorf("no data provided: %w", ErrInvalidInput)
	}

	salt, err := genRandomBytes(saltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	return Argon2Hash{
		Variant:     argonVariant,
		Version:     argon2.Version,
		MemoryKiB:   argonMemoryKiB,
		Iterations:  argonIterations,
		Parallelism: argonParallelism,
		Salt:        salt,
		Hash:        argon2.IDKey(data, salt, argonIterations, argonMemoryKiB, argonParallelism, hashLen),
	}, nil
}

// ParseArgon2Hash parses a hash in PHC string format:
//
//	$argon2id$v=19$m=47104,t=1,p=1$<base64 salt>$<base64 hash>
func ParseArgon2Hash(raw string) (Argon2Hash, error) {
	parts := strings.Split(raw, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("malformed hash string: %w", ErrInvalidInput)
	}

	h := Argon2Hash{
		Variant: parts[1],
	}

	if h.Variant != argonVariant {
		return Argon2Hash{}, fmt.Errorf("unsupported variant %q: %w", h.Variant, ErrInvalidInput)
	}

	if _, err := fmt.Sscanf(parts[2], "v=%d", &h.Version); err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed version: %w", ErrInvalidInput)
	}

	if h.Version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("unsupported version %d: %w", h.Version, ErrInvalidInput)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.MemoryKiB, &h.Iterations, &h.Parallelism); err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed parameters: %w", ErrInvalidInput)
	}

	var err error
	h.Salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed salt: %w", ErrInvalidInput)
	}

	h.Hash, err = base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed hash: %w", ErrInvalidInput)
	}

	return h, nil
}

// MatchBytes re-hashes data using the parameters and salt of h and compares
// the result to the stored hash in constant time.
func (h Argon2Hash) MatchBytes(data []byte) bool {
	other := argon2.IDKey(data, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

// String renders the hash in PHC string format.
func (h Argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant,
		h.Version,
		h.MemoryKiB,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}

// Scan implements sql.Scanner so hashes can be read directly from a database column.
func (h *Argon2Hash) Scan(src any) error {
	s, ok := src.(string)
	if !ok {
		return fmt.Errorf("cannot scan %T into Argon2Hash", src)
	}

	return h.UnmarshalText([]byte(s))
}

func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return b, nil
}
