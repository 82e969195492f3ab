package auth

import (
	"time"

	"github.com/google/uuid"

	"accountd/internal/email"
	"accountd/internal/krypto"
)

// Role determines what an account is allowed to do.
type Role string

const (
	// RoleAdmin is assigned to the first account ever provisioned.
	RoleAdmin Role = "admin"
	// RoleUser is assigned to every account after the first.
	RoleUser Role = "user"
)

// Account contains the data for a single account.
//
// ResetToken and ResetTokenExpiresAt are always set and cleared together,
// never one without the other.
type Account struct {
	ID           uuid.UUID
	Email        email.Address
	PasswordHash krypto.Argon2Hash
	Role         Role

	ResetToken          *krypto.Token
	ResetTokenExpiresAt *time.Time

	// LastLocale is the locale the account last used, it steers the
	// locale of post-login redirects.
	LastLocale string

	CreatedAt time.Time
	UpdatedAt time.Time
}
