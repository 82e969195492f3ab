package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"accountd/internal/email"
	"accountd/internal/errorz"
	"accountd/internal/krypto"
)

// ErrTokenInvalid indicates a reset token does not authenticate an account.
// Wrong email, wrong token and expired token are deliberately reported
// identically, distinguishing them would leak account or token state.
var ErrTokenInvalid = errors.New("invalid or expired reset token")

// RateLimitError indicates a reset token was requested again before the
// issue cooldown of the previous one elapsed.
type RateLimitError struct {
	// RetryAfter is how long the caller has to wait before a new token
	// can be issued.
	RetryAfter time.Duration
}

func (e RateLimitError) Error() string {
	return fmt.Sprintf("reset token recently issued, retry in %s", e.RetryAfter)
}

// TokenManagerConfig configures a TokenManager.
type TokenManagerConfig struct {
	// TokenLifetime is how long an issued token stays valid.
	TokenLifetime time.Duration
	// IssueCooldown is the minimum spacing between issuing tokens for the
	// same account. Defaults to TokenLifetime: no new token until the
	// previous one is near expiry.
	IssueCooldown time.Duration
}

const defaultTokenLifetime = 30 * time.Minute

// TokenManager issues, rate-limits, validates and consumes single-use
// password reset tokens. All mutations are read-modify-write transactions
// per account, so two concurrent issue calls cannot both pass the
// cooldown check.
type TokenManager struct {
	store Store
	creds CredentialStore
	cfg   TokenManagerConfig

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

// NewTokenManager creates a TokenManager. Zero config values fall back to
// the defaults: a 30 minute lifetime and a cooldown equal to the lifetime.
func NewTokenManager(store Store, creds CredentialStore, cfg TokenManagerConfig) *TokenManager {
	if cfg.TokenLifetime <= 0 {
		cfg.TokenLifetime = defaultTokenLifetime
	}
	if cfg.IssueCooldown <= 0 {
		cfg.IssueCooldown = cfg.TokenLifetime
	}

	return &TokenManager{
		store:   store,
		creds:   creds,
		cfg:     cfg,
		NowFunc: time.Now,
	}
}

// Issue generates a new reset token for the account and persists it
// together with its expiry. It fails with a RateLimitError while the
// previously issued token is still inside the issue cooldown.
func (m *TokenManager) Issue(ctx context.Context, accountID uuid.UUID) (krypto.Token, error) {
	var token krypto.Token

	err := inTx(ctx, m.store, func(tx Tx) error {
		accounts, err := tx.FindAccounts(&AccountFilter{
			IDs: []uuid.UUID{accountID},
		})
		if err != nil {
			return err
		}

		if len(accounts) != 1 {
			return errorz.ErrNotFound
		}

		a := accounts[0]
		now := m.NowFunc()

		if a.ResetTokenExpiresAt != nil {
			// A token issued less than IssueCooldown ago still has
			// more than lifetime-cooldown left before it expires.
			cutoff := now.Add(m.cfg.TokenLifetime - m.cfg.IssueCooldown)
			if a.ResetTokenExpiresAt.After(cutoff) {
				return RateLimitError{
					RetryAfter: a.ResetTokenExpiresAt.Sub(cutoff),
				}
			}
		}

		token, err = krypto.GenerateToken()
		if err != nil {
			return err
		}

		a.ResetToken = &token
		a.ResetTokenExpiresAt = ptr(now.Add(m.cfg.TokenLifetime))
		a.UpdatedAt = now

		return tx.UpdateAccount(&a)
	})
	if err != nil {
		return krypto.Token{}, err
	}

	return token, nil
}

// Validate looks up the account matching both the email address and the
// exact token, provided the token has not expired. Every failure is
// reported as ErrTokenInvalid.
func (m *TokenManager) Validate(ctx context.Context, addr email.Address, token krypto.Token) (Account, error) {
	var accounts []Account

	err := inTx(ctx, m.store, func(tx Tx) error {
		var txErr error
		accounts, txErr = tx.FindAccounts(&AccountFilter{
			Emails:      []email.Address{addr},
			ResetTokens: []krypto.Token{token},
		})
		return txErr
	})
	if err != nil {
		return Account{}, err
	}

	if len(accounts) != 1 {
		return Account{}, ErrTokenInvalid
	}

	a := accounts[0]
	if a.ResetTokenExpiresAt == nil || !m.NowFunc().Before(*a.ResetTokenExpiresAt) {
		return Account{}, ErrTokenInvalid
	}

	return a, nil
}

// Consume invalidates the reset token of the account and sets the new
// password. The cleared token is committed even when the password is
// rejected by the credential policy: an account without a usable reset
// token beats leaving a replayable token around. On success both the
// cleared token and the new credential commit in the same transaction.
func (m *TokenManager) Consume(ctx context.Context, a *Account, pwd Password) error {
	now := m.NowFunc()

	a.ResetToken = nil
	a.ResetTokenExpiresAt = nil
	a.UpdatedAt = now

	credErr := m.creds.SetPassword(a, pwd)

	err := inTx(ctx, m.store, func(tx Tx) error {
		return tx.UpdateAccount(a)
	})
	if err != nil {
		return err
	}

	return credErr
}
