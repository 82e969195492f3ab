package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"accountd/internal/email"
	"accountd/internal/errorz"
)

// ErrDuplicateEmail indicates an account with the same email already exists.
var ErrDuplicateEmail = errors.New("duplicate email")

// Provisioner creates new accounts. The first account ever provisioned
// becomes admin, every account after that is a regular user.
type Provisioner struct {
	store Store
	creds CredentialStore

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(store Store, creds CredentialStore) *Provisioner {
	return &Provisioner{
		store:   store,
		creds:   creds,
		NowFunc: time.Now,
	}
}

// Provision validates the email and password and creates a new account.
// It fails with email.ErrInvalidEmail, ErrInvalidPassword, ErrWeakPassword
// or ErrDuplicateEmail on bad input.
//
// The admin count and the insert run in a single immediate transaction, so
// under concurrent registrations exactly one account wins the admin role.
func (p *Provisioner) Provision(ctx context.Context, rawEmail, rawPassword string) (Account, error) {
	addr, err := email.ParseAddress(rawEmail)
	if err != nil {
		return Account{}, err
	}

	pwd, err := ParsePassword(rawPassword)
	if err != nil {
		return Account{}, err
	}

	now := p.NowFunc()
	a := Account{
		ID:        uuid.New(),
		Email:     addr,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.creds.SetPassword(&a, pwd); err != nil {
		return Account{}, err
	}

	err = inTx(ctx, p.store, func(tx Tx) error {
		admins, txErr := tx.CountAccounts(&AccountFilter{
			Roles: []Role{RoleAdmin},
		})
		if txErr != nil {
			return txErr
		}

		if admins == 0 {
			a.Role = RoleAdmin
		}

		txErr = tx.CreateAccount(&a)
		if txErr != nil {
			if errors.Is(txErr, errorz.ErrConstraintViolated) {
				return fmt.Errorf("%w: %w", ErrDuplicateEmail, txErr)
			}
			return txErr
		}

		return nil
	})
	if err != nil {
		return Account{}, err
	}

	return a, nil
}
