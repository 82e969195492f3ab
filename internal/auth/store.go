package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"accountd/internal/email"
	"accountd/internal/krypto"
)

// AccountFilter is used to filter accounts.
// Returned accounts must match all the provided fields.
// If a field is empty or nil, it's ignored.
type AccountFilter struct {
	IDs         []uuid.UUID
	Emails      []email.Address
	Roles       []Role
	ResetTokens []krypto.Token
}

// Store provides access to the account store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/Find
// methods, the transaction is considered to have failed and should be
// rolled back. Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateAccount(a *Account) error
	UpdateAccount(a *Account) error
	FindAccounts(filter *AccountFilter) ([]Account, error)
	CountAccounts(filter *AccountFilter) (int, error)
}

// inTx runs f inside a transaction on s, committing when f succeeds and
// rolling back when it fails.
func inTx(ctx context.Context, s Store, f func(tx Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}

func ptr[T any](v T) *T {
	return &v
}
