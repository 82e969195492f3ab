package db

import (
	"database/sql"

	"accountd/internal/auth"
)

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateAccount creates an account in the database.
// It returns errorz.ErrConstraintViolated if the email is already taken.
func (t *Tx) CreateAccount(a *auth.Account) error {
	return insertAccount(t.tx.Exec, a)
}

// UpdateAccount updates an account in the database.
// It returns errorz.ErrNotFound if no account is found.
func (t *Tx) UpdateAccount(a *auth.Account) error {
	return updateAccount(t.tx.Exec, a)
}

// FindAccounts queries for accounts based on the provided filter.
// It returns an empty slice if no accounts are found.
func (t *Tx) FindAccounts(filter *auth.AccountFilter) ([]auth.Account, error) {
	return selectAccounts(t.tx.Query, filter)
}

// CountAccounts counts the accounts matching the provided filter.
func (t *Tx) CountAccounts(filter *auth.AccountFilter) (int, error) {
	return countAccounts(t.tx.QueryRow, filter)
}
