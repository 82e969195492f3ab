package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"accountd/internal/auth"
	"accountd/internal/db"
	"accountd/internal/email"
	"accountd/internal/errorz"
	"accountd/internal/krypto"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)
type queryRowFunc func(query string, params ...any) *sql.Row

func insertAccount(ef execFunc, a *auth.Account) error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	var q db.Query
	q.Unsafe(`INSERT INTO accounts (id, email, password_hash, role, reset_token, reset_token_expires_at, last_locale, created_at, updated_at) VALUES (`)
	q.Params(
		a.ID.String(),
		string(a.Email),
		a.PasswordHash.String(),
		string(a.Role),
		tokenParam(a.ResetToken),
		a.ResetTokenExpiresAt,
		a.LastLocale,
		a.CreatedAt,
		a.UpdatedAt,
	)
	q.Unsafe(`)`)

	s, params := q.Get()

	_, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateAccount(ef execFunc, a *auth.Account) error {
	var q db.Query
	q.Unsafe(`UPDATE accounts SET `)

	q.Unsafe(`email = `)
	q.Param(string(a.Email))

	q.Unsafe(`, password_hash = `)
	q.Param(a.PasswordHash.String())

	q.Unsafe(`, role = `)
	q.Param(string(a.Role))

	q.Unsafe(`, reset_token = `)
	q.Param(tokenParam(a.ResetToken))

	q.Unsafe(`, reset_token_expires_at = `)
	q.Param(a.ResetTokenExpiresAt)

	q.Unsafe(`, last_locale = `)
	q.Param(a.LastLocale)

	q.Unsafe(`, created_at = `)
	q.Param(a.CreatedAt)

	q.Unsafe(`, updated_at = `)
	q.Param(a.UpdatedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(a.ID.String())

	s, params := q.Get()

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("account not found: %w", errorz.ErrNotFound)
	}

	return nil
}

const accountColumns = `id, email, password_hash, role, reset_token, reset_token_expires_at, last_locale, created_at, updated_at`

func selectAccounts(qf queryFunc, f *auth.AccountFilter) ([]auth.Account, error) {
	var q db.Query
	q.Unsafe(`SELECT ` + accountColumns + ` FROM accounts WHERE 1=1 `)

	applyFilter(&q, f)

	q.Unsafe(` ORDER BY created_at ASC, id ASC`)

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func countAccounts(qrf queryRowFunc, f *auth.AccountFilter) (int, error) {
	var q db.Query
	q.Unsafe(`SELECT COUNT(*) FROM accounts WHERE 1=1 `)

	applyFilter(&q, f)

	s, params := q.Get()

	var count int
	if err := qrf(s, params...).Scan(&count); err != nil {
		return 0, errorz.MapDBErr(err)
	}

	return count, nil
}

func applyFilter(q *db.Query, f *auth.AccountFilter) {
	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		for i, id := range f.IDs {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.Param(id.String())
		}
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email IN (`)
		for i, addr := range f.Emails {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.Param(string(addr))
		}
		q.Unsafe(`) `)
	}

	if len(f.Roles) > 0 {
		q.Unsafe(`AND role IN (`)
		for i, role := range f.Roles {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.Param(string(role))
		}
		q.Unsafe(`) `)
	}

	if len(f.ResetTokens) > 0 {
		q.Unsafe(`AND reset_token IN (`)
		for i, token := range f.ResetTokens {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.Param(token.String())
		}
		q.Unsafe(`) `)
	}
}

func scanAccount(rows *sql.Rows) (auth.Account, error) {
	var (
		a         auth.Account
		id        string
		addr      string
		role      string
		token     sql.NullString
		expiresAt sql.NullTime
	)

	err := rows.Scan(&id, &addr, &a.PasswordHash, &role, &token, &expiresAt, &a.LastLocale, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return auth.Account{}, errorz.MapDBErr(err)
	}

	a.ID, err = uuid.Parse(id)
	if err != nil {
		return auth.Account{}, err
	}

	a.Email = email.Address(addr)
	a.Role = auth.Role(role)

	if token.Valid != expiresAt.Valid {
		return auth.Account{}, fmt.Errorf("reset token and expiry out of sync for account %s: %w", a.ID, errorz.ErrConstraintViolated)
	}

	if token.Valid {
		parsed, err := krypto.ParseToken(token.String)
		if err != nil {
			return auth.Account{}, err
		}

		a.ResetToken = &parsed
		a.ResetTokenExpiresAt = &expiresAt.Time
	}

	return a, nil
}

// tokenParam converts an optional token to its nullable column value.
func tokenParam(t *krypto.Token) any {
	if t == nil {
		return nil
	}

	return t.String()
}
