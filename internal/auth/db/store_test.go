package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"accountd/internal/auth"
	"accountd/internal/auth/db"
	"accountd/internal/db/testdb"
	"accountd/internal/email"
	"accountd/internal/errorz"
	"accountd/internal/krypto"
)

func storeForTest(t *testing.T) *db.Store {
	t.Helper()

	return db.New(testdb.RunWhile(t, true))
}

func testAccount(t *testing.T, modFunc func(a *auth.Account)) auth.Account {
	t.Helper()

	a := auth.Account{
		ID:           uuid.MustParse("5ca643a9-7a39-4dcb-a1aa-e55cd735e1f2"),
		Email:        must(email.ParseAddress("alice@example.com")),
		PasswordHash: argon2Hash(t, "$argon2id$v=19$m=47104,t=1,p=1$vP9U4C5jsOzFQLj0gvUkYw$YLrSb2dGfcVohlm8syynqHs6/NHxXS9rt/t6TjL7pi0"),
		Role:         auth.RoleAdmin,
		LastLocale:   "en",
		CreatedAt:    time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
	}

	if modFunc != nil {
		modFunc(&a)
	}

	return a
}

func argon2Hash(t *testing.T, s string) krypto.Argon2Hash {
	t.Helper()

	return must(krypto.ParseArgon2Hash(s))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// assertEqualAccounts compares accounts field by field, using time.Equal for
// the timestamps since they may come back in a different location.
func assertEqualAccounts(t *testing.T, got, want auth.Account) {
	t.Helper()

	if got.ID != want.ID {
		t.Errorf("got ID %v want %v", got.ID, want.ID)
	}

	if got.Email != want.Email {
		t.Errorf("got email %q want %q", got.Email, want.Email)
	}

	if got.PasswordHash.String() != want.PasswordHash.String() {
		t.Errorf("got hash %v want %v", got.PasswordHash, want.PasswordHash)
	}

	if got.Role != want.Role {
		t.Errorf("got role %q want %q", got.Role, want.Role)
	}

	if (got.ResetToken == nil) != (want.ResetToken == nil) {
		t.Errorf("got reset token %v want %v", got.ResetToken, want.ResetToken)
	} else if got.ResetToken != nil && *got.ResetToken != *want.ResetToken {
		t.Errorf("reset tokens differ")
	}

	if (got.ResetTokenExpiresAt == nil) != (want.ResetTokenExpiresAt == nil) {
		t.Errorf("got expiry %v want %v", got.ResetTokenExpiresAt, want.ResetTokenExpiresAt)
	} else if got.ResetTokenExpiresAt != nil && !got.ResetTokenExpiresAt.Equal(*want.ResetTokenExpiresAt) {
		t.Errorf("got expiry %v want %v", got.ResetTokenExpiresAt, want.ResetTokenExpiresAt)
	}

	if got.LastLocale != want.LastLocale {
		t.Errorf("got locale %q want %q", got.LastLocale, want.LastLocale)
	}

	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("got created at %v want %v", got.CreatedAt, want.CreatedAt)
	}

	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("got updated at %v want %v", got.UpdatedAt, want.UpdatedAt)
	}
}

func inTestTx(t *testing.T, store *db.Store, f func(tx auth.Tx) error) {
	t.Helper()

	tx, err := store.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}

	if err := f(tx); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			t.Errorf("failed to rollback tx: %v", rErr)
		}
		t.Fatalf("tx func failed: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("failed to commit tx: %v", err)
	}
}

func Test_Tx_CreateAccount(t *testing.T) {
	t.Run("ok, create and find account", func(t *testing.T) {
		store := storeForTest(t)
		a := testAccount(t, nil)

		inTestTx(t, store, func(tx auth.Tx) error {
			return tx.CreateAccount(&a)
		})

		inTestTx(t, store, func(tx auth.Tx) error {
			got, err := tx.FindAccounts(&auth.AccountFilter{
				IDs: []uuid.UUID{a.ID},
			})
			if err != nil {
				return err
			}

			if len(got) != 1 {
				t.Fatalf("expected 1 account, got %d", len(got))
			}

			assertEqualAccounts(t, got[0], a)
			return nil
		})
	})

	t.Run("ok, create account with reset token", func(t *testing.T) {
		store := storeForTest(t)

		token := must(krypto.ParseToken("0102030405060708091011121314151617181920212223242526272829303132"))
		expiry := time.Date(2024, 3, 10, 10, 30, 0, 0, time.UTC)

		a := testAccount(t, func(a *auth.Account) {
			a.ResetToken = &token
			a.ResetTokenExpiresAt = &expiry
		})

		inTestTx(t, store, func(tx auth.Tx) error {
			return tx.CreateAccount(&a)
		})

		inTestTx(t, store, func(tx auth.Tx) error {
			got, err := tx.FindAccounts(&auth.AccountFilter{
				ResetTokens: []krypto.Token{token},
			})
			if err != nil {
				return err
			}

			if len(got) != 1 {
				t.Fatalf("expected 1 account, got %d", len(got))
			}

			assertEqualAccounts(t, got[0], a)
			return nil
		})
	})

	t.Run("fail, duplicate email", func(t *testing.T) {
		store := storeForTest(t)
		a := testAccount(t, nil)

		inTestTx(t, store, func(tx auth.Tx) error {
			return tx.CreateAccount(&a)
		})

		other := testAccount(t, func(a *auth.Account) {
			a.ID = uuid.MustParse("f4e1d9ba-2f43-4ecb-9a53-7c4a89f5cbb0")
		})

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		defer tx.Rollback() //nolint:errcheck

		err = tx.CreateAccount(&other)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected %v, got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})

	t.Run("fail, zero uuid", func(t *testing.T) {
		store := storeForTest(t)
		a := testAccount(t, func(a *auth.Account) {
			a.ID = uuid.Nil
		})

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		defer tx.Rollback() //nolint:errcheck

		err = tx.CreateAccount(&a)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected %v, got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})
}

func Test_Tx_UpdateAccount(t *testing.T) {
	t.Run("ok, update all mutable fields", func(t *testing.T) {
		store := storeForTest(t)
		a := testAccount(t, nil)

		inTestTx(t, store, func(tx auth.Tx) error {
			return tx.CreateAccount(&a)
		})

		token := must(krypto.ParseToken("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"))
		expiry := time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)

		a.Email = must(email.ParseAddress("jacob@example.com"))
		a.PasswordHash = argon2Hash(t, "$argon2id$v=19$m=47104,t=1,p=1$CkX5zzYLJMWm0y/17eScyw$Qfah+NewdsdeF0+iV72mShZhRO93Qwzdj17TUZCH6ZU")
		a.Role = auth.RoleUser
		a.ResetToken = &token
		a.ResetTokenExpiresAt = &expiry
		a.LastLocale = "nl"
		a.UpdatedAt = time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)

		inTestTx(t, store, func(tx auth.Tx) error {
			return tx.UpdateAccount(&a)
		})

		inTestTx(t, store, func(tx auth.Tx) error {
			got, err := tx.FindAccounts(&auth.AccountFilter{
				IDs: []uuid.UUID{a.ID},
			})
			if err != nil {
				return err
			}

			if len(got) != 1 {
				t.Fatalf("expected 1 account, got %d", len(got))
			}

			assertEqualAccounts(t, got[0], a)
			return nil
		})
	})

	t.Run("ok, clear reset token", func(t *testing.T) {
		store := storeForTest(t)

		token := must(krypto.ParseToken("0102030405060708091011121314151617181920212223242526272829303132"))
		expiry := time.Date(2024, 3, 10, 10, 30, 0, 0, time.UTC)

		a := testAccount(t, func(a *auth.Account) {
			a.ResetToken = &token
			a.ResetTokenExpiresAt = &expiry
		})

		inTestTx(t, store, func(tx auth.Tx) error {
			return tx.CreateAccount(&a)
		})

		a.ResetToken = nil
		a.ResetTokenExpiresAt = nil

		inTestTx(t, store, func(tx auth.Tx) error {
			return tx.UpdateAccount(&a)
		})

		inTestTx(t, store, func(tx auth.Tx) error {
			got, err := tx.FindAccounts(&auth.AccountFilter{
				IDs: []uuid.UUID{a.ID},
			})
			if err != nil {
				return err
			}

			if len(got) != 1 {
				t.Fatalf("expected 1 account, got %d", len(got))
			}

			if got[0].ResetToken != nil || got[0].ResetTokenExpiresAt != nil {
				t.Errorf("expected reset token to be cleared")
			}
			return nil
		})
	})

	t.Run("fail, account does not exist", func(t *testing.T) {
		store := storeForTest(t)
		a := testAccount(t, nil)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		defer tx.Rollback() //nolint:errcheck

		err = tx.UpdateAccount(&a)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected %v, got %v (via errors.Is)", errorz.ErrNotFound, err)
		}
	})
}

func Test_Tx_FindAndCountAccounts(t *testing.T) {
	store := storeForTest(t)

	token := must(krypto.ParseToken("0102030405060708091011121314151617181920212223242526272829303132"))
	expiry := time.Date(2024, 3, 10, 10, 30, 0, 0, time.UTC)

	admin := testAccount(t, nil)
	user1 := testAccount(t, func(a *auth.Account) {
		a.ID = uuid.MustParse("f4e1d9ba-2f43-4ecb-9a53-7c4a89f5cbb0")
		a.Email = must(email.ParseAddress("bob@example.com"))
		a.Role = auth.RoleUser
		a.CreatedAt = a.CreatedAt.Add(time.Minute)
		a.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	})
	user2 := testAccount(t, func(a *auth.Account) {
		a.ID = uuid.MustParse("9b2fd1f8-8f61-4a5c-b9c2-10ce4bbd2b3d")
		a.Email = must(email.ParseAddress("carol@example.com"))
		a.Role = auth.RoleUser
		a.ResetToken = &token
		a.ResetTokenExpiresAt = &expiry
		a.CreatedAt = a.CreatedAt.Add(2 * time.Minute)
		a.UpdatedAt = a.UpdatedAt.Add(2 * time.Minute)
	})

	inTestTx(t, store, func(tx auth.Tx) error {
		for _, a := range []*auth.Account{&admin, &user1, &user2} {
			if err := tx.CreateAccount(a); err != nil {
				return err
			}
		}
		return nil
	})

	tests := map[string]struct {
		filter *auth.AccountFilter
		want   []uuid.UUID
	}{
		"all accounts in creation order": {
			&auth.AccountFilter{},
			[]uuid.UUID{admin.ID, user1.ID, user2.ID},
		},
		"by email": {
			&auth.AccountFilter{Emails: []email.Address{user1.Email}},
			[]uuid.UUID{user1.ID},
		},
		"by role": {
			&auth.AccountFilter{Roles: []auth.Role{auth.RoleUser}},
			[]uuid.UUID{user1.ID, user2.ID},
		},
		"by reset token": {
			&auth.AccountFilter{ResetTokens: []krypto.Token{token}},
			[]uuid.UUID{user2.ID},
		},
		"by email and token": {
			&auth.AccountFilter{
				Emails:      []email.Address{user2.Email},
				ResetTokens: []krypto.Token{token},
			},
			[]uuid.UUID{user2.ID},
		},
		"by email and non-matching token": {
			&auth.AccountFilter{
				Emails:      []email.Address{user1.Email},
				ResetTokens: []krypto.Token{token},
			},
			[]uuid.UUID{},
		},
		"no matches": {
			&auth.AccountFilter{Emails: []email.Address{"ghost@example.com"}},
			[]uuid.UUID{},
		},
	}

	for name, tc := range tests {
		t.Run("find "+name, func(t *testing.T) {
			inTestTx(t, store, func(tx auth.Tx) error {
				got, err := tx.FindAccounts(tc.filter)
				if err != nil {
					return err
				}

				if len(got) != len(tc.want) {
					t.Fatalf("expected %d accounts, got %d", len(tc.want), len(got))
				}

				for i, id := range tc.want {
					if got[i].ID != id {
						t.Errorf("account %d: got %v want %v", i, got[i].ID, id)
					}
				}
				return nil
			})
		})

		t.Run("count "+name, func(t *testing.T) {
			inTestTx(t, store, func(tx auth.Tx) error {
				got, err := tx.CountAccounts(tc.filter)
				if err != nil {
					return err
				}

				if got != len(tc.want) {
					t.Errorf("got count %d want %d", got, len(tc.want))
				}
				return nil
			})
		})
	}
}
