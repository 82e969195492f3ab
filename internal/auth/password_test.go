package auth_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"accountd/internal/auth"
	"accountd/internal/krypto"
)

func Test_Password_ParseHashMatch(t *testing.T) {
	t.Run("ok, password matches own hash", func(t *testing.T) {
		pwd, err := auth.ParsePassword("reallyStrongPassword1")
		if err != nil {
			t.Fatalf("failed to parse password: %v", err)
		}

		hash, err := pwd.Hash()
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}

		// The random salt means we can't compare against a known hash,
		// so we check that the password matches its own hash instead.
		if !pwd.Match(hash) {
			t.Errorf("password does not match own hash\n%+v", hash)
		}
	})

	t.Run("ok, other password does not match hash", func(t *testing.T) {
		pwd, err := auth.ParsePassword("reallyStrongPassword1")
		if err != nil {
			t.Fatalf("failed to parse password: %v", err)
		}

		hash, err := pwd.Hash()
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}

		other, err := auth.ParsePassword("reallyStrongPassword2")
		if err != nil {
			t.Fatalf("failed to parse password: %v", err)
		}

		if other.Match(hash) {
			t.Errorf("password\n%s\nshould not match hash\n%+v", other, hash)
		}
	})

	failParsing := map[string]string{
		"fail, empty":    "",
		"fail, too long": stringOfLen(513),
	}

	for name, raw := range failParsing {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParsePassword(raw)
			if !errors.Is(err, auth.ErrInvalidPassword) {
				t.Errorf("expected %v, got %v (via errors.Is)", auth.ErrInvalidPassword, err)
			}
		})
	}

	t.Run("ok, length is not checked on parse", func(t *testing.T) {
		// Minimum strength is the credential store's job, short passwords
		// still parse so login attempts with them burn the same time.
		if _, err := auth.ParsePassword("1"); err != nil {
			t.Errorf("expected short password to parse, got %v", err)
		}
	})
}

func Test_Password_PreventExposure(t *testing.T) {
	raw := "12345678"
	pwd, err := auth.ParsePassword(raw)
	if err != nil {
		t.Fatalf("failed to parse password: %v", err)
	}

	assert := func(t *testing.T, s string) {
		t.Helper()
		if s != krypto.SecretMarker {
			t.Errorf("wanted\n%s\ngot\n%s\n", krypto.SecretMarker, s)
		}
	}

	t.Run("ok, fmt", func(t *testing.T) {
		assert(t, fmt.Sprintf("%s", pwd)) //nolint:gosimple
		assert(t, fmt.Sprintf("%d", pwd))
		assert(t, fmt.Sprintf("%v", pwd))
		assert(t, fmt.Sprintf("%#v", pwd))
	})

	t.Run("ok, marshal as text", func(t *testing.T) {
		b, err := pwd.MarshalText()
		if err != nil {
			t.Fatalf("failed to marshal as text: %v", err)
		}

		assert(t, string(b))
	})

	t.Run("ok, log output", func(t *testing.T) {
		var buf bytes.Buffer

		logger := slog.New(slog.NewTextHandler(&buf, nil))

		logger.Info("attempting to log a password", "password", pwd)

		s := buf.String()
		if !strings.Contains(s, krypto.SecretMarker) {
			t.Errorf("log output\n%s\ndoes not contain secret marker: %s", s, krypto.SecretMarker)
		}

		if strings.Contains(s, raw) {
			t.Errorf("log output\n%s\ncontains raw password: %s", s, raw)
		}
	})
}

func stringOfLen(n int) string {
	return strings.Repeat("a", n)
}
