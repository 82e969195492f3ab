package main

import (
	"reflect"
	"testing"
	"time"

	"accountd/internal/krypto"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"CSRF_KEY":    "dfab77e26917c6e37a173690443a0016808ef7b24e32424d45cd83454198a6ec",
		"SESSION_KEY": "568554094ec040ab8a6b3e6d7cc138b0dc855f39ba1aeb2ffc903f7260b3a452",
	}
}

func newConfig(mf func(*config)) config {
	c := defaultConfig()
	c.csrfKey = must(krypto.ParseKey("dfab77e26917c6e37a173690443a0016808ef7b24e32424d45cd83454198a6ec"))
	c.sessionKey = must(krypto.ParseKey("568554094ec040ab8a6b3e6d7cc138b0dc855f39ba1aeb2ffc903f7260b3a452"))

	if mf != nil {
		mf(&c)
	}
	return c
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envForTest(t *testing.T, key, val string) {
	t.Helper()
	t.Setenv(key, val)
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("ok, uses defaults for non-required env variables", func(t *testing.T) {
		for key, val := range requiredEnv() {
			envForTest(t, key, val)
		}

		want := newConfig(nil)
		got, err := configFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%+v\nwant\n%+v", got, want)
		}
	})

	valid := map[string]struct {
		key string
		val string
		mf  func(*config) // modify default config to create wanted config.
	}{
		"ok, non-default HTTP_ADDR": {
			key: "HTTP_ADDR", val: "localhost:8080", mf: func(c *config) { c.http.addr = "localhost:8080" },
		},
		"ok, non-default HTTP_READ_TIMEOUT": {
			key: "HTTP_READ_TIMEOUT", val: "101ms", mf: func(c *config) { c.http.readTimeout = 101 * time.Millisecond },
		},
		"ok, non-default HTTP_WRITE_TIMEOUT": {
			key: "HTTP_WRITE_TIMEOUT", val: "202ms", mf: func(c *config) { c.http.writeTimeout = 202 * time.Millisecond },
		},
		"ok, non-default HTTP_IDLE_TIMEOUT": {
			key: "HTTP_IDLE_TIMEOUT", val: "303ms", mf: func(c *config) { c.http.idleTimeout = 303 * time.Millisecond },
		},
		"ok, non-default HTTP_SHUTDOWN_TIMEOUT": {
			key: "HTTP_SHUTDOWN_TIMEOUT", val: "404ms", mf: func(c *config) { c.http.shutdownTimeout = 404 * time.Millisecond },
		},
		"ok, non-default DB_FILE": {
			key: "DB_FILE", val: "test.db", mf: func(c *config) { c.dbFile = "test.db" },
		},
		"ok, other CSRF_KEY": {
			key: "CSRF_KEY",
			val: "218dbd640d2ae9bd7a81e45f1ad963ecea3027fea21b9c3b93ca3ad69915f733",
			mf: func(c *config) {
				c.csrfKey = must(krypto.ParseKey("218dbd640d2ae9bd7a81e45f1ad963ecea3027fea21b9c3b93ca3ad69915f733"))
			},
		},
		"ok, other SESSION_KEY": {
			key: "SESSION_KEY",
			val: "04017690e77c6a19671178e1950c7519389b58f6ffb8dcf53b2acfcaca398778",
			mf: func(c *config) {
				c.sessionKey = must(krypto.ParseKey("04017690e77c6a19671178e1950c7519389b58f6ffb8dcf53b2acfcaca398778"))
			},
		},
		"ok, non-default SECURE_COOKIE": {
			key: "SECURE_COOKIE", val: "false", mf: func(c *config) { c.secureCookie = false },
		},
		"ok, non-default TRUSTED_ORIGIN": {
			key: "TRUSTED_ORIGIN",
			val: "https://accounts.example",
			mf:  func(c *config) { c.auth.trustedOrigin = "https://accounts.example" },
		},
		"ok, non-default DEFAULT_REDIRECT": {
			key: "DEFAULT_REDIRECT", val: "/home", mf: func(c *config) { c.auth.defaultRedirect = "/home" },
		},
		"ok, non-default DEFAULT_LOCALE": {
			key: "DEFAULT_LOCALE", val: "nl", mf: func(c *config) { c.auth.defaultLocale = "nl" },
		},
		"ok, non-default GREETING_TZ": {
			key: "GREETING_TZ", val: "UTC", mf: func(c *config) { c.auth.greetingZone = time.UTC },
		},
		"ok, non-default RESET_URL": {
			key: "RESET_URL",
			val: "https://accounts.example/password-resets",
			mf:  func(c *config) { c.auth.resetURL = "https://accounts.example/password-resets" },
		},
		"ok, non-default RESET_TOKEN_LIFETIME": {
			key: "RESET_TOKEN_LIFETIME", val: "51m", mf: func(c *config) { c.auth.tokenLifetime = 51 * time.Minute },
		},
		"ok, non-default RESET_ISSUE_COOLDOWN": {
			key: "RESET_ISSUE_COOLDOWN", val: "15m", mf: func(c *config) { c.auth.issueCooldown = 15 * time.Minute },
		},
		"ok, non-default ALWAYS_LOGIN_AFTER_RESET": {
			key: "ALWAYS_LOGIN_AFTER_RESET", val: "false", mf: func(c *config) { c.auth.alwaysLoginAfterReset = false },
		},
	}

	for name, tc := range valid {
		t.Run(name, func(t *testing.T) {
			for key, val := range requiredEnv() {
				envForTest(t, key, val)
			}

			envForTest(t, tc.key, tc.val)

			want := newConfig(tc.mf)
			got, err := configFromEnv()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, want) {
				t.Errorf("got\n%+v\nwant\n%+v", got, want)
			}
		})
	}

	invalid := map[string]struct {
		key string
		val string
	}{
		"fail, malformed CSRF_KEY":             {"CSRF_KEY", "too-short"},
		"fail, malformed SESSION_KEY":          {"SESSION_KEY", "too-short"},
		"fail, malformed HTTP_READ_TIMEOUT":    {"HTTP_READ_TIMEOUT", "not-a-duration"},
		"fail, negative HTTP_READ_TIMEOUT":     {"HTTP_READ_TIMEOUT", "-1s"},
		"fail, too short RESET_TOKEN_LIFETIME": {"RESET_TOKEN_LIFETIME", "1s"},
		"fail, unknown GREETING_TZ":            {"GREETING_TZ", "Not/AZone"},
		"fail, malformed SECURE_COOKIE":        {"SECURE_COOKIE", "not-a-bool"},
	}

	for name, tc := range invalid {
		t.Run(name, func(t *testing.T) {
			for key, val := range requiredEnv() {
				envForTest(t, key, val)
			}

			envForTest(t, tc.key, tc.val)

			if _, err := configFromEnv(); err == nil {
				t.Errorf("expected error, got nil")
			}
		})
	}

	missing := map[string]string{
		"fail, missing CSRF_KEY":    "CSRF_KEY",
		"fail, missing SESSION_KEY": "SESSION_KEY",
	}

	for name, skip := range missing {
		t.Run(name, func(t *testing.T) {
			for key, val := range requiredEnv() {
				if key == skip {
					continue
				}
				envForTest(t, key, val)
			}

			if _, err := configFromEnv(); err == nil {
				t.Errorf("expected error, got nil")
			}
		})
	}
}
