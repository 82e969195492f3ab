package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"accountd/internal/krypto"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
}

// authConfig is the configuration for the auth service.
type authConfig struct {
	trustedOrigin         string
	defaultRedirect       string
	defaultLocale         string
	greetingZone          *time.Location
	resetURL              string
	tokenLifetime         time.Duration
	issueCooldown         time.Duration
	alwaysLoginAfterReset bool
}

// config is the configuration for the server command.
type config struct {
	http         httpConfig
	auth         authConfig
	dbFile       string
	csrfKey      krypto.Key
	sessionKey   krypto.Key
	secureCookie bool
}

// defaultConfig returns a config with sane default values. The keys have
// no defaults, they must always be provided.
func defaultConfig() config {
	return config{
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
		},
		auth: authConfig{
			trustedOrigin:         "http://localhost:8888",
			defaultRedirect:       "/dashboard",
			defaultLocale:         "en",
			greetingZone:          time.Local,
			resetURL:              "http://localhost:8888/password-resets",
			tokenLifetime:         30 * time.Minute,
			issueCooldown:         30 * time.Minute,
			alwaysLoginAfterReset: true,
		},
		dbFile:       "accountd.db",
		secureCookie: true,
	}
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"DB_FILE": func(v string, c *config) error {
		c.dbFile = v
		return nil
	},
	"CSRF_KEY": func(v string, c *config) error {
		key, err := krypto.ParseKey(v)
		if err != nil {
			return err
		}
		c.csrfKey = key
		return nil
	},
	"SESSION_KEY": func(v string, c *config) error {
		key, err := krypto.ParseKey(v)
		if err != nil {
			return err
		}
		c.sessionKey = key
		return nil
	},
	"SECURE_COOKIE": func(v string, c *config) error {
		return confBool(v, &c.secureCookie)
	},
	"TRUSTED_ORIGIN": func(v string, c *config) error {
		c.auth.trustedOrigin = v
		return nil
	},
	"DEFAULT_REDIRECT": func(v string, c *config) error {
		c.auth.defaultRedirect = v
		return nil
	},
	"DEFAULT_LOCALE": func(v string, c *config) error {
		c.auth.defaultLocale = v
		return nil
	},
	"GREETING_TZ": func(v string, c *config) error {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return err
		}
		c.auth.greetingZone = loc
		return nil
	},
	"RESET_URL": func(v string, c *config) error {
		c.auth.resetURL = v
		return nil
	},
	"RESET_TOKEN_LIFETIME": func(v string, c *config) error {
		return confDuration(v, &c.auth.tokenLifetime, time.Minute, math.MaxInt64)
	},
	"RESET_ISSUE_COOLDOWN": func(v string, c *config) error {
		return confDuration(v, &c.auth.issueCooldown, time.Minute, math.MaxInt64)
	},
	"ALWAYS_LOGIN_AFTER_RESET": func(v string, c *config) error {
		return confBool(v, &c.auth.alwaysLoginAfterReset)
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
func configFromEnv() (config, error) {
	c := defaultConfig()

	for key, mf := range envMap {
		if val, ok := os.LookupEnv(key); ok {
			if err := mf(val, &c); err != nil {
				return c, fmt.Errorf("invalid env variable %s: %w", key, err)
			}
		}
	}

	if len(c.csrfKey.SecretValue()) == 0 {
		return c, fmt.Errorf("missing env variable CSRF_KEY")
	}

	if len(c.sessionKey.SecretValue()) == 0 {
		return c, fmt.Errorf("missing env variable SESSION_KEY")
	}

	return c, nil
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

func confBool(v string, tgt *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}

	*tgt = b

	return nil
}
