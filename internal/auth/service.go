package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"accountd/internal/email"
	"accountd/internal/krypto"
	"accountd/internal/notify"
)

// ErrInvalidCredentials indicates a login attempt failed. Unknown email,
// wrong password and malformed input are deliberately reported identically.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// DefaultRedirect is the post-login destination used when no pending
	// redirect was stored in the session.
	DefaultRedirect string
	// DefaultLocale is used when neither the request nor the account
	// carries a locale.
	DefaultLocale string
	// GreetingZone is the fixed time zone used to pick the time-of-day
	// greeting. Defaults to the system zone.
	GreetingZone *time.Location
	// ResetURL is the absolute URL of the password reset form, reset
	// links are built from it.
	ResetURL string
	// AlwaysLoginAfterReset replicates the legacy behavior of logging
	// the caller in after a password reset even when the new password
	// was rejected as too weak.
	AlwaysLoginAfterReset bool
	// TokenLifetime and IssueCooldown configure the reset token manager,
	// see TokenManagerConfig.
	TokenLifetime time.Duration
	IssueCooldown time.Duration
}

// Service orchestrates the login, register, logout and password reset
// flows. It composes the provisioner, the token manager, the redirect
// resolver and the credential store, and emits notification requests to
// the external job queue.
type Service struct {
	store       Store
	creds       CredentialStore
	provisioner *Provisioner
	tokens      *TokenManager
	redirects   *RedirectResolver
	queue       notify.Queue
	logger      *slog.Logger
	cfg         ServiceConfig

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

// NewService creates a Service and the components it composes.
func NewService(store Store, creds CredentialStore, queue notify.Queue, redirects *RedirectResolver, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.DefaultRedirect == "" {
		cfg.DefaultRedirect = "/dashboard"
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en"
	}
	if cfg.GreetingZone == nil {
		cfg.GreetingZone = time.Local
	}

	svc := &Service{
		store:       store,
		creds:       creds,
		provisioner: NewProvisioner(store, creds),
		tokens: NewTokenManager(store, creds, TokenManagerConfig{
			TokenLifetime: cfg.TokenLifetime,
			IssueCooldown: cfg.IssueCooldown,
		}),
		redirects: redirects,
		queue:     queue,
		logger:    logger,
		cfg:       cfg,
		NowFunc:   time.Now,
	}

	// Keep the composed components on the same clock.
	svc.provisioner.NowFunc = func() time.Time { return svc.NowFunc() }
	svc.tokens.NowFunc = func() time.Time { return svc.NowFunc() }

	return svc
}

// Tokens exposes the reset token manager, mainly for tests that need to
// manipulate token state directly.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// LoginInput carries the credentials and request context of a login attempt.
type LoginInput struct {
	Email    string
	Password string
	// Locale is the active locale of the request.
	Locale string
	// PendingRedirect is the session-scoped redirect target, previously
	// validated by the RedirectResolver. Empty means none was stored.
	PendingRedirect string
}

// LoginResult describes an established session: the account, the locale to
// continue in, where to send the caller and which greeting to show.
type LoginResult struct {
	Account    Account
	Locale     string
	RedirectTo string
	Greeting   Greeting
}

// Login verifies the credentials and computes the post-login destination.
// All failures that stem from the caller's input are reported as
// ErrInvalidCredentials, never revealing which part was wrong.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	addr, addrErr := email.ParseAddress(in.Email)
	pwd, pwdErr := ParsePassword(in.Password)
	if addrErr != nil || pwdErr != nil {
		// Burn the same time as a real comparison before rejecting.
		s.creds.Verify(nil, Password{plain: []byte(in.Password)})
		return LoginResult{}, ErrInvalidCredentials
	}

	accounts, err := s.findAccounts(ctx, &AccountFilter{
		Emails: []email.Address{addr},
	})
	if err != nil {
		return LoginResult{}, err
	}

	var a *Account
	if len(accounts) == 1 {
		a = &accounts[0]
	}

	if !s.creds.Verify(a, pwd) {
		return LoginResult{}, ErrInvalidCredentials
	}

	locale := s.adoptLocale(ctx, a, in.Locale)

	return LoginResult{
		Account:    *a,
		Locale:     locale,
		RedirectTo: s.postLoginRedirect(in.PendingRedirect, locale),
		Greeting:   GreetingForTime(s.NowFunc().In(s.cfg.GreetingZone)),
	}, nil
}

// RegisterInput carries the credentials and request context of a
// registration.
type RegisterInput struct {
	Email           string
	Password        string
	Locale          string
	PendingRedirect string
}

// Register provisions a new account and immediately logs it in. A welcome
// notification is enqueued best-effort: a failing queue is logged and does
// not roll back the created account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (LoginResult, error) {
	a, err := s.provisioner.Provision(ctx, in.Email, in.Password)
	if err != nil {
		return LoginResult{}, err
	}

	locale := s.adoptLocale(ctx, &a, in.Locale)

	s.enqueue(ctx, notify.Notification{
		Kind:      notify.KindWelcome,
		Recipient: a.Email,
		Data: map[string]string{
			"locale": locale,
		},
	})

	return LoginResult{
		Account:    a,
		Locale:     locale,
		RedirectTo: s.postLoginRedirect(in.PendingRedirect, locale),
	}, nil
}

// ForgotPassword requests a password reset for the given email address.
// It returns nil whether or not the email matched an account, resisting
// account enumeration. The one exception is a RateLimitError: it only
// occurs for addresses that recently made a successful request, so it is
// acceptable to surface the remaining wait time.
func (s *Service) ForgotPassword(ctx context.Context, rawEmail, locale string) error {
	addr, err := email.ParseAddress(rawEmail)
	if err != nil {
		return nil
	}

	accounts, err := s.findAccounts(ctx, &AccountFilter{
		Emails: []email.Address{addr},
	})
	if err != nil {
		return err
	}

	if len(accounts) != 1 {
		return nil
	}

	token, err := s.tokens.Issue(ctx, accounts[0].ID)
	if err != nil {
		var rateErr RateLimitError
		if errors.As(err, &rateErr) {
			return rateErr
		}
		return err
	}

	s.enqueue(ctx, notify.Notification{
		Kind:      notify.KindResetPassword,
		Recipient: addr,
		Data: map[string]string{
			"resetURL": s.resetLink(addr, token, locale),
			"locale":   locale,
		},
	})

	return nil
}

// ResetInput carries the data of a password reset submission.
type ResetInput struct {
	Email           string
	Password        string
	Token           string
	Locale          string
	PendingRedirect string
}

// ResetPassword validates the reset token and consumes it, setting the new
// password. Matching the legacy behavior, when AlwaysLoginAfterReset is
// enabled the returned LoginResult is populated even when the new password
// was rejected as too weak: the caller is logged in with the old password
// still in place, and the error reports the rejection.
func (s *Service) ResetPassword(ctx context.Context, in ResetInput) (LoginResult, error) {
	if in.Token == "" {
		return LoginResult{}, ErrTokenInvalid
	}

	token, err := krypto.ParseToken(in.Token)
	if err != nil {
		return LoginResult{}, ErrTokenInvalid
	}

	addr, err := email.ParseAddress(in.Email)
	if err != nil {
		return LoginResult{}, ErrTokenInvalid
	}

	pwd, err := ParsePassword(in.Password)
	if err != nil {
		return LoginResult{}, err
	}

	a, err := s.tokens.Validate(ctx, addr, token)
	if err != nil {
		return LoginResult{}, err
	}

	consumeErr := s.tokens.Consume(ctx, &a, pwd)

	locale := s.adoptLocale(ctx, &a, in.Locale)
	result := LoginResult{
		Account:    a,
		Locale:     locale,
		RedirectTo: s.postLoginRedirect(in.PendingRedirect, locale),
	}

	if consumeErr != nil {
		if s.cfg.AlwaysLoginAfterReset && errors.Is(consumeErr, ErrWeakPassword) {
			return result, consumeErr
		}
		return LoginResult{}, consumeErr
	}

	return result, nil
}

// adoptLocale decides the locale to continue the session in: the account's
// stored preference wins, otherwise the request locale is used and stored
// on the account for next time. Persisting the preference is best-effort.
func (s *Service) adoptLocale(ctx context.Context, a *Account, requestLocale string) string {
	if a.LastLocale != "" {
		return a.LastLocale
	}

	locale := requestLocale
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}

	a.LastLocale = locale
	a.UpdatedAt = s.NowFunc()

	err := inTx(ctx, s.store, func(tx Tx) error {
		return tx.UpdateAccount(a)
	})
	if err != nil {
		s.logger.Error("failed to store locale preference", "accountID", a.ID, "error", err)
	}

	return locale
}

func (s *Service) postLoginRedirect(pending, locale string) string {
	target := pending
	if target == "" {
		target = s.cfg.DefaultRedirect
	}

	return s.redirects.LocalizePath(target, locale)
}

func (s *Service) resetLink(addr email.Address, token krypto.Token, locale string) string {
	v := url.Values{}
	v.Set("email", string(addr))
	v.Set("token", token.String())
	if locale != "" {
		v.Set("locale", locale)
	}

	return fmt.Sprintf("%s?%s", s.cfg.ResetURL, v.Encode())
}

// enqueue hands a notification to the job queue. Failures are logged and
// swallowed, delivery must never affect the primary flow's outcome.
func (s *Service) enqueue(ctx context.Context, n notify.Notification) {
	if _, err := s.queue.Enqueue(ctx, n); err != nil {
		s.logger.Error("failed to enqueue notification",
			"kind", n.Kind,
			"error", err,
		)
	}
}

func (s *Service) findAccounts(ctx context.Context, filter *AccountFilter) ([]Account, error) {
	var accounts []Account

	err := inTx(ctx, s.store, func(tx Tx) error {
		var txErr error
		accounts, txErr = tx.FindAccounts(filter)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return accounts, nil
}
