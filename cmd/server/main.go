package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"accountd/internal"
	"accountd/internal/auth"
	authdb "accountd/internal/auth/db"
	"accountd/internal/db"
	"accountd/internal/notify"
	"accountd/internal/web"
	websessions "accountd/internal/web/sessions"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	// A .env file is optional, the environment itself wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Error("failed to load .env file", "error", err)
		return 1
	}

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	sqlDB, err := db.OpenSQLite(cfg.dbFile, true)
	if err != nil {
		logger.Error("failed to open database", "dbFile", cfg.dbFile, "error", err)
		return 1
	}
	defer sqlDB.Close()

	creds, err := auth.NewArgon2Credentials()
	if err != nil {
		logger.Error("failed to create credential store", "error", err)
		return 1
	}

	redirects := auth.NewRedirectResolver(cfg.auth.trustedOrigin, logger)

	svc := auth.NewService(
		authdb.New(sqlDB),
		creds,
		notify.NewLogQueue(logger),
		redirects,
		logger,
		auth.ServiceConfig{
			DefaultRedirect:       cfg.auth.defaultRedirect,
			DefaultLocale:         cfg.auth.defaultLocale,
			GreetingZone:          cfg.auth.greetingZone,
			ResetURL:              cfg.auth.resetURL,
			AlwaysLoginAfterReset: cfg.auth.alwaysLoginAfterReset,
			TokenLifetime:         cfg.auth.tokenLifetime,
			IssueCooldown:         cfg.auth.issueCooldown,
		},
	)

	cookieStore := sessions.NewCookieStore(cfg.sessionKey.SecretValue())
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.Secure = cfg.secureCookie

	handler := web.NewServer(&web.ServerDeps{
		Logger:       logger,
		AuthService:  svc,
		Redirects:    redirects,
		SessionStore: websessions.NewStore(cookieStore),
	}, web.ServerConfig{
		CSRFKey:      cfg.csrfKey,
		SecureCookie: cfg.secureCookie,
	})

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler:      handler,
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
			"buildLocalModified", internal.BuildLocalModified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}
