package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/schema"

	"accountd/internal/auth"
	"accountd/internal/krypto"
	"accountd/internal/web/sessions"
)

const (
	csrfTokenCookieName = "acct-csrf"
	csrfTokenField      = "csrf_token"
)

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger       *slog.Logger
	AuthService  *auth.Service
	Redirects    *auth.RedirectResolver
	SessionStore *sessions.Store
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	CSRFKey      krypto.Key
	SecureCookie bool
	// DisableCSRF skips the CSRF middleware. Only meant for tests.
	DisableCSRF bool
}

type Server struct {
	deps    *ServerDeps
	mux     *http.ServeMux
	decoder *schema.Decoder
	handler http.Handler
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		decoder: schema.NewDecoder(),
	}

	s.decoder.IgnoreUnknownKeys(true)

	// A GET on the login endpoint may carry a return_to target, it's
	// validated and parked in the session until authentication succeeds.
	s.public("GET /health", http.HandlerFunc(s.handleHealth))
	s.publicOnly("GET /login", http.HandlerFunc(s.handleLoginPage))

	s.publicOnly("POST /register", http.HandlerFunc(s.handleRegister))
	s.publicOnly("POST /login", http.HandlerFunc(s.handleLogin))
	s.loggedIn("POST /logout", http.HandlerFunc(s.handleLogout))
	s.publicOnly("POST /forgot-password", http.HandlerFunc(s.handleForgotPassword))
	s.publicOnly("POST /password-resets", http.HandlerFunc(s.handleResetPassword))

	middlewares := []func(http.Handler) http.Handler{
		sessionMiddleware(s),
	}

	if !cfg.DisableCSRF {
		csrfMW := csrf.Protect(
			cfg.CSRFKey.SecretValue(),
			csrf.CookieName(csrfTokenCookieName),
			csrf.FieldName(csrfTokenField),
			csrf.Secure(cfg.SecureCookie),
		)
		middlewares = append([]func(http.Handler) http.Handler{csrfMW}, middlewares...)
	}

	s.handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		s.handler = middlewares[i](s.handler)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
