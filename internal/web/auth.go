package web

import (
	"net/http"

	"accountd/internal/errorz"
)

// public registers a handler everyone can use.
func (s *Server) public(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// publicOnly registers a handler that is hidden for authenticated callers.
func (s *Server) publicOnly(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromCtx(r.Context())
		if err != nil {
			s.handleError(w, r, err, false)
			return
		}

		if _, ok := sess.AccountID(); ok {
			s.handleError(w, r, errorz.ErrNotFound, false)
			return
		}

		handler.ServeHTTP(w, r)
	}))
}

// loggedIn registers a handler that requires an authenticated caller.
func (s *Server) loggedIn(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromCtx(r.Context())
		if err != nil {
			s.handleError(w, r, err, false)
			return
		}

		if _, ok := sess.AccountID(); !ok {
			s.handleError(w, r, errorz.ErrNotFound, false)
			return
		}

		handler.ServeHTTP(w, r)
	}))
}
