package web

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/schema"

	"accountd/internal"
	"accountd/internal/auth"
	"accountd/internal/errorz"
	"accountd/internal/web/sessions"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"revision": internal.BuildRevision,
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err, false)
		return
	}

	if target := s.deps.Redirects.Resolve(r.URL.Query().Get("return_to")); target != "" {
		sess.SetPendingRedirect(target)
	}

	if sess.NeedsSave() {
		if err := s.deps.SessionStore.Save(r, w, sess); err != nil {
			s.handleError(w, r, err, false)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

type registerForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
	Locale   string `schema:"locale"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess, form, ok := formRequest[registerForm](s, w, r)
	if !ok {
		return
	}

	result, err := s.deps.AuthService.Register(r.Context(), auth.RegisterInput{
		Email:           form.Email,
		Password:        form.Password,
		Locale:          s.requestLocale(form.Locale, sess),
		PendingRedirect: sess.ConsumePendingRedirect(),
	})
	if err != nil {
		s.handleError(w, r, err, false)
		return
	}

	s.establishSession(w, r, sess, result, MsgRegistered)
}

type loginForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
	Locale   string `schema:"locale"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess, form, ok := formRequest[loginForm](s, w, r)
	if !ok {
		return
	}

	result, err := s.deps.AuthService.Login(r.Context(), auth.LoginInput{
		Email:           form.Email,
		Password:        form.Password,
		Locale:          s.requestLocale(form.Locale, sess),
		PendingRedirect: sess.ConsumePendingRedirect(),
	})
	if err != nil {
		s.handleError(w, r, err, false)
		return
	}

	s.establishSession(w, r, sess, result, "")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err, false)
		return
	}

	locale := sess.Locale()
	sess.DeleteAccountID()
	if err := s.deps.SessionStore.Save(r, w, sess); err != nil {
		s.handleError(w, r, err, false)
		return
	}

	s.writeRedirect(w, r, s.deps.Redirects.LocalizePath("/", locale))
}

type forgotPasswordForm struct {
	Email  string `schema:"email"`
	Locale string `schema:"locale"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	sess, form, ok := formRequest[forgotPasswordForm](s, w, r)
	if !ok {
		return
	}

	err := s.deps.AuthService.ForgotPassword(r.Context(), form.Email, s.requestLocale(form.Locale, sess))
	if err != nil {
		s.handleError(w, r, err, false)
		return
	}

	s.writeMessage(w, r, http.StatusOK, MsgPasswordResetSent, "/login")
}

type resetPasswordForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
	Token    string `schema:"token"`
	Locale   string `schema:"locale"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	sess, form, ok := formRequest[resetPasswordForm](s, w, r)
	if !ok {
		return
	}

	result, err := s.deps.AuthService.ResetPassword(r.Context(), auth.ResetInput{
		Email:           form.Email,
		Password:        form.Password,
		Token:           form.Token,
		Locale:          s.requestLocale(form.Locale, sess),
		PendingRedirect: sess.ConsumePendingRedirect(),
	})
	if err != nil {
		// A weak password can still come with an established login, the
		// token was consumed and the old password remains in place.
		if errors.Is(err, auth.ErrWeakPassword) && result.Account.ID != uuid.Nil {
			s.establishSession(w, r, sess, result, MsgInvalidPasswordStrength)
			return
		}

		s.handleError(w, r, err, true)
		return
	}

	s.establishSession(w, r, sess, result, MsgResetPassword)
}

// establishSession stores the authenticated account in the session and
// sends the caller to the post-auth destination.
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, sess *sessions.Session, result auth.LoginResult, flash MessageKey) {
	// Clear the CSRF token cookie to provide defense in depth against
	// fixation attacks. A new token is generated on the next GET.
	http.SetCookie(w, &http.Cookie{
		Name:   csrfTokenCookieName,
		MaxAge: -1,
	})

	sess.SetAccountID(result.Account.ID)
	sess.SetLocale(result.Locale)

	if flash != "" {
		sess.AddFlash(string(flash))
	}
	if result.Greeting != "" {
		sess.AddFlash(string(result.Greeting))
	}

	if err := s.deps.SessionStore.Save(r, w, sess); err != nil {
		s.handleError(w, r, err, false)
		return
	}

	if wantsJSON(r) {
		body := map[string]string{
			"redirectTo": result.RedirectTo,
		}
		if result.Greeting != "" {
			body["greeting"] = string(result.Greeting)
		}
		if flash != "" {
			body["message"] = string(flash)
		}
		writeJSON(w, http.StatusOK, body)
		return
	}

	http.Redirect(w, r, result.RedirectTo, http.StatusSeeOther)
}

// requestLocale picks the active locale of the request: an explicit form
// value wins over the locale remembered in the session.
func (s *Server) requestLocale(formLocale string, sess *sessions.Session) string {
	if formLocale != "" {
		return formLocale
	}

	return sess.Locale()
}

// formRequest loads the session and decodes the form body into a value of
// type T. On failure it writes the error response and reports false.
func formRequest[T any](s *Server, w http.ResponseWriter, r *http.Request) (*sessions.Session, T, bool) {
	var form T

	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err, false)
		return nil, form, false
	}

	if err := r.ParseForm(); err != nil {
		s.handleError(w, r, err, false)
		return nil, form, false
	}

	// Remove the CSRF token from the form, it doesn't map to any form
	// struct and the decoder would fail on it.
	r.Form.Del(csrfTokenField)

	if err := s.decoder.Decode(&form, r.Form); err != nil {
		s.handleError(w, r, decodeError(err), false)
		return nil, form, false
	}

	return sess, form, true
}

func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		var invalidInput errorz.InvalidInput
		for key, e := range multiErr {
			invalidInput = append(invalidInput, errorz.Keyed{
				Key: key,
				Err: e,
			})
		}

		return invalidInput
	}

	return err
}
