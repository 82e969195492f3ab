package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"accountd/internal/auth"
	"accountd/internal/errorz"
)

// wantsJSON reports whether the client prefers a structured result over a
// redirect instruction.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// writeRedirect sends the caller to target: either as an HTTP redirect or,
// for JSON clients, as a {redirectTo} document.
func (s *Server) writeRedirect(w http.ResponseWriter, r *http.Request, target string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{
			"redirectTo": target,
		})
		return
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// writeMessage reports a message key: as a {message} document for JSON
// clients, or as a flash plus a redirect back to fallback otherwise.
func (s *Server) writeMessage(w http.ResponseWriter, r *http.Request, status int, key MessageKey, fallback string) {
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{
			"message": string(key),
		})
		return
	}

	sess, err := sessionFromCtx(r.Context())
	if err == nil {
		sess.AddFlash(string(key))
		if saveErr := s.deps.SessionStore.Save(r, w, sess); saveErr != nil {
			s.deps.Logger.Error("failed to save session", "error", saveErr)
		}
	}

	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

// handleError writes an error response with the appropriate status and
// message key. Unexpected errors are logged with full detail and reported
// generically.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error, inReset bool) {
	var invalidInput errorz.InvalidInput
	if errors.As(err, &invalidInput) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": string(MsgUnknownError),
			"detail":  invalidInput.Error(),
		})
		return
	}

	status, key := errToMessage(err, inReset)

	var rateErr auth.RateLimitError
	if errors.As(err, &rateErr) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rateErr.RetryAfter.Seconds())))
		writeJSON(w, status, map[string]string{
			"message":    string(key),
			"retryAfter": fmt.Sprintf("%d", int(rateErr.RetryAfter.Seconds())),
		})
		return
	}

	if status >= http.StatusInternalServerError {
		s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
	}

	writeJSON(w, status, map[string]string{
		"message": string(key),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
