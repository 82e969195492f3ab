package web

import (
	"errors"
	"net/http"

	"accountd/internal/auth"
	"accountd/internal/email"
	"accountd/internal/errorz"
)

// MessageKey identifies a user-facing message. The keys are localized by
// the presentation layer, this package only picks them.
type MessageKey string

const (
	MsgInvalidEmail            MessageKey = "INVALID_EMAIL"
	MsgInvalidPassword         MessageKey = "INVALID_PASSWORD"
	MsgInvalidResetToken       MessageKey = "INVALID_RESET_TOKEN"
	MsgInvalidResetPassword    MessageKey = "INVALID_RESET_PASSWORD"
	MsgInvalidPasswordStrength MessageKey = "INVALID_PASSWORD_STRENGTH"
	MsgPasswordResetLimit      MessageKey = "PASSWORD_RESET_LIMIT"
	MsgPasswordResetSent       MessageKey = "PASSWORD_RESET_SENT"
	MsgResetPassword           MessageKey = "RESET_PASSWORD"
	MsgRegistered              MessageKey = "REGISTERED"
	MsgUnknownError            MessageKey = "UNKNOWN_ERROR"
)

// errToMessage maps an error to the HTTP status and message key to report.
// inReset switches the password related keys to their reset flow variants.
func errToMessage(err error, inReset bool) (int, MessageKey) {
	var rateErr auth.RateLimitError

	switch {
	case errors.Is(err, email.ErrInvalidEmail), errors.Is(err, auth.ErrDuplicateEmail):
		// Duplicate emails are reported as a bad email, not as a server
		// error, and without confirming the address is registered.
		return http.StatusBadRequest, MsgInvalidEmail
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, MsgInvalidPasswordStrength
	case errors.Is(err, auth.ErrInvalidPassword):
		if inReset {
			return http.StatusBadRequest, MsgInvalidResetPassword
		}
		return http.StatusBadRequest, MsgInvalidPassword
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusBadRequest, MsgInvalidResetToken
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, MsgInvalidPassword
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, MsgPasswordResetLimit
	case errors.Is(err, errorz.ErrNotFound):
		return http.StatusNotFound, MsgUnknownError
	default:
		return http.StatusInternalServerError, MsgUnknownError
	}
}
