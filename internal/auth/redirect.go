package auth

import (
	"log/slog"
	"strings"
)

// RedirectResolver validates caller-supplied "return to" targets against
// open-redirect abuse. Anything that looks like an absolute URL must point
// at the trusted origin; relative paths are always accepted as-is, safe
// emission is the job of the HTTP layer.
type RedirectResolver struct {
	trustedOrigin string
	logger        *slog.Logger
}

// NewRedirectResolver creates a resolver that trusts targets on the given
// origin, e.g. "https://app.example".
func NewRedirectResolver(trustedOrigin string, logger *slog.Logger) *RedirectResolver {
	return &RedirectResolver{
		trustedOrigin: strings.TrimSuffix(trustedOrigin, "/"),
		logger:        logger,
	}
}

// Resolve returns the candidate if it is safe to redirect to, or the empty
// string if the candidate is blank or points outside the trusted origin.
// Rejections are reported as warning events.
func (r *RedirectResolver) Resolve(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}

	// "://" means the candidate is an absolute URL and could send the
	// user anywhere. Only allow it when it targets our own origin.
	if strings.Contains(candidate, "://") && !r.onTrustedOrigin(candidate) {
		r.logger.Warn("rejected redirect target", "target", candidate)
		return ""
	}

	return candidate
}

// onTrustedOrigin reports whether target points at the trusted origin. A
// plain prefix match is not enough, the origin must be followed by a path,
// query or fragment boundary so "https://app.example.evil.test" does not
// pass for "https://app.example".
func (r *RedirectResolver) onTrustedOrigin(target string) bool {
	rest, ok := strings.CutPrefix(target, r.trustedOrigin)
	if !ok {
		return false
	}
	return rest == "" || rest[0] == '/' || rest[0] == '?' || rest[0] == '#'
}

// LocalizePath prefixes target with a locale segment. Relative targets get
// the segment up front, absolute targets on the trusted origin get it
// directly after the origin. An empty locale leaves the target untouched.
func (r *RedirectResolver) LocalizePath(target, locale string) string {
	if locale == "" || target == "" {
		return target
	}

	if r.onTrustedOrigin(target) {
		path := strings.TrimPrefix(target, r.trustedOrigin)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return r.trustedOrigin + "/" + locale + path
	}

	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	return "/" + locale + target
}
