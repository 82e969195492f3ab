package sessions

import (
	"encoding/gob"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

func init() {
	// Account ids are stored in cookie sessions, which serialize with gob.
	gob.Register(uuid.UUID{})
}

// Session wraps a cookie session with typed accessors for the values the
// auth flows need: the authenticated account, the pending redirect target
// and the active locale.
type Session struct {
	base      *sessions.Session
	needsSave bool
}

func (s *Session) NeedsSave() bool {
	return s.needsSave
}

func (s *Session) AccountID() (uuid.UUID, bool) {
	accountID, ok := s.base.Values["accountID"].(uuid.UUID)
	return accountID, ok
}

func (s *Session) SetAccountID(accountID uuid.UUID) {
	s.needsSave = true
	s.base.Values["accountID"] = accountID
}

func (s *Session) DeleteAccountID() {
	s.needsSave = true
	delete(s.base.Values, "accountID")
}

// PendingRedirect returns the stored post-auth redirect target, if any.
func (s *Session) PendingRedirect() (string, bool) {
	target, ok := s.base.Values["pendingRedirect"].(string)
	return target, ok
}

func (s *Session) SetPendingRedirect(target string) {
	s.needsSave = true
	s.base.Values["pendingRedirect"] = target
}

// ConsumePendingRedirect returns the stored redirect target and clears it.
func (s *Session) ConsumePendingRedirect() string {
	target, ok := s.PendingRedirect()
	if !ok {
		return ""
	}

	s.needsSave = true
	delete(s.base.Values, "pendingRedirect")

	return target
}

func (s *Session) Locale() string {
	locale, _ := s.base.Values["locale"].(string)
	return locale
}

func (s *Session) SetLocale(locale string) {
	s.needsSave = true
	s.base.Values["locale"] = locale
}

func (s *Session) AddFlash(flash any, vars ...string) {
	s.needsSave = true
	s.base.AddFlash(flash, vars...)
}

// ConsumeFlashes returns all flashes and clears them.
func (s *Session) ConsumeFlashes() []any {
	flashes := s.base.Flashes()
	if len(flashes) > 0 {
		s.needsSave = true
	}
	return flashes
}
