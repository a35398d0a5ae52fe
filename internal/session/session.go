package session

import (
	"strings"
	"sync"

	"spendlog/internal/core"
)

// Provider reports the signed-in user. The log store treats it as a black box.
type Provider interface {
	CurrentUserID() (string, bool)
}

// Session is an in-process identity holder with sign-out notifications.
type Session struct {
	mu        sync.RWMutex
	userID    string
	listeners []func()
}

func New() *Session { return &Session{} }

// SignIn replaces the current user. Switching users counts as a sign-out of
// the previous one.
func (s *Session) SignIn(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return &core.ValidationError{Field: "userId", Reason: "user id is required"}
	}
	s.mu.Lock()
	previous := s.userID
	s.userID = userID
	listeners := s.snapshot()
	s.mu.Unlock()

	if previous != "" && previous != userID {
		notify(listeners)
	}
	return nil
}

// SignOut forgets the user and runs the sign-out listeners.
func (s *Session) SignOut() {
	s.mu.Lock()
	wasSignedIn := s.userID != ""
	s.userID = ""
	listeners := s.snapshot()
	s.mu.Unlock()

	if wasSignedIn {
		notify(listeners)
	}
}

func (s *Session) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

// OnSignOut registers fn to run after every sign-out.
func (s *Session) OnSignOut(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) snapshot() []func() {
	return append([]func(){}, s.listeners...)
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}

// Static always reports the same user; an empty ID means signed out.
type Static string

func (s Static) CurrentUserID() (string, bool) {
	return string(s), s != ""
}
