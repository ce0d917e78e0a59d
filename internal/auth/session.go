// Package auth tracks who is signed in on this device.
//
// Credentials are verified upstream (a reverse proxy or the identity
// provider's own callback); Session only records the resulting user id.
package auth

import (
	"errors"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

// ErrInvalidUserID is returned by SignIn for an empty or malformed id.
var ErrInvalidUserID = errors.New("invalid user id")

// FlagStore persists the "was authenticated" flag across restarts.
type FlagStore interface {
	WasAuthenticated() bool
	SetAuthenticated(bool) error
}

// Session is the identity provider of the running process.
type Session struct {
	mu     sync.RWMutex
	uid    string
	flags  FlagStore
	logger logger.Logger
}

func NewSession(flags FlagStore, log logger.Logger) *Session {
	return &Session{flags: flags, logger: log}
}

// UserID returns the signed-in user.
func (s *Session) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid, s.uid != ""
}

// SignIn records uid as the signed-in user.
func (s *Session) SignIn(uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" || strings.Contains(uid, "/") {
		return ErrInvalidUserID
	}

	s.mu.Lock()
	s.uid = uid
	s.mu.Unlock()

	s.setFlag(true)
	s.logger.Info("signed in", logger.String("uid", uid))
	return nil
}

// SignOut forgets the signed-in user.
func (s *Session) SignOut() {
	s.mu.Lock()
	uid := s.uid
	s.uid = ""
	s.mu.Unlock()

	s.setFlag(false)
	if uid != "" {
		s.logger.Info("signed out", logger.String("uid", uid))
	}
}

// WasAuthenticated reports whether the previous session on this device was
// signed in, so a loading state can be shown until sync completes.
func (s *Session) WasAuthenticated() bool {
	if s.flags == nil {
		return false
	}
	return s.flags.WasAuthenticated()
}

func (s *Session) setFlag(ok bool) {
	if s.flags == nil {
		return
	}
	if err := s.flags.SetAuthenticated(ok); err != nil {
		s.logger.Warn("failed to persist auth state", logger.Error(err))
	}
}
