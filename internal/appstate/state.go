// Package appstate holds the single in-memory session of the process and
// serialises every action on it.
package appstate

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/bookboard/internal/auth"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/initialsync"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

// Session is everything one signed-in (or guest) session owns.
type Session struct {
	Env       *domain.Env
	Directory *domain.Directory
	Sync      *initialsync.Orchestrator
}

// SyncStatus is readable without waiting for a running action.
type SyncStatus struct {
	SignedIn      bool
	AwaitingSync  bool
	Synced        bool
	PostSignup    bool
	WriteInFlight bool
}

// State owns the current Session. Sign-out replaces it with a fresh guest
// session, discarding everything held in memory.
type State struct {
	mu      sync.Mutex
	current atomic.Pointer[Session]

	store  *docstore.Gateway
	auth   *auth.Session
	cache  domain.ThemeCache
	events *domain.Notifier
	logger logger.Logger
}

func New(ctx context.Context, store *docstore.Gateway, session *auth.Session, cache domain.ThemeCache, events *domain.Notifier, log logger.Logger) *State {
	s := &State{
		store:  store,
		auth:   session,
		cache:  cache,
		events: events,
		logger: log,
	}
	s.current.Store(s.newSession(ctx))
	return s
}

func (s *State) newSession(ctx context.Context) *Session {
	env := domain.NewEnv(s.store, s.events, s.cache, s.logger)
	dir := domain.NewDirectory(ctx, env)
	return &Session{
		Env:       env,
		Directory: dir,
		Sync:      initialsync.New(env, dir, s.auth, s.logger),
	}
}

// Events is the notifier shared by every session of the process.
func (s *State) Events() *domain.Notifier {
	return s.events
}

// Do runs fn with exclusive access to the current session.
func (s *State) Do(fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.current.Load())
}

// Status reports the sync flags of the current session.
func (s *State) Status() SyncStatus {
	cur := s.current.Load()
	_, signedIn := s.auth.UserID()
	synced := cur.Sync.IsSynced()
	return SyncStatus{
		SignedIn:      signedIn,
		AwaitingSync:  s.auth.WasAuthenticated() && !synced,
		Synced:        synced,
		PostSignup:    cur.Sync.IsPerformingPostSignupSync(),
		WriteInFlight: s.store.WriteInFlight(),
	}
}

// SignIn records uid and runs the initial sync for it. The session stays
// signed in when the sync fails; calling SignIn again retries it.
func (s *State) SignIn(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.auth.UserID(); ok && cur != uid {
		s.resetLocked(ctx)
	}
	if err := s.auth.SignIn(uid); err != nil {
		return err
	}
	s.events.Emit(domain.Event{Kind: domain.EventSessionChanged, Detail: "signed-in"})

	return s.current.Load().Sync.SyncData(ctx)
}

// SignOut forgets the user and starts a fresh guest session.
func (s *State) SignOut(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auth.SignOut()
	s.resetLocked(ctx)
	s.events.Emit(domain.Event{Kind: domain.EventSessionChanged, Detail: "signed-out"})
}

func (s *State) resetLocked(ctx context.Context) {
	s.current.Load().Sync.Reset()
	s.current.Store(s.newSession(ctx))
}
