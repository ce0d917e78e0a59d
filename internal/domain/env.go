package domain

import (
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

// Env carries the collaborators shared by every board, the directory and
// the profile of one session.
type Env struct {
	Store   *docstore.Gateway
	Profile *Profile
	Events  *Notifier
	Logger  logger.Logger
	Now     func() time.Time
}

// NewEnv builds an Env and its profile. The initial color theme is taken
// from cache when it holds a known theme.
func NewEnv(store *docstore.Gateway, events *Notifier, cache ThemeCache, log logger.Logger) *Env {
	env := &Env{
		Store:  store,
		Events: events,
		Logger: log,
		Now:    time.Now,
	}
	env.Profile = newProfile(env, cache)
	return env
}

// now is the current time at the millisecond precision timestamps are
// stored with.
func (e *Env) now() time.Time {
	return time.UnixMilli(e.Now().UnixMilli())
}

func (e *Env) emit(kind EventKind, boardID, bookID string) {
	e.Events.Emit(Event{Kind: kind, BoardID: boardID, BookID: bookID, At: e.Now()})
}
