package appstate

import (
	"context"
	"testing"

	"github.com/MrSnakeDoc/bookboard/internal/auth"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/localstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T) (*State, *memory.Store) {
	t.Helper()

	local, err := localstore.Open("")
	require.NoError(t, err)
	session := auth.NewSession(local, logger.Nop())
	store := memory.New(1 << 20)
	gw := docstore.NewGateway(store, session, logger.Nop())

	return New(context.Background(), gw, session, local, domain.NewNotifier(), logger.Nop()), store
}

func TestGuestSession(t *testing.T) {
	s, _ := newState(t)

	status := s.Status()
	assert.False(t, status.SignedIn)
	assert.False(t, status.Synced)
	assert.False(t, status.AwaitingSync)

	require.NoError(t, s.Do(func(sess *Session) error {
		assert.Len(t, sess.Directory.Boards(), 1)
		assert.Equal(t, domain.StartingBoardName, sess.Directory.Selected().Name)
		return nil
	}))
}

func TestSignInMigratesGuestBoards(t *testing.T) {
	ctx := context.Background()
	s, store := newState(t)

	var boardID string
	require.NoError(t, s.Do(func(sess *Session) error {
		board := sess.Directory.Selected()
		boardID = board.ID
		_, p := board.AddBook(ctx, "Dune", "Frank Herbert")
		return p.Wait()
	}))

	require.NoError(t, s.SignIn(ctx, "u1"))

	status := s.Status()
	assert.True(t, status.SignedIn)
	assert.True(t, status.Synced)
	assert.False(t, status.AwaitingSync)

	_, err := store.Get(ctx, "users/u1/boards/"+boardID+"/chunks/0")
	require.NoError(t, err)
}

func TestSignOutResetsToGuest(t *testing.T) {
	ctx := context.Background()
	s, _ := newState(t)
	require.NoError(t, s.SignIn(ctx, "u1"))

	var before *Session
	require.NoError(t, s.Do(func(sess *Session) error {
		before = sess
		_, err := sess.Directory.AddBoard(ctx, domain.NewBoard(sess.Env, "Second"))
		return err
	}))

	s.SignOut(ctx)

	status := s.Status()
	assert.False(t, status.SignedIn)
	assert.False(t, status.Synced)
	require.NoError(t, s.Do(func(sess *Session) error {
		assert.NotSame(t, before, sess)
		assert.Len(t, sess.Directory.Boards(), 1)
		return nil
	}))
}

func TestSignInAsAnotherUserStartsOver(t *testing.T) {
	ctx := context.Background()
	s, store := newState(t)
	require.NoError(t, s.SignIn(ctx, "u1"))
	require.NoError(t, s.SignIn(ctx, "u2"))

	u1, err := store.Get(ctx, "users/u1")
	require.NoError(t, err)
	u2, err := store.Get(ctx, "users/u2")
	require.NoError(t, err)
	assert.NotEqual(t, u1["boardsMetadata"], u2["boardsMetadata"])
}

func TestSignInRejectsInvalidID(t *testing.T) {
	s, _ := newState(t)

	assert.ErrorIs(t, s.SignIn(context.Background(), ""), auth.ErrInvalidUserID)
	assert.False(t, s.Status().SignedIn)
}
