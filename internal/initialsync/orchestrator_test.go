package initialsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identity struct {
	uid string
}

func (i *identity) UserID() (string, bool) { return i.uid, i.uid != "" }

// gatedStore holds every commit until gate is closed.
type gatedStore struct {
	*memory.Store
	gate chan struct{}
}

func (s *gatedStore) Commit(ctx context.Context, muts []docstore.Mutation) error {
	<-s.gate
	return s.Store.Commit(ctx, muts)
}

type failingStore struct {
	*memory.Store
}

func (s *failingStore) Get(context.Context, string) (docstore.Document, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	store *memory.Store
	id    *identity
	env   *domain.Env
	dir   *domain.Directory
	sync  *Orchestrator
}

func newFixture(t *testing.T, backend docstore.Backend, store *memory.Store) *fixture {
	t.Helper()

	id := &identity{}
	gw := docstore.NewGateway(backend, id, logger.Nop())
	env := domain.NewEnv(gw, domain.NewNotifier(), nil, logger.Nop())
	dir := domain.NewDirectory(context.Background(), env)

	return &fixture{
		store: store,
		id:    id,
		env:   env,
		dir:   dir,
		sync:  New(env, dir, id, logger.Nop()),
	}
}

func newMemoryFixture(t *testing.T) *fixture {
	store := memory.New(1 << 20)
	return newFixture(t, store, store)
}

func (f *fixture) doc(t *testing.T, path string) docstore.Document {
	t.Helper()
	doc, err := f.store.Get(context.Background(), path)
	require.NoError(t, err, "document %s", path)
	return doc
}

func (f *fixture) put(t *testing.T, path string, doc docstore.Document) {
	t.Helper()
	require.NoError(t, f.store.Commit(context.Background(), []docstore.Mutation{
		{Kind: docstore.MutationSet, Path: path, Data: doc},
	}))
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.store.CountDocuments(context.Background(), "")
	require.NoError(t, err)
	return n
}

func keys(doc docstore.Document) []string {
	out := make([]string, 0, len(doc))
	for k := range doc {
		out = append(out, k)
	}
	return out
}

func TestSyncDataAsGuest(t *testing.T) {
	f := newMemoryFixture(t)

	require.NoError(t, f.sync.SyncData(context.Background()))

	assert.False(t, f.sync.IsSynced())
	assert.Equal(t, 0, f.count(t))
}

func TestFirstSignInUploadsGuestSession(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)

	first := f.dir.Selected()
	unread, _ := first.AddBook(ctx, "Dune", "Frank Herbert")
	read, _ := first.AddBook(ctx, "Emma", "Jane Austen")
	rating := 4
	first.MarkAsRead(ctx, read, &domain.ReadingNotes{Rating: &rating})

	second := domain.NewBoard(f.env, "Later")
	_, err := f.dir.AddBoard(ctx, second)
	require.NoError(t, err)
	f.env.Profile.SetColorThemeLocally("berry")
	assert.Equal(t, 0, f.count(t))

	f.id.uid = "u1"
	require.NoError(t, f.sync.SyncData(ctx))

	assert.True(t, f.sync.IsSynced())
	assert.False(t, f.sync.IsPerformingPostSignupSync())

	user := f.doc(t, "users/u1")
	assert.Equal(t, "berry", user["colorTheme"])
	assert.Equal(t, float64(1), user["completedBooksCount"])
	assert.Equal(t, second.ID, user["lastSelectedBoardId"])
	assert.ElementsMatch(t, []string{first.ID, second.ID}, keys(user["boardsMetadata"].(map[string]any)))

	board := f.doc(t, "users/u1/boards/"+first.ID)
	assert.Equal(t, float64(2), board["totalBooksAdded"])
	assert.Equal(t, []any{unread.ID}, board["unreadBooksOrder"])

	chunk := f.doc(t, "users/u1/boards/"+first.ID+"/chunks/0")
	assert.ElementsMatch(t, []string{unread.ID, read.ID}, keys(chunk))
	assert.NotContains(t, chunk[unread.ID], "rating")
	assert.NotContains(t, chunk[unread.ID], "timeCompleted")
	assert.Equal(t, float64(4), chunk[read.ID].(map[string]any)["rating"])

	// An empty board still gets its chunk 0 document.
	assert.Empty(t, f.doc(t, "users/u1/boards/"+second.ID+"/chunks/0"))

	// user + 2 boards + 2 chunks
	assert.Equal(t, 5, f.count(t))
}

func TestFirstSignInGroupsBooksByChunk(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)

	board := f.dir.Selected()
	early, _ := board.AddBook(ctx, "A", "a")
	board.TotalBooksAdded = domain.MaxBooksPerDocument
	late, _ := board.AddBook(ctx, "B", "b")
	require.Equal(t, 1, late.Chunk)

	f.id.uid = "u1"
	require.NoError(t, f.sync.SyncData(ctx))

	base := "users/u1/boards/" + board.ID + "/chunks/"
	assert.Equal(t, []string{early.ID}, keys(f.doc(t, base+"0")))
	assert.Equal(t, []string{late.ID}, keys(f.doc(t, base+"1")))
}

func TestPostSignupSyncFlag(t *testing.T) {
	store := memory.New(1 << 20)
	gated := &gatedStore{Store: store, gate: make(chan struct{})}
	f := newFixture(t, gated, store)
	f.id.uid = "u1"

	done := make(chan error, 1)
	go func() { done <- f.sync.SyncData(context.Background()) }()

	assert.Eventually(t, f.sync.IsPerformingPostSignupSync, time.Second, time.Millisecond)
	assert.False(t, f.sync.IsSynced())

	close(gated.gate)
	require.NoError(t, <-done)
	assert.False(t, f.sync.IsPerformingPostSignupSync())
	assert.True(t, f.sync.IsSynced())
}

func TestReturningUserRestoresStoredData(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	local := f.dir.Selected()

	f.put(t, "users/u1", docstore.Document{
		"colorTheme":          "coffee",
		"plants":              map[string]any{"a": "wes"},
		"completedBooksCount": 9,
		"lastSelectedBoardId": "later0",
		"boardsMetadata": map[string]any{
			"first0": map[string]any{"name": "First", "timeCreated": 1000},
			"later0": map[string]any{"name": "Later", "timeCreated": 2000},
		},
	})
	f.put(t, "users/u1/boards/later0", docstore.Document{
		"totalBooksAdded":  1,
		"unreadBooksOrder": []any{"book0001"},
	})
	f.put(t, "users/u1/boards/later0/chunks/0", docstore.Document{
		"book0001": map[string]any{"title": "Dune", "author": "Frank Herbert", "chunk": 0},
	})

	f.id.uid = "u1"
	require.NoError(t, f.sync.SyncData(ctx))

	assert.Equal(t, domain.ProfileSnapshot{
		ColorTheme:          "coffee",
		Plants:              domain.Plants{A: "wes", B: domain.DefaultPlant},
		CompletedBooksCount: 9,
		LastSelectedBoardID: "later0",
	}, f.env.Profile.Snapshot())

	boards := f.dir.Boards()
	require.Len(t, boards, 2)
	assert.Equal(t, "first0", boards[0].ID)
	assert.Equal(t, "later0", boards[1].ID)
	_, kept := f.dir.Board(local.ID)
	assert.False(t, kept)

	selected := f.dir.Selected()
	assert.Equal(t, "later0", selected.ID)
	assert.True(t, f.dir.IsLoaded("later0"))
	assert.False(t, f.dir.IsLoaded("first0"))
	assert.Equal(t, []string{"book0001"}, selected.UnreadBooksOrder)

	// Restoring never writes.
	assert.Equal(t, 3, f.count(t))
}

func TestReturningUserWithoutLastSelectedBoard(t *testing.T) {
	f := newMemoryFixture(t)
	f.put(t, "users/u1", docstore.Document{
		"lastSelectedBoardId": "gone00",
		"boardsMetadata": map[string]any{
			"b00002": map[string]any{"name": "Two", "timeCreated": 2000},
			"b00001": map[string]any{"name": "One", "timeCreated": 1000},
		},
	})

	f.id.uid = "u1"
	require.NoError(t, f.sync.SyncData(context.Background()))

	assert.Equal(t, "b00001", f.dir.Selected().ID)
	assert.True(t, f.dir.IsLoaded("b00001"))
	assert.Equal(t, domain.DefaultColorTheme, f.env.Profile.ColorTheme())
}

func TestUserDocumentWithoutBoards(t *testing.T) {
	f := newMemoryFixture(t)
	local := f.dir.Selected()
	f.put(t, "users/u1", docstore.Document{"colorTheme": "berry", "completedBooksCount": 3})

	f.id.uid = "u1"
	require.NoError(t, f.sync.SyncData(context.Background()))

	assert.True(t, f.sync.IsSynced())
	assert.Equal(t, local, f.dir.Selected())
	assert.Equal(t, 3, f.env.Profile.CompletedBooksCount())

	user := f.doc(t, "users/u1")
	assert.Equal(t, "berry", user["colorTheme"])
	assert.Equal(t, float64(3), user["completedBooksCount"])
	assert.Equal(t, []string{local.ID}, keys(user["boardsMetadata"].(map[string]any)))
	f.doc(t, "users/u1/boards/"+local.ID)
	f.doc(t, "users/u1/boards/"+local.ID+"/chunks/0")
}

func TestSyncDataRunsOncePerUser(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	f.id.uid = "u1"
	require.NoError(t, f.sync.SyncData(ctx))
	before := f.count(t)

	require.NoError(t, f.store.Commit(ctx, []docstore.Mutation{
		{Kind: docstore.MutationDelete, Path: "users/u1"},
	}))
	require.NoError(t, f.sync.SyncData(ctx))
	assert.Equal(t, before-1, f.count(t))

	f.sync.Reset()
	assert.False(t, f.sync.IsSynced())
	require.NoError(t, f.sync.SyncData(ctx))
	assert.Equal(t, before, f.count(t))
}

func TestSyncDataReadFailure(t *testing.T) {
	store := memory.New(1 << 20)
	f := newFixture(t, &failingStore{Store: store}, store)
	f.id.uid = "u1"

	err := f.sync.SyncData(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read user document")
	assert.False(t, f.sync.IsSynced())
	assert.Equal(t, 0, f.count(t))
}

func TestSyncDataEmitsSynced(t *testing.T) {
	f := newMemoryFixture(t)
	events, unsubscribe := f.env.Events.Subscribe(16)
	defer unsubscribe()

	f.id.uid = "u1"
	require.NoError(t, f.sync.SyncData(context.Background()))

	var kinds []domain.EventKind
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	assert.Contains(t, kinds, domain.EventSynced)
}

// cancelAwareStore fails a held commit whose context has been cancelled.
type cancelAwareStore struct {
	*memory.Store
	gate chan struct{}
}

func (s *cancelAwareStore) Commit(ctx context.Context, muts []docstore.Mutation) error {
	<-s.gate
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Commit(ctx, muts)
}

func TestUploadOutlivesCancelledCaller(t *testing.T) {
	store := memory.New(1 << 20)
	held := &cancelAwareStore{Store: store, gate: make(chan struct{})}
	f := newFixture(t, held, store)
	f.id.uid = "u1"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sync.SyncData(ctx) }()

	assert.Eventually(t, f.sync.IsPerformingPostSignupSync, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, f.sync.IsSynced())

	close(held.gate)
	require.NoError(t, f.env.Store.Flush(context.Background()))
	f.doc(t, "users/u1")
	f.doc(t, "users/u1/boards/"+f.dir.Selected().ID)
}
