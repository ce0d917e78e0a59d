package domain

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/store/memory"
	"github.com/stretchr/testify/require"
)

type testIdentity struct {
	uid string
}

func (i *testIdentity) UserID() (string, bool) {
	return i.uid, i.uid != ""
}

type testThemeCache struct {
	theme string
}

func (c *testThemeCache) ColorTheme() string { return c.theme }

func (c *testThemeCache) SetColorTheme(theme string) error {
	c.theme = theme
	return nil
}

type testClock struct {
	t time.Time
}

// now advances by one second on every call so timestamps are distinct.
func (c *testClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	env   *Env
	store *memory.Store
	id    *testIdentity
	cache *testThemeCache
}

func newFixture(t *testing.T, uid string) *fixture {
	t.Helper()

	store := memory.New(1 << 20)
	id := &testIdentity{uid: uid}
	cache := &testThemeCache{}
	gw := docstore.NewGateway(store, id, logger.Nop())
	env := NewEnv(gw, NewNotifier(), cache, logger.Nop())
	clock := &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	env.Now = clock.now

	return &fixture{env: env, store: store, id: id, cache: cache}
}

func (f *fixture) doc(t *testing.T, path string) docstore.Document {
	t.Helper()
	doc, err := f.store.Get(context.Background(), path)
	require.NoError(t, err, "document %s", path)
	return doc
}

func (f *fixture) documents(t *testing.T) int {
	t.Helper()
	n, err := f.store.CountDocuments(context.Background(), "")
	require.NoError(t, err)
	return n
}

func (f *fixture) put(t *testing.T, path string, doc docstore.Document) {
	t.Helper()
	require.NoError(t, f.store.Commit(context.Background(), []docstore.Mutation{
		{Kind: docstore.MutationSet, Path: path, Data: doc},
	}))
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func wait(t *testing.T, p *docstore.Pending) {
	t.Helper()
	require.NoError(t, p.Wait())
}
