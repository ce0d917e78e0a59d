package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/auth"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookboard/internal/localstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/store/memory"
	"github.com/MrSnakeDoc/bookboard/internal/validation"
)

// brokenCommits refuses every write.
type brokenCommits struct {
	*memory.Store
}

func (b brokenCommits) Commit(context.Context, []docstore.Mutation) error {
	return errors.New("connection reset")
}

func newTestDeps(t *testing.T, backend docstore.Backend) deps.Deps {
	t.Helper()

	local, err := localstore.Open("")
	require.NoError(t, err)

	log := logger.Nop()
	session := auth.NewSession(local, log)
	gw := docstore.NewGateway(backend, session, log)
	state := appstate.New(context.Background(), gw, session, local, domain.NewNotifier(), log)

	return deps.Deps{
		Logger:    log,
		StartTime: time.Now(),
		TimeNow:   time.Now,
		StoreKind: "memory",
		Backend:   backend,
		Gateway:   gw,
		State:     state,
		Validator: validation.New(),
	}
}

func newTestRouter(d deps.Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/state", GetState(d))
	r.Post("/api/session", SignIn(d))
	r.Delete("/api/session", SignOut(d))
	r.Put("/api/view", SetViewMode(d))

	r.Post("/api/boards", AddBoard(d))
	r.Put("/api/boards/selected", SelectBoard(d))
	r.Get("/api/boards/{boardID}", GetBoard(d))
	r.Patch("/api/boards/{boardID}", RenameBoard(d))
	r.Delete("/api/boards/{boardID}", DeleteBoard(d))
	r.Put("/api/boards/{boardID}/order", UpdateOrder(d))
	r.Put("/api/boards/{boardID}/sort", SetSortMode(d))
	r.Post("/api/boards/{boardID}/books", AddBook(d))
	r.Patch("/api/boards/{boardID}/books/{bookID}", EditBook(d))
	r.Delete("/api/boards/{boardID}/books/{bookID}", DeleteBook(d))
	r.Post("/api/boards/{boardID}/books/{bookID}/read", MarkAsRead(d))

	r.Put("/api/profile/theme", SetTheme(d))
	r.Post("/api/profile/theme/sync", SyncTheme(d))
	r.Put("/api/profile/plants/{slot}", SetPlant(d))
	r.Post("/api/profile/plants/sync", SyncPlants(d))

	r.Get("/api/events", Events(d))
	r.Get("/api/infra", Infra(d))
	r.Get("/readyz", Readyz(d))
	r.Get("/healthz", Healthz(d))
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type envelope[T any] struct {
	Synced bool   `json:"synced"`
	Error  string `json:"error"`
	Data   T      `json:"data"`
}

func getState(t *testing.T, h http.Handler) stateView {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return decodeBody[stateView](t, rec)
}

func addBook(t *testing.T, h http.Handler, boardID, title string) bookView {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/boards/"+boardID+"/books",
		map[string]string{"title": title, "author": "Someone"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[envelope[bookView]](t, rec).Data
}

func TestGetStateGuest(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))

	st := getState(t, h)
	assert.False(t, st.SignedIn)
	assert.False(t, st.Synced)
	assert.Equal(t, "unread", st.ViewMode)
	require.Len(t, st.Boards, 1)
	assert.Equal(t, st.Boards[0].ID, st.SelectedBoardID)
	assert.True(t, st.Boards[0].Loaded)
	assert.Equal(t, domain.DefaultColorTheme, st.Profile.ColorTheme)
	assert.ElementsMatch(t, []string{"vanilla", "moonlight", "george"}, st.Profile.Unlocked)
}

func TestAddBoardAndBook(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))

	rec := do(t, h, http.MethodPost, "/api/boards", map[string]string{"name": "Later"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decodeBody[envelope[boardSummary]](t, rec)
	assert.True(t, added.Synced)
	assert.Equal(t, "Later", added.Data.Name)
	assert.True(t, added.Data.Loaded)

	book := addBook(t, h, added.Data.ID, "Dune")
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, 0, book.Chunk)

	rec = do(t, h, http.MethodGet, "/api/boards/"+added.Data.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decodeBody[boardView](t, rec)
	assert.Equal(t, 1, board.TotalBooksAdded)
	require.Len(t, board.UnreadBooks, 1)
	assert.Equal(t, book.ID, board.UnreadBooks[0].ID)
	assert.Empty(t, board.ReadBooks)

	st := getState(t, h)
	assert.Len(t, st.Boards, 2)
	assert.Equal(t, added.Data.ID, st.SelectedBoardID)
}

func TestRequestErrors(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))
	boardID := getState(t, h).SelectedBoardID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "missing board name", method: http.MethodPost, path: "/api/boards", body: map[string]string{}, want: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/api/boards", body: map[string]string{"name": "x", "color": "red"}, want: http.StatusBadRequest},
		{name: "unknown board", method: http.MethodGet, path: "/api/boards/nope", want: http.StatusNotFound},
		{name: "unknown book", method: http.MethodPost, path: "/api/boards/" + boardID + "/books/nope/read", want: http.StatusNotFound},
		{name: "last board", method: http.MethodDelete, path: "/api/boards/" + boardID, want: http.StatusConflict},
		{name: "order is not a permutation", method: http.MethodPut, path: "/api/boards/" + boardID + "/order", body: map[string][]string{"order": {"ghost"}}, want: http.StatusBadRequest},
		{name: "unknown sort mode", method: http.MethodPut, path: "/api/boards/" + boardID + "/sort", body: map[string]string{"mode": "alphabetical"}, want: http.StatusBadRequest},
		{name: "unknown theme", method: http.MethodPut, path: "/api/profile/theme", body: map[string]string{"theme": "neon"}, want: http.StatusBadRequest},
		{name: "locked theme", method: http.MethodPut, path: "/api/profile/theme", body: map[string]string{"theme": "milkyway"}, want: http.StatusForbidden},
		{name: "locked plant", method: http.MethodPut, path: "/api/profile/plants/a", body: map[string]string{"plant": "roman"}, want: http.StatusForbidden},
		{name: "unknown plant slot", method: http.MethodPut, path: "/api/profile/plants/c", body: map[string]string{"plant": "george"}, want: http.StatusBadRequest},
		{name: "empty user id", method: http.MethodPost, path: "/api/session", body: map[string]string{"userId": ""}, want: http.StatusBadRequest},
		{name: "user id with slash", method: http.MethodPost, path: "/api/session", body: map[string]string{"userId": "a/b"}, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			body := decodeBody[errorResponse](t, rec)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestValidationErrorNamesFields(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))
	boardID := getState(t, h).SelectedBoardID

	rec := do(t, h, http.MethodPost, "/api/boards/"+boardID+"/books", map[string]string{"title": "Dune"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Fields, "author")
	assert.NotContains(t, body.Fields, "title")
}

func TestMarkAsRead(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))
	boardID := getState(t, h).SelectedBoardID
	first := addBook(t, h, boardID, "Dune")
	second := addBook(t, h, boardID, "Emma")

	t.Run("empty body", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/boards/"+boardID+"/books/"+first.ID+"/read", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		book := decodeBody[envelope[bookView]](t, rec).Data
		assert.NotNil(t, book.TimeCompleted)
		assert.Nil(t, book.Rating)
	})

	t.Run("with rating", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/boards/"+boardID+"/books/"+second.ID+"/read",
			map[string]any{"rating": 4, "review": "good"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		book := decodeBody[envelope[bookView]](t, rec).Data
		require.NotNil(t, book.Rating)
		assert.Equal(t, 4, *book.Rating)
	})

	rec := do(t, h, http.MethodGet, "/api/boards/"+boardID, nil)
	board := decodeBody[boardView](t, rec)
	assert.Empty(t, board.UnreadBooks)
	assert.Len(t, board.ReadBooks, 2)

	st := getState(t, h)
	assert.Equal(t, 2, st.Profile.CompletedBooksCount)
	assert.Contains(t, st.Profile.Unlocked, "almond")
	assert.Contains(t, st.Profile.Unlocked, "frank")

	rec = do(t, h, http.MethodPut, "/api/profile/plants/b", map[string]string{"plant": "frank"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "frank", decodeBody[profileView](t, rec).Plants.B)
}

func TestUpdateOrder(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))
	boardID := getState(t, h).SelectedBoardID
	a := addBook(t, h, boardID, "A")
	b := addBook(t, h, boardID, "B")

	rec := do(t, h, http.MethodPut, "/api/boards/"+boardID+"/order", map[string][]string{"order": {b.ID, a.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/boards/"+boardID, nil)
	board := decodeBody[boardView](t, rec)
	require.Len(t, board.UnreadBooks, 2)
	assert.Equal(t, b.ID, board.UnreadBooks[0].ID)
	assert.Equal(t, a.ID, board.UnreadBooks[1].ID)
}

func TestSetThemeAndViewMode(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))

	rec := do(t, h, http.MethodPut, "/api/profile/theme", map[string]string{"theme": "moonlight"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "moonlight", decodeBody[profileView](t, rec).ColorTheme)

	rec = do(t, h, http.MethodPost, "/api/profile/theme/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[writeResponse](t, rec).Synced)

	rec = do(t, h, http.MethodPut, "/api/view", map[string]string{"mode": "read"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "read", getState(t, h).ViewMode)
}

func TestSignInUploadsGuestData(t *testing.T) {
	store := memory.New(1 << 20)
	h := newTestRouter(newTestDeps(t, store))
	boardID := getState(t, h).SelectedBoardID
	addBook(t, h, boardID, "Dune")

	rec := do(t, h, http.MethodPost, "/api/session", map[string]string{"userId": "u1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeBody[stateView](t, rec)
	assert.True(t, st.SignedIn)
	assert.True(t, st.Synced)
	assert.False(t, st.AwaitingSync)

	ctx := context.Background()
	user, err := store.Get(ctx, docstore.UserDoc().Path("u1"))
	require.NoError(t, err)
	assert.Contains(t, user, "boardsMetadata")
	_, err = store.Get(ctx, docstore.BoardDoc(boardID).Path("u1"))
	require.NoError(t, err)

	rec = do(t, h, http.MethodPatch, "/api/boards/"+boardID, map[string]string{"name": "Nightstand"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeBody[envelope[boardSummary]](t, rec).Synced)

	user, err = store.Get(ctx, docstore.UserDoc().Path("u1"))
	require.NoError(t, err)
	meta := user["boardsMetadata"].(map[string]any)[boardID].(map[string]any)
	assert.Equal(t, "Nightstand", meta["name"])

	rec = do(t, h, http.MethodDelete, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeBody[stateView](t, rec)
	assert.False(t, st.SignedIn)
	require.Len(t, st.Boards, 1)
	assert.NotEqual(t, boardID, st.Boards[0].ID)
}

func TestFailedWritesReport502(t *testing.T) {
	store := memory.New(1 << 20)
	d := newTestDeps(t, brokenCommits{store})
	h := newTestRouter(d)

	rec := do(t, h, http.MethodPost, "/api/session", map[string]string{"userId": "u1"})
	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())

	// Still signed in, the sync is retried on the next sign-in.
	st := getState(t, h)
	assert.True(t, st.SignedIn)
	assert.False(t, st.Synced)

	rec = do(t, h, http.MethodPost, "/api/boards", map[string]string{"name": "Later"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody[envelope[boardSummary]](t, rec)
	assert.False(t, body.Synced)
	assert.Contains(t, body.Error, "connection reset")
	assert.Equal(t, "Later", body.Data.Name)

	// The local change stays.
	assert.Len(t, getState(t, h).Boards, 2)
}

func TestInfraAndReadyz(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))

	rec := do(t, h, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/infra", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "local-only", body["sync_mode"])
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(newTestDeps(t, memory.New(1<<20)))

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[healthzResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "memory", body.Store)
	assert.False(t, body.WritesInFlight)
}
