package domain

import (
	"context"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBookAssignsChunks(t *testing.T) {
	f := newFixture(t, "")
	board := NewBoard(f.env, "Shelf")
	ctx := context.Background()

	const extra = 5
	total := MaxBooksPerDocument*2 + extra
	books := make([]*Book, 0, total)
	for i := 0; i < total; i++ {
		book, _ := board.AddBook(ctx, "Title", "Author")
		books = append(books, book)
	}

	for i, book := range books {
		assert.Equal(t, i/MaxBooksPerDocument, book.Chunk, "book %d", i)
	}
	assert.Equal(t, total, board.TotalBooksAdded)
}

func TestAddBook(t *testing.T) {
	f := newFixture(t, "u1")
	board := NewBoard(f.env, "Shelf")
	ctx := context.Background()

	first, p := board.AddBook(ctx, "Dune", "Frank Herbert")
	wait(t, p)
	second, p := board.AddBook(ctx, "Emma", "Jane Austen")
	wait(t, p)

	assert.Len(t, first.ID, bookIDLength)
	assert.Equal(t, []string{second.ID, first.ID}, board.UnreadBooksOrder)
	assert.Equal(t, 2, board.TotalBooksAdded)
	assert.True(t, board.HasUnreadBooks())

	boardDoc := f.doc(t, "users/u1/boards/"+board.ID)
	assert.Equal(t, []any{second.ID, first.ID}, boardDoc["unreadBooksOrder"])
	assert.Equal(t, float64(2), boardDoc["totalBooksAdded"])

	chunk := f.doc(t, "users/u1/boards/"+board.ID+"/chunks/0")
	assert.Equal(t, map[string]any{"title": "Dune", "author": "Frank Herbert", "chunk": float64(0)}, chunk[first.ID])
}

func TestGuestModeIssuesNoWrites(t *testing.T) {
	f := newFixture(t, "")
	board := NewBoard(f.env, "Shelf")
	ctx := context.Background()

	book, p := board.AddBook(ctx, "Dune", "Frank Herbert")
	require.NoError(t, p.Wait())
	wait(t, board.Rename(ctx, "Renamed"))
	wait(t, board.MarkAsRead(ctx, book, nil))

	assert.Contains(t, board.ReadBooks, book.ID)
	assert.Equal(t, 1, f.env.Profile.CompletedBooksCount())
	assert.Equal(t, 0, f.documents(t))
	assert.True(t, f.store.LastCommit().IsZero())
}

func TestRename(t *testing.T) {
	f := newFixture(t, "u1")
	board := NewBoard(f.env, "Shelf")

	wait(t, board.Rename(context.Background(), "A cool new name"))

	assert.Equal(t, "A cool new name", board.Name)
	user := f.doc(t, "users/u1")
	meta := user["boardsMetadata"].(map[string]any)[board.ID].(map[string]any)
	assert.Equal(t, "A cool new name", meta["name"])
}

func TestEditBook(t *testing.T) {
	f := newFixture(t, "u1")
	board := NewBoard(f.env, "Shelf")
	ctx := context.Background()

	book, p := board.AddBook(ctx, "Dune", "Herbert")
	wait(t, p)

	wait(t, board.EditBook(ctx, book, BookChanges{
		Author: strPtr("Frank Herbert"),
		Rating: intPtr(4),
		Review: strPtr("Sand everywhere"),
	}))

	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, 4, *book.Rating)

	entry := f.doc(t, "users/u1/boards/"+board.ID+"/chunks/0")[book.ID].(map[string]any)
	assert.Equal(t, "Dune", entry["title"])
	assert.Equal(t, "Frank Herbert", entry["author"])
	assert.Equal(t, float64(4), entry["rating"])
	assert.Equal(t, "Sand everywhere", entry["review"])

	before := f.store.LastCommit()
	require.NoError(t, board.EditBook(ctx, book, BookChanges{}).Wait())
	assert.Equal(t, before, f.store.LastCommit())
}

func TestDeleteBook(t *testing.T) {
	f := newFixture(t, "u1")
	board := NewBoard(f.env, "Shelf")
	ctx := context.Background()

	unread, p := board.AddBook(ctx, "Dune", "Herbert")
	wait(t, p)
	read, p := board.AddBook(ctx, "Emma", "Austen")
	wait(t, p)
	wait(t, board.MarkAsRead(ctx, read, nil))

	wait(t, board.DeleteBook(ctx, unread))
	wait(t, board.DeleteBook(ctx, read))

	assert.Empty(t, board.UnreadBooks)
	assert.Empty(t, board.UnreadBooksOrder)
	assert.Empty(t, board.ReadBooks)
	assert.Equal(t, 2, board.TotalBooksAdded)

	assert.Equal(t, []any{}, f.doc(t, "users/u1/boards/"+board.ID)["unreadBooksOrder"])
	assert.Empty(t, f.doc(t, "users/u1/boards/"+board.ID+"/chunks/0"))
}

func TestMarkAsRead(t *testing.T) {
	f := newFixture(t, "u1")
	board := NewBoard(f.env, "Shelf")
	ctx := context.Background()

	book, p := board.AddBook(ctx, "Dune", "Herbert")
	wait(t, p)

	wait(t, board.MarkAsRead(ctx, book, &ReadingNotes{Rating: intPtr(5), Review: strPtr("Great")}))

	require.True(t, book.IsRead())
	assert.NotContains(t, board.UnreadBooks, book.ID)
	assert.NotContains(t, board.UnreadBooksOrder, book.ID)
	assert.Contains(t, board.ReadBooks, book.ID)
	assert.Equal(t, 1, f.env.Profile.CompletedBooksCount())

	entry := f.doc(t, "users/u1/boards/"+board.ID+"/chunks/0")[book.ID].(map[string]any)
	assert.Equal(t, float64(book.TimeCompleted.UnixMilli()), entry["timeCompleted"])
	assert.Equal(t, float64(5), entry["rating"])
	assert.Equal(t, "Great", entry["review"])
	assert.Equal(t, float64(1), f.doc(t, "users/u1")["completedBooksCount"])

	// A second call neither moves the book nor bumps the counter.
	wait(t, board.MarkAsRead(ctx, book, nil))
	assert.Equal(t, 1, f.env.Profile.CompletedBooksCount())
}

func TestSortedReadBookIDs(t *testing.T) {
	f := newFixture(t, "")
	board := NewBoard(f.env, "Shelf")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	add := func(id string, completed time.Time, rating *int) {
		board.ReadBooks[id] = &Book{ID: id, TimeCompleted: &completed, Rating: rating}
	}
	add("t1", base, intPtr(5))
	add("t2", base.Add(time.Hour), intPtr(3))
	add("t3", base.Add(2*time.Hour), intPtr(4))

	tests := []struct {
		mode     SortMode
		expected []string
	}{
		{mode: SortNewestFirst, expected: []string{"t3", "t2", "t1"}},
		{mode: SortOldestFirst, expected: []string{"t1", "t2", "t3"}},
		{mode: SortHighestRatedFirst, expected: []string{"t1", "t3", "t2"}},
		{mode: SortLowestRatedFirst, expected: []string{"t2", "t3", "t1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			board.SetReadBooksSortMode(tt.mode)
			assert.Equal(t, tt.expected, board.SortedReadBookIDs())
		})
	}
}

func TestSortedReadBookIDsRatingTies(t *testing.T) {
	f := newFixture(t, "")
	board := NewBoard(f.env, "Shelf")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		completed := base.Add(time.Duration(i) * time.Hour)
		board.ReadBooks[id] = &Book{ID: id, TimeCompleted: &completed}
	}
	board.ReadBooks["mid"].Rating = intPtr(2)

	board.SetReadBooksSortMode(SortHighestRatedFirst)
	assert.Equal(t, []string{"mid", "new", "old"}, board.SortedReadBookIDs())

	board.SetReadBooksSortMode(SortLowestRatedFirst)
	assert.Equal(t, []string{"new", "old", "mid"}, board.SortedReadBookIDs())
}

func TestUpdateUnreadBooksOrder(t *testing.T) {
	f := newFixture(t, "u1")
	board := NewBoard(f.env, "Shelf")
	ctx := context.Background()

	a, _ := board.AddBook(ctx, "A", "x")
	b, p := board.AddBook(ctx, "B", "x")
	wait(t, p)

	p, err := board.UpdateUnreadBooksOrder(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	wait(t, p)
	assert.Equal(t, []string{a.ID, b.ID}, board.UnreadBooksOrder)
	assert.Equal(t, []any{a.ID, b.ID}, f.doc(t, "users/u1/boards/"+board.ID)["unreadBooksOrder"])

	invalid := [][]string{
		{a.ID},
		{a.ID, a.ID},
		{a.ID, "unknown"},
	}
	for _, order := range invalid {
		_, err := board.UpdateUnreadBooksOrder(ctx, order)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	}
	assert.Equal(t, []string{a.ID, b.ID}, board.UnreadBooksOrder)
}

// Random add/delete/read sequences keep the order and partition invariants.
func TestBoardInvariantsUnderRandomOperations(t *testing.T) {
	f := newFixture(t, "")
	board := NewBoard(f.env, "Shelf")
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	added := 0
	for step := 0; step < 500; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(board.UnreadBooks)+len(board.ReadBooks) == 0:
			board.AddBook(ctx, "T", "A")
			added++
		case op == 1:
			if id, ok := anyID(rng, board); ok {
				book, _ := board.Book(id)
				board.DeleteBook(ctx, book)
			}
		default:
			if len(board.UnreadBooksOrder) > 0 {
				id := board.UnreadBooksOrder[rng.Intn(len(board.UnreadBooksOrder))]
				board.MarkAsRead(ctx, board.UnreadBooks[id], nil)
			}
		}

		require.Equal(t, added, board.TotalBooksAdded)
		require.True(t, isPermutation(board.UnreadBooksOrder, board.UnreadBooks), "step %d", step)
		for id := range board.UnreadBooks {
			require.NotContains(t, board.ReadBooks, id)
		}
	}
}

func anyID(rng *rand.Rand, b *Board) (string, bool) {
	var ids []string
	for id := range b.UnreadBooks {
		ids = append(ids, id)
	}
	for id := range b.ReadBooks {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return "", false
	}
	slices.Sort(ids)
	return ids[rng.Intn(len(ids))], true
}

func TestRepairOrder(t *testing.T) {
	unread := map[string]*Book{"a": {ID: "a"}, "b": {ID: "b"}, "c": {ID: "c"}}

	tests := []struct {
		name     string
		order    []string
		expected []string
		changed  bool
	}{
		{name: "consistent", order: []string{"c", "a", "b"}, expected: []string{"c", "a", "b"}, changed: false},
		{name: "missing ids first", order: []string{"c"}, expected: []string{"a", "b", "c"}, changed: true},
		{name: "dangling dropped", order: []string{"b", "x", "a", "c"}, expected: []string{"b", "a", "c"}, changed: true},
		{name: "duplicates dropped", order: []string{"a", "b", "a", "c"}, expected: []string{"a", "b", "c"}, changed: true},
		{name: "empty order", order: nil, expected: []string{"a", "b", "c"}, changed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, changed := repairOrder(tt.order, unread)
			assert.Equal(t, tt.expected, order)
			assert.Equal(t, tt.changed, changed)
		})
	}
}
