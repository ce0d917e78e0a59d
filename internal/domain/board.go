package domain

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

// ErrInvalidOrder is returned when a new unread order is not a permutation
// of the unread books.
var ErrInvalidOrder = errors.New("order does not match the unread books")

// Board is one shelf of books: an ordered unread list and a sortable set of
// read books.
//
// Every mutating method changes the board synchronously and returns the
// remote write it issued. The caller may wait for it or drop it; a failed
// write leaves the local change in place.
type Board struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	ID          string
	Name        string
	TimeCreated time.Time

	// ─────────────────────────────
	// Contents
	// ─────────────────────────────

	// TotalBooksAdded only ever grows. It decides the chunk of the next
	// book, so deleting a book must not decrement it.
	TotalBooksAdded int

	// UnreadBooksOrder is a permutation of the UnreadBooks keys.
	UnreadBooksOrder []string
	UnreadBooks      map[string]*Book
	ReadBooks        map[string]*Book

	// ─────────────────────────────
	// UI state (never stored)
	// ─────────────────────────────

	ReadBooksSortMode SortMode

	env *Env
}

// NewBoard creates an empty board with a fresh id.
func NewBoard(env *Env, name string) *Board {
	return newBoard(env, NewBoardID(), BoardMetadata{Name: name, TimeCreated: env.now()})
}

func newBoard(env *Env, id string, meta BoardMetadata) *Board {
	return &Board{
		ID:                id,
		Name:              meta.Name,
		TimeCreated:       meta.TimeCreated,
		UnreadBooksOrder:  []string{},
		UnreadBooks:       make(map[string]*Book),
		ReadBooks:         make(map[string]*Book),
		ReadBooksSortMode: SortNewestFirst,
		env:               env,
	}
}

// Metadata returns the name and creation time of the board.
func (b *Board) Metadata() BoardMetadata {
	return BoardMetadata{Name: b.Name, TimeCreated: b.TimeCreated}
}

// Book finds a book in either collection.
func (b *Board) Book(id string) (*Book, bool) {
	if book, ok := b.UnreadBooks[id]; ok {
		return book, true
	}
	book, ok := b.ReadBooks[id]
	return book, ok
}

// OrderedUnreadBooks returns the unread books in their user-defined order.
func (b *Board) OrderedUnreadBooks() []*Book {
	books := make([]*Book, 0, len(b.UnreadBooksOrder))
	for _, id := range b.UnreadBooksOrder {
		if book, ok := b.UnreadBooks[id]; ok {
			books = append(books, book)
		}
	}
	return books
}

// HasUnreadBooks reports whether any unread book is left.
func (b *Board) HasUnreadBooks() bool {
	return len(b.UnreadBooks) > 0
}

// Rename changes the board name. Names live in the user document.
func (b *Board) Rename(ctx context.Context, name string) *docstore.Pending {
	b.Name = name
	b.env.emit(EventBoardRenamed, b.ID, "")

	return b.env.Store.Merge(ctx, "rename board", docstore.UserDoc(), docstore.Document{
		fieldBoardsMetadata: docstore.Document{
			b.ID: docstore.Document{fieldName: name},
		},
	})
}

// AddBook puts a new unread book at the top of the board.
func (b *Board) AddBook(ctx context.Context, title, author string) (*Book, *docstore.Pending) {
	chunk := b.TotalBooksAdded / MaxBooksPerDocument
	book := NewBook(title, author, chunk)

	b.UnreadBooks[book.ID] = book
	b.UnreadBooksOrder = append([]string{book.ID}, b.UnreadBooksOrder...)
	b.TotalBooksAdded++
	b.env.emit(EventBookAdded, b.ID, book.ID)

	batch := docstore.NewBatch().
		Merge(docstore.BoardDoc(b.ID), docstore.Document{
			fieldUnreadBooksOrder: slices.Clone(b.UnreadBooksOrder),
			fieldTotalBooksAdded:  b.TotalBooksAdded,
		}).
		Merge(docstore.ChunkDoc(b.ID, chunk), docstore.Document{
			book.ID: BookFields(book),
		})

	return book, b.env.Store.Commit(ctx, "add book", batch)
}

// BookChanges lists the editable fields of a book; nil fields are left
// untouched.
type BookChanges struct {
	Title  *string
	Author *string
	Rating *int
	Review *string
}

// EditBook applies changes to book in place.
func (b *Board) EditBook(ctx context.Context, book *Book, changes BookChanges) *docstore.Pending {
	fields := docstore.Document{}
	if changes.Title != nil {
		book.Title = *changes.Title
		fields[fieldTitle] = *changes.Title
	}
	if changes.Author != nil {
		book.Author = *changes.Author
		fields[fieldAuthor] = *changes.Author
	}
	if changes.Rating != nil {
		book.UpdateRating(*changes.Rating)
		fields[fieldRating] = *changes.Rating
	}
	if changes.Review != nil {
		book.UpdateReview(*changes.Review)
		fields[fieldReview] = *changes.Review
	}
	if len(fields) == 0 {
		return docstore.Completed(nil)
	}
	b.env.emit(EventBookEdited, b.ID, book.ID)

	return b.env.Store.Merge(ctx, "edit book", docstore.ChunkDoc(b.ID, book.Chunk), docstore.Document{
		book.ID: fields,
	})
}

// DeleteBook removes book from whichever collection holds it.
// TotalBooksAdded is left as is.
func (b *Board) DeleteBook(ctx context.Context, book *Book) *docstore.Pending {
	b.removeUnread(book.ID)
	delete(b.ReadBooks, book.ID)
	b.env.emit(EventBookDeleted, b.ID, book.ID)

	batch := docstore.NewBatch().
		Merge(docstore.BoardDoc(b.ID), docstore.Document{
			fieldUnreadBooksOrder: docstore.ArrayRemove(book.ID),
		}).
		Merge(docstore.ChunkDoc(b.ID, book.Chunk), docstore.Document{
			book.ID: docstore.DeleteField,
		})

	return b.env.Store.Commit(ctx, "delete book", batch)
}

// ReadingNotes are the optional rating and review given when a book is
// marked as read.
type ReadingNotes struct {
	Rating *int
	Review *string
}

// MarkAsRead completes an unread book and bumps the profile's completed
// counter. The returned write covers both. Books that are not unread are
// left alone.
func (b *Board) MarkAsRead(ctx context.Context, book *Book, notes *ReadingNotes) *docstore.Pending {
	if _, ok := b.UnreadBooks[book.ID]; !ok {
		b.env.Logger.Debug("mark as read ignored, book is not unread",
			logger.String("board_id", b.ID),
			logger.String("book_id", book.ID))
		return docstore.Completed(nil)
	}

	now := b.env.now()
	book.TimeCompleted = &now
	fields := docstore.Document{fieldTimeCompleted: now.UnixMilli()}
	if notes != nil {
		if notes.Rating != nil {
			book.UpdateRating(*notes.Rating)
			fields[fieldRating] = *notes.Rating
		}
		if notes.Review != nil {
			book.UpdateReview(*notes.Review)
			fields[fieldReview] = *notes.Review
		}
	}

	b.removeUnread(book.ID)
	b.ReadBooks[book.ID] = book
	b.env.emit(EventBookRead, b.ID, book.ID)

	batch := docstore.NewBatch().
		Merge(docstore.BoardDoc(b.ID), docstore.Document{
			fieldUnreadBooksOrder: docstore.ArrayRemove(book.ID),
		}).
		Merge(docstore.ChunkDoc(b.ID, book.Chunk), docstore.Document{
			book.ID: fields,
		})

	return docstore.Join(
		b.env.Store.Commit(ctx, "mark book as read", batch),
		b.env.Profile.IncrementCompletedBooks(ctx),
	)
}

// SetReadBooksSortMode changes how read books are listed. Local only.
func (b *Board) SetReadBooksSortMode(mode SortMode) {
	b.ReadBooksSortMode = mode
	b.env.emit(EventSortModeChanged, b.ID, "")
}

// UpdateUnreadBooksOrder replaces the unread order, typically after a
// drag and drop.
func (b *Board) UpdateUnreadBooksOrder(ctx context.Context, order []string) (*docstore.Pending, error) {
	if !isPermutation(order, b.UnreadBooks) {
		return nil, ErrInvalidOrder
	}

	b.UnreadBooksOrder = slices.Clone(order)
	b.env.emit(EventOrderChanged, b.ID, "")

	return b.env.Store.Merge(ctx, "update unread order", docstore.BoardDoc(b.ID), docstore.Document{
		fieldUnreadBooksOrder: slices.Clone(order),
	}), nil
}

func (b *Board) removeUnread(id string) {
	delete(b.UnreadBooks, id)
	b.UnreadBooksOrder = slices.DeleteFunc(slices.Clone(b.UnreadBooksOrder), func(o string) bool {
		return o == id
	})
}

func isPermutation(order []string, books map[string]*Book) bool {
	if len(order) != len(books) {
		return false
	}
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, ok := books[id]; !ok {
			return false
		}
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}

// repairOrder makes order a permutation of the unread ids. Ids missing from
// the order are put first, sorted; unknown and repeated ids are dropped.
func repairOrder(order []string, unread map[string]*Book) ([]string, bool) {
	seen := make(map[string]struct{}, len(order))
	kept := make([]string, 0, len(order))
	for _, id := range order {
		if _, ok := unread[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, id)
	}

	var missing []string
	for id := range unread {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)

	changed := len(missing) > 0 || len(kept) != len(order)
	return append(missing, kept...), changed
}
