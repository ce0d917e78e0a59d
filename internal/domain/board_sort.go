package domain

import (
	"cmp"
	"slices"
	"time"
)

// SortMode orders the read books of a board.
type SortMode string

const (
	SortNewestFirst       SortMode = "newest-first"
	SortOldestFirst       SortMode = "oldest-first"
	SortHighestRatedFirst SortMode = "highest-rated-first"
	SortLowestRatedFirst  SortMode = "lowest-rated-first"
)

// SortModes lists the valid sort modes.
var SortModes = []SortMode{SortNewestFirst, SortOldestFirst, SortHighestRatedFirst, SortLowestRatedFirst}

// Valid reports whether m is a known sort mode.
func (m SortMode) Valid() bool {
	return slices.Contains(SortModes, m)
}

// SortedReadBookIDs lists the read books under the board's sort mode.
// Rated modes keep newest-first order among equal ratings; an unrated book
// counts as 0.
func (b *Board) SortedReadBookIDs() []string {
	books := make([]*Book, 0, len(b.ReadBooks))
	for _, book := range b.ReadBooks {
		books = append(books, book)
	}

	// Newest first, ids break exact ties so the base order is stable.
	slices.SortFunc(books, func(x, y *Book) int {
		if c := completedAt(y).Compare(completedAt(x)); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})

	switch b.ReadBooksSortMode {
	case SortOldestFirst:
		slices.Reverse(books)
	case SortHighestRatedFirst:
		slices.SortStableFunc(books, func(x, y *Book) int {
			return cmp.Compare(y.RatingOrZero(), x.RatingOrZero())
		})
	case SortLowestRatedFirst:
		slices.SortStableFunc(books, func(x, y *Book) int {
			return cmp.Compare(x.RatingOrZero(), y.RatingOrZero())
		})
	}

	ids := make([]string, len(books))
	for i, book := range books {
		ids[i] = book.ID
	}
	return ids
}

// SortedReadBooks is SortedReadBookIDs resolved to books.
func (b *Board) SortedReadBooks() []*Book {
	ids := b.SortedReadBookIDs()
	books := make([]*Book, len(ids))
	for i, id := range ids {
		books[i] = b.ReadBooks[id]
	}
	return books
}

func completedAt(b *Book) time.Time {
	if b.TimeCompleted == nil {
		return time.Time{}
	}
	return *b.TimeCompleted
}
