package domain

import "time"

// Book is one book on a board.
//
// A book with TimeCompleted set is read; without it, unread.
type Book struct {
	ID     string
	Title  string
	Author string

	// Chunk is the index of the chunk document holding this book.
	// Assigned once when the book is added and never changed.
	Chunk int

	Rating        *int
	Review        *string
	TimeCompleted *time.Time
}

// NewBook creates an unread book with a fresh id.
func NewBook(title, author string, chunk int) *Book {
	return &Book{
		ID:     NewBookID(),
		Title:  title,
		Author: author,
		Chunk:  chunk,
	}
}

func (b *Book) UpdateInfo(title, author string) {
	b.Title = title
	b.Author = author
}

func (b *Book) UpdateRating(rating int) {
	b.Rating = &rating
}

func (b *Book) UpdateReview(review string) {
	b.Review = &review
}

// IsRead reports whether the book has been marked as read.
func (b *Book) IsRead() bool {
	return b.TimeCompleted != nil
}

// RatingOrZero returns the rating, or 0 when the book is unrated.
func (b *Book) RatingOrZero() int {
	if b.Rating == nil {
		return 0
	}
	return *b.Rating
}
