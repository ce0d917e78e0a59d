package domain

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	boardIDLength = 6
	bookIDLength  = 8
)

// NewBoardID returns a fresh 6-character board id.
func NewBoardID() string {
	return gonanoid.Must(boardIDLength)
}

// NewBookID returns a fresh 8-character book id.
func NewBookID() string {
	return gonanoid.Must(bookIDLength)
}
